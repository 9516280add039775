// Package web carries the server-rendered pages and their stylesheet.
package web

import "embed"

// Templates holds layouts, partials and pages parsed by the view engine.
//
//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html
var Templates embed.FS

// Static is served under /static/.
//
//go:embed static/css
var Static embed.FS
