// Command seed fills a development database with an admin, a few students
// and sample courses.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"

	"github.com/odyssey-erp/campus/internal/app"
	"github.com/odyssey-erp/campus/internal/auth"
	"github.com/odyssey-erp/campus/internal/enrollment"
	"github.com/odyssey-erp/campus/internal/shared"
	"github.com/odyssey-erp/campus/internal/store"
)

type sampleCourse struct {
	name        string
	description string
}

var sampleCourses = []sampleCourse{
	{"Algorithms", "Sorting, searching and graph basics"},
	{"Databases", "Relational modelling and SQL"},
	{"Operating Systems", "Processes, memory and file systems"},
}

func main() {
	var (
		adminUser     = pflag.String("admin", "root", "admin username")
		adminPassword = pflag.String("admin-password", "rootpw", "admin password")
		students      = pflag.StringSlice("students", []string{"alice", "bob"}, "student usernames to create")
		studentPass   = pflag.String("student-password", "pw1", "password for every seeded student")
		withCourses   = pflag.Bool("courses", true, "create sample courses")
	)
	pflag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()
	services := app.NewServices(cfg, st)

	fmt.Println("→ Seeding admin...")
	if err := expectRole(ctx, services.Auth, *adminUser, store.RoleAdmin)(services.Auth.ProvisionAdmin(ctx, *adminUser, *adminPassword)); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	fmt.Println("→ Seeding students...")
	for _, name := range *students {
		if err := expectRole(ctx, services.Auth, name, store.RoleStudent)(services.Auth.Register(ctx, name, *studentPass)); err != nil {
			log.Fatalf("seed student %s: %v", name, err)
		}
	}

	if *withCourses {
		fmt.Println("→ Seeding courses...")
		admin := &auth.Principal{Username: *adminUser, Role: store.RoleAdmin}
		if err := seedCourses(ctx, services, admin, st); err != nil {
			log.Fatalf("seed courses: %v", err)
		}
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedCourses(ctx context.Context, services app.Services, admin *auth.Principal, st store.Store) error {
	existing, err := st.ListCourses(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[c.Name] = true
	}
	for _, c := range sampleCourses {
		if have[c.name] {
			continue
		}
		input := enrollment.AddCourseInput{Name: c.name, Description: c.description}
		if _, err := services.Enrollment.AddCourse(ctx, admin, input); err != nil {
			return err
		}
	}
	return nil
}

// expectRole accepts a duplicate username only when the stored account
// already has the role being seeded.
func expectRole(ctx context.Context, accounts *auth.Service, username string, role store.Role) func(store.User, error) error {
	return func(_ store.User, err error) error {
		if !errors.Is(err, shared.ErrDuplicateUsername) {
			return err
		}
		existing, lookupErr := accounts.FindAccount(ctx, username)
		if lookupErr != nil {
			return lookupErr
		}
		if existing.Role != role {
			return fmt.Errorf("username %q is taken by a %s account", username, existing.Role)
		}
		return nil
	}
}
