package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/Tasklane/internal/adapter/postgres"
	"github.com/Strob0t/Tasklane/internal/config"
	"github.com/Strob0t/Tasklane/internal/service"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runAdminMigrate(args[1:])
	case "create-super-admin":
		return runAdminCreateSuperAdmin(args[1:])
	case "list-tenants":
		return runAdminListTenants(args[1:])
	case "seed-demo":
		return runAdminSeedDemo(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: tasklane admin <command> [options]

Commands:
  migrate             Apply, roll back or inspect database migrations
  create-super-admin  Create a platform operator account
  list-tenants        List all tenants
  seed-demo           Create the demo and acme tenants
  help                Show this help message

Examples:
  tasklane admin migrate
  tasklane admin migrate --down 1
  tasklane admin create-super-admin --email ops@example.com --name "Ops"
  tasklane admin list-tenants
`)
}

func loadAdminDeps(ctx context.Context) (*config.Config, *service.AdminService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	admin := service.NewAdminService(postgres.NewStore(pool), service.NewCredentials(cfg.Auth.BcryptCost), cfg.Plans)
	return cfg, admin, pool.Close, nil
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	down := fs.Int("down", 0, "roll back this many migrations instead of applying")
	status := fs.Bool("status", false, "print the current schema version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()

	switch {
	case *status:
	case *down > 0:
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *down); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
	default:
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Schema version: %d\n", v)
	return nil
}

func runAdminCreateSuperAdmin(args []string) error {
	fs := flag.NewFlagSet("create-super-admin", flag.ContinueOnError)
	email := fs.String("email", "", "operator email address (required)")
	name := fs.String("name", "", "operator display name (required)")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	pass := *password
	if pass == "" {
		var err error
		pass, err = promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if pass != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	ctx := context.Background()
	_, admin, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := admin.CreateSuperAdmin(ctx, *email, *name, pass)
	if err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Super admin created: %s (id=%s)\n", p.Email, p.ID)
	return nil
}

func runAdminListTenants(args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	_, admin, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	tenants, err := admin.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSUBDOMAIN\tNAME\tSTATUS\tPLAN\tMAX_USERS\tMAX_PROJECTS")
	for i := range tenants {
		t := &tenants[i]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			t.ID, t.Subdomain, t.Name, t.Status, t.Plan, t.MaxUsers, t.MaxProjects)
	}
	return w.Flush()
}

func runAdminSeedDemo(args []string) error {
	fs := flag.NewFlagSet("seed-demo", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	cfg, admin, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if !cfg.Server.Development() {
		return fmt.Errorf("seed-demo refuses to run outside development (APP_ENV=%s)", cfg.Server.Env)
	}
	if err := admin.SeedDemo(ctx); err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Demo tenants seeded.")
	return nil
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
