package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Strob0t/CareerForge/internal/adapter/litellm"
	cfnats "github.com/Strob0t/CareerForge/internal/adapter/nats"
	"github.com/Strob0t/CareerForge/internal/adapter/postgres"
	"github.com/Strob0t/CareerForge/internal/config"
	"github.com/Strob0t/CareerForge/internal/extract"
	"github.com/Strob0t/CareerForge/internal/middleware"
	"github.com/Strob0t/CareerForge/internal/port/database"
	"github.com/Strob0t/CareerForge/internal/port/messagequeue"
	"github.com/Strob0t/CareerForge/internal/service"
)

// runAdmin dispatches admin subcommands (migrate, issue-token, list-reminders, run-job).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runAdminMigrate(args[1:])
	case "issue-token":
		return runAdminIssueToken(args[1:])
	case "list-reminders":
		return runAdminListReminders(args[1:])
	case "run-job":
		return runAdminRunJob(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: careerforge admin <command> [options]

Commands:
  migrate          Apply pending PostgreSQL migrations
  issue-token      Sign a bearer token for a user
  list-reminders   List users with open tasks on active roadmaps
  run-job          Run a background job once (reminders | insights)
  help             Show this help message

Examples:
  careerforge admin migrate
  careerforge admin issue-token --user 3f6c... --ttl 24h
  careerforge admin list-reminders
  careerforge admin run-job insights
`)
}

type adminDeps struct {
	cfg     *config.Config
	store   database.Store
	cleanup func()
}

func loadAdminDeps(ctx context.Context) (*adminDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &adminDeps{cfg: cfg, store: store, cleanup: cleanup}, nil
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Driver == "sqlite" {
		return fmt.Errorf("migrate applies to postgres only; sqlite creates its schema on open")
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Schema at version %d\n", v)
	return nil
}

func runAdminIssueToken(args []string) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	userID := fs.String("user", "", "user id placed in the sub claim (required)")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("--user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	tok, err := middleware.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, *userID, *ttl)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Println(tok)
	return nil
}

func runAdminListReminders(args []string) error {
	fs := flag.NewFlagSet("list-reminders", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	deps, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer deps.cleanup()

	pending, err := deps.store.ListPendingReminders(ctx)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}
	if len(pending) == 0 {
		fmt.Println("No pending reminders.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "USER_ID\tEMAIL\tNAME\tPENDING_TASKS")
	for i := range pending {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			pending[i].UserID, pending[i].Email, pending[i].Name, pending[i].PendingTasks)
	}
	return w.Flush()
}

func runAdminRunJob(args []string) error {
	fs := flag.NewFlagSet("run-job", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: careerforge admin run-job reminders|insights")
	}

	ctx := context.Background()
	deps, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer deps.cleanup()

	var queue messagequeue.Queue
	if deps.cfg.NATS.URL != "" {
		q, err := cfnats.Connect(ctx, deps.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = q.Drain() }()
		queue = q
	}

	switch job := fs.Arg(0); job {
	case "reminders":
		n, err := service.NewReminderService(deps.store, queue).Run(ctx)
		if err != nil {
			return fmt.Errorf("run reminders: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Reminded %d users\n", n)

	case "insights":
		cfg := deps.cfg
		ext := extract.New(cfg.Extract.MaxInputBytes, extract.Prefer(cfg.Extract.Prefer), nil)
		svc := service.NewInsightService(deps.store, litellm.NewClient(cfg.LiteLLM), ext,
			cfg.Jobs.InsightConcurrency, cfg.Jobs.InsightRefreshAfter)
		if queue != nil {
			svc.SetQueue(queue)
		}
		res, err := svc.Run(ctx)
		fmt.Fprintf(os.Stderr, "Refreshed %d, skipped %d, failed %d\n", res.Refreshed, res.Skipped, res.Failed)
		if err != nil {
			return fmt.Errorf("run insights: %w", err)
		}

	default:
		return fmt.Errorf("unknown job: %s", job)
	}
	return nil
}
