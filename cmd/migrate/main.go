package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"bookquery/internal/backend"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	settings, err := loadSettings()
	if err != nil {
		fatal("load config", err)
	}

	if *command == "create" {
		if *name == "" {
			fatal("create", fmt.Errorf("-name is required"))
		}
		if err := goose.Create(nil, settings.Dir, *name, "sql"); err != nil {
			fatal("create migration", err)
		}
		fmt.Printf("Migration created: %s\n", *name)
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, settings.DSN)
	if err != nil {
		fatal("connect "+backend.RedactDSN(settings.DSN), err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		fatal("set dialect", err)
	}

	switch *command {
	case "up":
		if err := goose.Up(db, settings.Dir); err != nil {
			fatal("apply migrations", err)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := goose.Down(db, settings.Dir); err != nil {
			fatal("roll back migration", err)
		}
		fmt.Println("Migrations rolled back successfully")
	case "status":
		if err := goose.Status(db, settings.Dir); err != nil {
			fatal("migration status", err)
		}
	default:
		fatal("parse flags", fmt.Errorf("unknown command %q, use up, down, status or create", *command))
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
