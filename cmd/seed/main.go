package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"bookquery/internal/auth"
	"bookquery/internal/backend"
	"bookquery/internal/book"
	"bookquery/internal/config"
	"bookquery/internal/logger"

	"github.com/joho/godotenv"
)

var seedIndexes = []book.IndexSpec{
	{{Field: book.FieldTitle, Dir: book.Asc}},
	{{Field: book.FieldAuthor, Dir: book.Asc}, {Field: book.FieldPublishedYear, Dir: book.Asc}},
}

func main() {
	var (
		withIndexes = flag.Bool("indexes", true, "Create the title and author/year indexes after loading")
		token       = flag.String("token", "", "Print an admin token for this subject instead of seeding")
		tokenTTL    = flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed token")
	)
	flag.Parse()

	_ = godotenv.Load(".env.local")

	cfg, err := config.Load(config.Prefix)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log, os.Stderr)

	if *token != "" {
		signed, jti, err := auth.GenerateToken(cfg.JWT.Secret, *token, auth.RoleAdmin, *tokenTTL)
		if err != nil {
			log.Error("generate token", "error", err)
			os.Exit(1)
		}
		log.Info("issued admin token", "subject", *token, "jti", jti, "ttl", *tokenTTL)
		fmt.Println(signed)
		return
	}

	ctx := context.Background()
	if err := seed(ctx, cfg, log, *withIndexes); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, cfg config.Config, log *slog.Logger, withIndexes bool) error {
	store, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	books := book.Samples()
	n, err := store.Store.InsertMany(ctx, books)
	if err != nil {
		return fmt.Errorf("insert books: %w", err)
	}
	log.Info("inserted books", "count", n, "backend", store.Name)

	if !withIndexes {
		return nil
	}
	service := book.NewService(store.Store, log)
	for _, spec := range seedIndexes {
		name, err := service.EnsureIndex(ctx, spec)
		if err != nil {
			return fmt.Errorf("ensure index %s: %w", spec.Name(), err)
		}
		log.Info("index ready", "name", name)
	}
	return nil
}
