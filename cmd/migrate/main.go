package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"opsdesk.org/internal/migrate"
	"opsdesk.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	dsn := flag.String("dsn", os.Getenv("OPSDESK_PG_DSN"), "PostgreSQL DSN")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or OPSDESK_PG_DSN")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := migrate.Apply(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("migrations applied")
}
