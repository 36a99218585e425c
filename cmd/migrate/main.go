// migrate applies the embedded Postgres migrations. SQLite databases get their schema on open.
package main

import (
	"flag"
	"fmt"
	"os"

	"presence-engine/internal/config"
	"presence-engine/internal/db"
	"presence-engine/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.Dialect() != db.DialectPostgres {
		fmt.Fprintln(os.Stderr, "migrate: STORE_DRIVER is sqlite; the schema is applied when the database is opened")
		return
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	if v, dirty, err := migrate.Version(cfg.DatabaseURL); err == nil {
		fmt.Printf("schema version %d (dirty=%v)\n", v, dirty)
	}
}
