// Command migrate applies the SQL schema migrations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/askdocs/askdocs/pkg/config"
)

var (
	upFlag        = flag.Bool("up", false, "Apply all pending migrations")
	downFlag      = flag.Bool("down", false, "Roll back the last migration")
	versionFlag   = flag.Bool("version", false, "Show current migration version")
	migrationsDir = flag.String("dir", "migrations", "Migrations directory")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db := cfg.Database
	url := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.User, db.Password, db.Host, db.Port, db.Database, db.SSLMode)

	m, err := migrate.New("file://"+*migrationsDir, url)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	switch {
	case *upFlag:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("Migrations applied")
	case *downFlag:
		if err := m.Steps(-1); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Rolled back one migration")
	case *versionFlag:
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Failed to read version: %v", err)
		}
		log.Printf("Version %d (dirty=%v)", version, dirty)
	default:
		flag.Usage()
		os.Exit(1)
	}
}
