// Command migrate applies the SQL migrations in db/migrations to the
// postgres database configured through the usual DB_* variables.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/url"

	"worldroom/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

func databaseURL(cfg *config.Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:     cfg.DBHost + ":" + cfg.DBPort,
		Path:     "/" + cfg.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func main() {
	dir := flag.String("dir", "db/migrations", "migrations directory")
	down := flag.Bool("down", false, "roll back one migration instead of applying all")
	flag.Parse()

	cfg := config.Load()
	config.InitLogger(cfg)
	if cfg.DBDriver != "postgres" {
		logrus.Fatalf("migrations target postgres, DB_DRIVER is %q", cfg.DBDriver)
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", *dir), databaseURL(cfg))
	if err != nil {
		logrus.Fatalf("migration setup failed: %v", err)
	}
	defer m.Close()

	if *down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logrus.Fatalf("database migration failed: %v", err)
	}

	version, dirty, _ := m.Version()
	logrus.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("Database migrations applied")
}
