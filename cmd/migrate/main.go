package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const usage = "usage: migrate [-path file://migrations] <up [n]|down [n]|force <version>|version>"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	defaultPath := os.Getenv("MIGRATIONS_PATH")
	if defaultPath == "" {
		defaultPath = "file://migrations"
	}
	path := flag.String("path", defaultPath, "migrations source URL")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		logger.Error(usage)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	m, err := migrate.New(*path, postgresURL)
	if err != nil {
		logger.Error("failed to create migrate instance", "error", err)
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	if err := run(m, logger, args[0], args[1:]); err != nil {
		logger.Error("migration failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func run(m *migrate.Migrate, logger *slog.Logger, command string, rest []string) error {
	switch command {
	case "up":
		n, err := optionalSteps(rest)
		if err != nil {
			return err
		}
		if n > 0 {
			err = m.Steps(n)
		} else {
			err = m.Up()
		}
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no pending migrations")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("migrations applied")

	case "down":
		n, err := optionalSteps(rest)
		if err != nil {
			return err
		}
		if n == 0 {
			n = 1
		}
		if err := m.Steps(-n); errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no migrations to roll back")
			return nil
		} else if err != nil {
			return err
		}
		logger.Info("migrations rolled back", "steps", n)

	case "force":
		if len(rest) != 1 {
			return errors.New(usage)
		}
		version, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", rest[0], err)
		}
		if err := m.Force(version); err != nil {
			return err
		}
		logger.Info("migration version forced", "version", version)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied yet")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("current migration version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))

	default:
		return fmt.Errorf("unknown command %q; %s", command, usage)
	}
	return nil
}

func optionalSteps(rest []string) (int, error) {
	if len(rest) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("steps must be a positive integer, got %q", rest[0])
	}
	return n, nil
}
