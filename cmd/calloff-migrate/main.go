// Command calloff-migrate manages the postgres schema of the evaluation log.
//
//	calloff-migrate [-dsn url] up|down|version|steps N|force V
//
// The DSN defaults to DATABASE_URL.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"github.com/i474232898/calloff/internal/config"
	"github.com/i474232898/calloff/internal/store/postgres"
)

var errUsage = errors.New("usage: calloff-migrate [-dsn url] up|down|version|steps N|force V")

// migrator is the part of *migrate.Migrate the commands use.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

func main() {
	dsn := flag.String("dsn", "", "Database connection string (default DATABASE_URL)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		*dsn = cfg.Store.DatabaseURL
	}
	if *dsn == "" {
		log.Error("no database configured; set DATABASE_URL or -dsn")
		os.Exit(2)
	}

	m, err := postgres.NewMigrator(*dsn)
	if err != nil {
		log.Error("failed to create migrator", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	if err := run(m, flag.Args(), os.Stdout); err != nil {
		log.Error("migration failed", "args", flag.Args(), "error", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(m migrator, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd := args[0]; {
	case cmd == "up" && len(args) == 1:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		fmt.Fprintln(out, "schema up to date")

	case cmd == "down" && len(args) == 1:
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		fmt.Fprintln(out, "schema removed")

	case cmd == "version" && len(args) == 1:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(out, "version: none")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version: %d, dirty: %v\n", v, dirty)

	case cmd == "steps" && len(args) == 2:
		n, err := strconv.Atoi(args[1])
		if err != nil || n == 0 {
			return fmt.Errorf("%w: steps needs a non-zero integer", errUsage)
		}
		if err := m.Steps(n); err != nil {
			return err
		}
		fmt.Fprintf(out, "applied %d migration steps\n", n)

	case cmd == "force" && len(args) == 2:
		v, err := strconv.Atoi(args[1])
		if err != nil || v < -1 {
			return fmt.Errorf("%w: force needs a version >= -1", errUsage)
		}
		if err := m.Force(v); err != nil {
			return err
		}
		fmt.Fprintf(out, "forced to version %d\n", v)

	default:
		return errUsage
	}
	return nil
}
