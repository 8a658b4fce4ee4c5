// Command migrate manages the PostgreSQL schema.
//
//	migrate up [N]
//	migrate down [N]
//	migrate version
//	migrate force VERSION
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"campusflow/internal/config"
	"campusflow/internal/database"

	"github.com/golang-migrate/migrate/v4"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate up [N] | down [N] | version | force VERSION")
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), flag.Args()[1:]); err != nil {
		slog.Error("Migration failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Database.Driver != config.DatabaseDriverPostgres {
		return fmt.Errorf("the %s driver migrates itself on open", cfg.Database.Driver)
	}

	m, closeFn, err := database.NewMigrator(cfg.Database.URL())
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			slog.Warn("Failed to close migrator", "error", err)
		}
	}()

	n, err := optionalCount(args)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		if n > 0 {
			err = m.Steps(n)
		} else {
			err = m.Up()
		}
		return report(err, "applied")
	case "down":
		if n == 0 {
			n = 1
		}
		return report(m.Steps(-n), "rolled back")
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty=%t)\n", v, dirty)
		return nil
	case "force":
		if n == 0 {
			return errors.New("force needs a version")
		}
		if err := m.Force(n); err != nil {
			return err
		}
		fmt.Printf("forced version %d\n", n)
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func optionalCount(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q", args[0])
	}
	return n, nil
}

func report(err error, verb string) error {
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no change")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println("migrations", verb)
	return nil
}
