package pg

import (
	"fmt"

	_ "github.com/lib/pq"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/pressly/goose/v3"
)

func Migrate(cfg Config, dir string) error {
	return runGoose(cfg, dir, "up")
}

// Rollback reverts the most recent migration.
func Rollback(cfg Config, dir string) error {
	return runGoose(cfg, dir, "down")
}

func MigrationStatus(cfg Config, dir string) error {
	return runGoose(cfg, dir, "status")
}

func runGoose(cfg Config, dir, command string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("running migrations", "command", command, "dir", dir)
	switch command {
	case "up":
		err = goose.Up(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "status":
		err = goose.Status(db, dir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	return err
}
