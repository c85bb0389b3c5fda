package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nimasrn/academy-ledger/internal/config"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/repository"
	"github.com/nimasrn/academy-ledger/internal/services"
	"github.com/nimasrn/academy-ledger/pkg/auth"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/nimasrn/academy-ledger/pkg/pg"
)

const usage = `usage: cli [--env=.env] <command> [args]

commands:
  migrate up|down|status [--dir=./migrations]
  seed --file=seed.yaml
  create-admin --username=<name> --password=<secret> [--email=<email>]
`

func main() {
	err := config.Load(config.ArgEnvPath(os.Args))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	cmd, rest := command(os.Args[1:])
	switch cmd {
	case "migrate":
		err = runMigrate(rest)
	case "seed":
		err = runSeed(rest)
	case "create-admin":
		err = runCreateAdmin(rest)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

// command returns the first positional argument and everything after it.
func command(args []string) (string, []string) {
	for i, a := range args {
		if !strings.HasPrefix(a, "--") {
			return a, args[i+1:]
		}
	}
	return "", nil
}

// argValue looks up a --name=value argument.
func argValue(args []string, name string) string {
	prefix := "--" + name + "="
	for _, v := range args {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}

func runMigrate(args []string) error {
	dir := argValue(args, "dir")
	if dir == "" {
		dir = config.Get().MigrationsDir
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migrations dir: %w", err)
	}

	direction, _ := command(args)
	pgConf := config.Get().PostgresWrite()
	switch direction {
	case "", "up":
		return pg.Migrate(pgConf, dir)
	case "down":
		return pg.Rollback(pgConf, dir)
	case "status":
		return pg.MigrationStatus(pgConf, dir)
	}
	return fmt.Errorf("unknown migrate direction %q", direction)
}

func openDB() (*pg.DB, error) {
	cfg := config.Get()
	return pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), false)
}

func runSeed(args []string) error {
	path := argValue(args, "file")
	if path == "" {
		return fmt.Errorf("--file is required")
	}
	catalogue, err := loadSeed(path)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	svc := services.NewCatalogueService(repository.NewCatalogueRepository(db), repository.NewBatchRepository(db))
	res, err := applySeed(context.Background(), svc, catalogue)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d entries, %d already present\n", res.Created, res.Skipped)
	return nil
}

func runCreateAdmin(args []string) error {
	cfg := config.Get()
	req := model.CreateUserRequest{
		Username:    argValue(args, "username"),
		Password:    argValue(args, "password"),
		Email:       argValue(args, "email"),
		IsSuperuser: true,
		Role:        model.RoleAdmin,
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	// user creation is not replicated from the cli
	svc := services.NewAuthService(repository.NewUserRepository(db), auth.NewTokenIssuer(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, cfg.AuthTokenTTL), nil)
	u, err := svc.CreateUser(context.Background(), req)
	if err != nil {
		return err
	}
	fmt.Printf("created admin %s (%s)\n", u.Username, u.ID)
	return nil
}
