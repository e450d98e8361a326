// Command migrate manages the database schema.
//
//	migrate -cmd up|down|status|version|create|validate [-dir path] [-name n] [-version v]
//
// Postgres migrations are read from -dir. With PERFUMERY_USE_SQLITE the
// SQLite set embedded in the binary is used and -dir is ignored.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/scentlab/perfumery-backend/pkg/config"
	"github.com/scentlab/perfumery-backend/pkg/db"
	"github.com/scentlab/perfumery-backend/pkg/logger"
	"github.com/scentlab/perfumery-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "postgres migrations directory")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	// create and validate only touch files, so they run without config
	switch *cmd {
	case "create":
		if *name == "" {
			fail("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail(err.Error())
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail(err.Error())
		}
		fmt.Println("migrations valid")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err.Error())
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     logger.IsConsoleFormat(cfg.App.LogFormat),
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	client, runner, err := open(ctx, cfg, logg, *dir)
	if err != nil {
		logg.Error(ctx, "migrate setup failed", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := run(ctx, runner, *cmd, *version); err != nil {
		logg.Error(ctx, "migrate failed", err)
		client.Close()
		os.Exit(1)
	}
	logg.Info(ctx, "migrate finished")
}

func open(ctx context.Context, cfg *config.Config, logg *logger.Logger, dir string) (*db.Client, *migrate.Runner, error) {
	var (
		client *db.Client
		err    error
	)
	if cfg.FeatureFlags.UseSQLite {
		client, err = db.NewSQLite(ctx, cfg.DB.SQLitePath, logg)
	} else {
		client, err = db.New(ctx, cfg.DB, logg)
	}
	if err != nil {
		return nil, nil, err
	}

	pool, err := client.SQL()
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	var runner *migrate.Runner
	if cfg.FeatureFlags.UseSQLite {
		runner, err = migrate.NewEmbedded(pool, db.DialectSQLite)
	} else {
		runner, err = migrate.NewFromDir(pool, dir)
	}
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return client, runner, nil
}

func run(ctx context.Context, runner *migrate.Runner, cmd, version string) error {
	switch cmd {
	case "up":
		return report(runner.Up(ctx))
	case "down":
		return report(runner.Down(ctx))
	case "version":
		target, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			return fmt.Errorf("-version %q: want YYYYMMDDHHMMSS", version)
		}
		return report(runner.To(ctx, target))
	case "status":
		rows, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, row := range rows {
			state := "pending"
			if row.Applied {
				state = "applied " + row.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%d  %-28s  %s\n", row.Version, state, row.File)
		}
		return nil
	default:
		return fmt.Errorf("unknown -cmd %q", cmd)
	}
}

func report(applied []migrate.Applied, err error) error {
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Println("nothing to do")
	}
	for _, m := range applied {
		fmt.Printf("%-4s %d %s (%s)\n", m.Direction, m.Version, m.File, m.Duration)
	}
	return nil
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "migrate:", msg)
	os.Exit(1)
}
