package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/angelmondragon/resellr-backend/internal/bootstrap"
	"github.com/angelmondragon/resellr-backend/pkg/db"
	"github.com/angelmondragon/resellr-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory; empty uses the embedded set")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	rt := bootstrap.Start("migrate")
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd, "dir": *dir})

	switch *cmd {
	case "create":
		if *name == "" {
			rt.Must(ctx, "migrate create", fmt.Errorf("-name is required"))
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		rt.Must(ctx, "migrate create", err)
		fmt.Println("created migration:", path)
		return
	case "validate":
		rt.Must(ctx, "migrate validate", migrate.ValidateDir(*dir))
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	rt.Must(ctx, "connect database", err)
	rt.Track("database", dbClient)

	sqlDB, err := dbClient.DB().DB()
	rt.Must(ctx, "open sql handle", err)
	runner, err := migrate.NewPostgresRunner(sqlDB, source(*dir))
	rt.Must(ctx, "build migration runner", err)

	var steps []migrate.Applied
	switch *cmd {
	case "up":
		steps, err = runner.Up(ctx)
	case "down":
		steps, err = runner.Down(ctx)
	case "version":
		steps, err = runner.MigrateTo(ctx, *target)
	case "status":
		err = printStatus(ctx, runner)
	default:
		err = fmt.Errorf("unknown -cmd value %q", *cmd)
	}
	for _, step := range steps {
		fmt.Printf("%s %d %s\n", step.Direction, step.Version, step.Path)
	}
	rt.Must(ctx, "migrate "+*cmd, err)
}

func source(dir string) fs.FS {
	if dir == "" {
		return migrate.Embedded()
	}
	return os.DirFS(dir)
}

func printStatus(ctx context.Context, runner *migrate.Runner) error {
	version, err := runner.Version(ctx)
	if err != nil {
		return err
	}
	pending, err := runner.Pending(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("current version: %d\n", version)
	for _, v := range pending {
		fmt.Printf("pending: %d\n", v)
	}
	return nil
}
