// Command migrate applies the SQL schema in migrations/ to DATABASE_URL.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	app := &cli.App{
		Name:  "migrate",
		Usage: "apply the Genesis database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-url", EnvVars: []string{"DATABASE_URL"}, Required: true},
			&cli.StringFlag{Name: "path", Usage: "migrations directory (searched upwards from the working directory by default)"},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					return withMigrate(c, func(m *migrate.Migrate) error { return m.Up() })
				},
			},
			{
				Name:  "down",
				Usage: "roll back every migration",
				Action: func(c *cli.Context) error {
					return withMigrate(c, func(m *migrate.Migrate) error { return m.Down() })
				},
			},
			{
				Name:  "version",
				Usage: "print the current schema version",
				Action: func(c *cli.Context) error {
					return withMigrate(c, func(m *migrate.Migrate) error {
						v, dirty, err := m.Version()
						if errors.Is(err, migrate.ErrNilVersion) {
							fmt.Println("no migrations applied")
							return nil
						}
						if err != nil {
							return err
						}
						fmt.Printf("version %d (dirty: %t)\n", v, dirty)
						return nil
					})
				},
			},
		},
		DefaultCommand: "up",
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withMigrate(c *cli.Context, fn func(*migrate.Migrate) error) error {
	dir := c.String("path")
	if dir == "" {
		var err error
		if dir, err = findMigrations(); err != nil {
			return err
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+abs, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration %s: %w", c.Command.Name, err)
	}
	log.Printf("Migration %s successful", c.Command.Name)
	return nil
}

// findMigrations looks for a migrations directory next to the working directory or the
// executable, walking up a few levels.
func findMigrations() (string, error) {
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		for i := 0; i < 6; i++ {
			candidates = append(candidates, filepath.Join(cwd, "migrations"))
			parent := filepath.Dir(cwd)
			if parent == cwd {
				break
			}
			cwd = parent
		}
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "migrations"),
			filepath.Join(dir, "..", "migrations"),
		)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c, nil
		}
	}
	return "", errors.New("migrations directory not found")
}
