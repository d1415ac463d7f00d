package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 20261015001_create_quizzes.sql
var createQuizzesSQL string

//go:embed 20261015002_create_progression.sql
var createProgressionSQL string

// Migrations holds the Postgres schema, applied by `migrate` and on server start.
var Migrations = migrate.NewMigrations()

func init() {
	register("20261015001_create_quizzes", createQuizzesSQL, `DROP TABLE IF EXISTS quizzes`)
	register("20261015002_create_progression", createProgressionSQL, `DROP TABLE IF EXISTS progression`)
}

func register(name, up, down string) {
	Migrations.Add(migrate.Migration{
		Name: name,
		Up: func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, up)
			return err
		},
		Down: func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, down)
			return err
		},
	})
}
