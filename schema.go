package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
)

// EnsureSchema creates the tables and lookup indexes if they are missing.
// Email and post identifiers are indexed but not unique so that duplicates
// surface as conflicts instead of insert failures.
func EnsureSchema(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*Account)(nil),
		(*Post)(nil),
		(*Comment)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{(*Account)(nil), "accounts_email_idx", "email"},
		{(*Post)(nil), "posts_public_id_idx", "public_id"},
		{(*Comment)(nil), "comments_post_id_idx", "post_id"},
	}

	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
