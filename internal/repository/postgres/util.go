package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/deploywatch/deploywatch/internal/domain/deployment"
)

const (
	codeUniqueViolation = "23505"
	codeFKViolation     = "23503"
)

// mapErr translates pgx-level failures onto the domain sentinels: missing
// rows become ErrNotFound, a unique-key clash becomes ErrConflict and a
// broken foreign key (unknown deployment) becomes ErrNotFound as well.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return deployment.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return deployment.ErrConflict
		case codeFKViolation:
			return deployment.ErrNotFound
		}
	}
	return err
}
