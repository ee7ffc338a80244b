package vault

import (
	"context"
	"database/sql"
)

// DB exposes the internal *sql.DB for test helpers in vault_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FailExecWhen makes every statement for which match returns true fail with
// err. Other statements run normally.
func (s *Store) FailExecWhen(match func(query string) bool, err error) {
	s.hooks.exec = func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
		if match(query) {
			return nil, err
		}
		return db.ExecContext(ctx, query, args...)
	}
}

// ResetHooks restores the default store hooks.
func (s *Store) ResetHooks() {
	s.hooks = defaultStoreHooks()
}
