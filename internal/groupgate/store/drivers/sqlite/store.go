package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/openvoot/groupgate/internal/groupgate/store"
	_ "modernc.org/sqlite"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same repositories serve both the root store and transaction-scoped stores.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// An in-memory database exists per connection, so the pool must not
	// open a second one.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Ensure rollback is called if we panic or return early with error
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	// Execute the function
	if err := fn(tx); err != nil {
		return err // rollback happens in defer
	}

	// Commit on success
	return tx.Commit()
}

func (s *Store) Clients() store.Clients                       { return &clientsRepo{db: s.db} }
func (s *Store) AuthorizeNonces() store.AuthorizeNonces       { return &noncesRepo{db: s.db} }
func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return &codesRepo{db: s.db} }
func (s *Store) AccessTokens() store.AccessTokens             { return &tokensRepo{db: s.db} }
func (s *Store) Approvals() store.Approvals                   { return &approvalsRepo{db: s.db} }
func (s *Store) Groups() store.Groups                         { return &groupsRepo{db: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
