package sqlite

import (
	"context"
	"strings"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/store"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `id, secret, name, description, redirect_uri, type, created_at, updated_at`

func (r *clientsRepo) GetClient(ctx context.Context, id string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	return scanClient(row)
}

func (r *clientsRepo) GetClientByRedirectURI(ctx context.Context, redirectURI string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE redirect_uri = ? ORDER BY created_at LIMIT 1`, redirectURI)
	return scanClient(row)
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *clientsRepo) AddClient(ctx context.Context, c domain.Client) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (id, secret, name, description, redirect_uri, type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Secret, c.Name, c.Description, c.RedirectURI, string(c.Type), c.CreatedAt, c.UpdatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *clientsRepo) UpdateClient(ctx context.Context, c domain.Client) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET secret = ?, name = ?, description = ?, redirect_uri = ?, type = ?, updated_at = ?
		 WHERE id = ?`,
		c.Secret, c.Name, c.Description, c.RedirectURI, string(c.Type), c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *clientsRepo) DeleteClient(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (domain.Client, error) {
	var c domain.Client
	var typ string
	err := row.Scan(&c.ID, &c.Secret, &c.Name, &c.Description, &c.RedirectURI, &typ, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	c.Type = domain.ClientType(typ)
	return c, nil
}
