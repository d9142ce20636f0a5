package sqlite

import (
	"context"
	"strings"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/store"
)

type approvalsRepo struct {
	db dbtx
}

func (r *approvalsRepo) GetApproval(ctx context.Context, clientID, resourceOwnerID string) (domain.Approval, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT client_id, resource_owner_id, scope, created_at, updated_at
		 FROM approvals WHERE client_id = ? AND resource_owner_id = ?`,
		clientID, resourceOwnerID)

	var a domain.Approval
	err := row.Scan(&a.ClientID, &a.ResourceOwnerID, &a.Scope, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Approval{}, mapNotFound(err)
	}
	return a, nil
}

func (r *approvalsRepo) GetApprovals(ctx context.Context, resourceOwnerID string) ([]domain.Approval, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT client_id, resource_owner_id, scope, created_at, updated_at
		 FROM approvals WHERE resource_owner_id = ? ORDER BY created_at`,
		resourceOwnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Approval
	for rows.Next() {
		var a domain.Approval
		if err := rows.Scan(&a.ClientID, &a.ResourceOwnerID, &a.Scope, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *approvalsRepo) AddApproval(ctx context.Context, a domain.Approval) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO approvals (client_id, resource_owner_id, scope, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.ClientID, a.ResourceOwnerID, a.Scope, a.CreatedAt, a.UpdatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *approvalsRepo) UpdateApproval(ctx context.Context, a domain.Approval) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE approvals SET scope = ?, updated_at = ?
		 WHERE client_id = ? AND resource_owner_id = ?`,
		a.Scope, a.UpdatedAt, a.ClientID, a.ResourceOwnerID)
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

func (r *approvalsRepo) DeleteApproval(ctx context.Context, clientID, resourceOwnerID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM approvals WHERE client_id = ? AND resource_owner_id = ?`,
		clientID, resourceOwnerID)
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
