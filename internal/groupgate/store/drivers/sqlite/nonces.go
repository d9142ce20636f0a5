package sqlite

import (
	"context"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
)

type noncesRepo struct {
	db dbtx
}

func (r *noncesRepo) StoreAuthorizeNonce(ctx context.Context, n domain.AuthorizeNonce) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO authorize_nonces (nonce, client_id, resource_owner_id, response_type, redirect_uri, scope, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Nonce, n.ClientID, n.ResourceOwnerID, n.ResponseType, n.RedirectURI, n.Scope, n.State, n.CreatedAt.Unix())
	return err
}

// ConsumeAuthorizeNonce deletes and returns the matching nonce in one
// statement so two concurrent approvals of the same prompt cannot both
// succeed.
func (r *noncesRepo) ConsumeAuthorizeNonce(ctx context.Context, clientID, resourceOwnerID, scope, nonce string) (domain.AuthorizeNonce, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM authorize_nonces
		 WHERE nonce = ? AND client_id = ? AND resource_owner_id = ? AND scope = ?
		 RETURNING nonce, client_id, resource_owner_id, response_type, redirect_uri, scope, state, created_at`,
		nonce, clientID, resourceOwnerID, scope)

	var n domain.AuthorizeNonce
	var createdAt int64
	err := row.Scan(&n.Nonce, &n.ClientID, &n.ResourceOwnerID, &n.ResponseType, &n.RedirectURI, &n.Scope, &n.State, &createdAt)
	if err != nil {
		return domain.AuthorizeNonce{}, mapNotFound(err)
	}
	n.CreatedAt = time.Unix(createdAt, 0).UTC()
	return n, nil
}

func (r *noncesRepo) DeleteStaleAuthorizeNonces(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM authorize_nonces WHERE created_at < ?`, before.Unix())
	return err
}
