package sqlite

import (
	"context"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
)

type tokensRepo struct {
	db dbtx
}

func (r *tokensRepo) StoreAccessToken(ctx context.Context, t domain.AccessToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_tokens (token, issue_time, client_id, resource_owner_id, resource_owner_display_name, scope, expires_in)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Token, t.IssueTime.Unix(), t.ClientID, t.ResourceOwnerID, t.ResourceOwnerDisplayName, t.Scope, t.ExpiresIn)
	return err
}

func (r *tokensRepo) GetAccessToken(ctx context.Context, token string) (domain.AccessToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT token, issue_time, client_id, resource_owner_id, resource_owner_display_name, scope, expires_in
		 FROM access_tokens WHERE token = ?`,
		token)

	var t domain.AccessToken
	var issueTime int64
	err := row.Scan(&t.Token, &issueTime, &t.ClientID, &t.ResourceOwnerID, &t.ResourceOwnerDisplayName, &t.Scope, &t.ExpiresIn)
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	t.IssueTime = time.Unix(issueTime, 0).UTC()
	return t, nil
}

func (r *tokensRepo) DeleteExpiredAccessTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE issue_time + expires_in < ?`,
		time.Now().Unix())
	return err
}
