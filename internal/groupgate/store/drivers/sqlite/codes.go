package sqlite

import (
	"context"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/store"
)

type codesRepo struct {
	db dbtx
}

func (r *codesRepo) StoreAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO authorization_codes (code, issue_time, client_id, redirect_uri, access_token)
		 VALUES (?, ?, ?, ?, ?)`,
		c.Code, c.IssueTime.Unix(), c.ClientID, c.RedirectURI, c.AccessToken)
	return err
}

func (r *codesRepo) GetAuthorizationCode(ctx context.Context, code, redirectURI string) (domain.AuthorizationCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT code, issue_time, client_id, redirect_uri, access_token
		 FROM authorization_codes WHERE code = ? AND redirect_uri = ?`,
		code, redirectURI)

	var c domain.AuthorizationCode
	var issueTime int64
	err := row.Scan(&c.Code, &issueTime, &c.ClientID, &c.RedirectURI, &c.AccessToken)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	c.IssueTime = time.Unix(issueTime, 0).UTC()
	return c, nil
}

// DeleteAuthorizationCode reports ErrNotFound when the row is already gone,
// which the token endpoint treats as a replayed code.
func (r *codesRepo) DeleteAuthorizationCode(ctx context.Context, code, redirectURI string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE code = ? AND redirect_uri = ?`,
		code, redirectURI)
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

func (r *codesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context) error {
	cutoff := int64(domain.AuthorizationCodeTTL / time.Second)
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE issue_time + ? < ?`,
		cutoff, time.Now().Unix())
	return err
}
