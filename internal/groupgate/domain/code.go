package domain

import "time"

// AuthorizationCodeTTL is the fixed lifetime of an authorization code.
const AuthorizationCodeTTL = 600 * time.Second

// AuthorizationCode is a short-lived single-use value exchanged for the
// access token minted alongside it at grant time. RedirectURI holds the
// redirect_uri request parameter as received, which may be empty for
// registered clients that omitted it; the token endpoint must present the
// same value to redeem the code.
type AuthorizationCode struct {
	Code        string
	IssueTime   time.Time
	ClientID    string
	RedirectURI string
	AccessToken string
}

// Expired reports whether the code is past its lifetime at now.
func (c AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.IssueTime.Add(AuthorizationCodeTTL))
}
