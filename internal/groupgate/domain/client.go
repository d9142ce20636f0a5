package domain

import "time"

// ClientType is the client profile. It constrains which response types the
// client may request and how it must authenticate at the token endpoint.
type ClientType string

const (
	ClientTypeWebApplication       ClientType = "web_application"
	ClientTypeNativeApplication    ClientType = "native_application"
	ClientTypeUserAgentApplication ClientType = "user_agent_based_application"
)

// Valid reports whether t is one of the known client profiles.
func (t ClientType) Valid() bool {
	switch t {
	case ClientTypeWebApplication, ClientTypeNativeApplication, ClientTypeUserAgentApplication:
		return true
	}
	return false
}

// AllowedResponseTypes returns the response types permitted for this profile.
func (t ClientType) AllowedResponseTypes() []string {
	switch t {
	case ClientTypeWebApplication:
		return []string{"code"}
	case ClientTypeNativeApplication:
		return []string{"token", "code"}
	case ClientTypeUserAgentApplication:
		return []string{"token"}
	}
	return nil
}

// Client is a registered (or dynamically registered) application consuming
// the authorization server.
type Client struct {
	ID          string     `json:"id"`
	Secret      string     `json:"secret,omitempty"` // empty for public clients
	Name        string     `json:"name"`
	Description string     `json:"description"`
	RedirectURI string     `json:"redirect_uri"`
	Type        ClientType `json:"type"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Confidential reports whether the client holds a secret.
func (c Client) Confidential() bool { return c.Secret != "" }
