package service

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/identity"
	"github.com/openvoot/groupgate/internal/groupgate/store"
	"github.com/openvoot/groupgate/internal/groupgate/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

var alice = identity.Owner{ID: "alice", DisplayName: "Alice"}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func defaultSettings() Settings {
	return Settings{
		AllowUnregisteredClients: true,
		SupportedScopes:          "read write",
		AdminResourceOwnerIDs:    []string{"admin"},
		AccessTokenExpiry:        3600,
	}
}

func newAuthorizeService(t *testing.T) *AuthorizeService {
	t.Helper()
	return &AuthorizeService{Store: newTestStore(t), Settings: defaultSettings()}
}

func addWebClient(t *testing.T, s store.Store) domain.Client {
	t.Helper()
	now := time.Now()
	c := domain.Client{
		ID:          "webapp",
		Secret:      "topsecret",
		Name:        "Web App",
		RedirectURI: "https://app.example/cb",
		Type:        domain.ClientTypeWebApplication,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Clients().AddClient(context.Background(), c))
	return c
}

// fragmentValues decodes the fragment parameters of a redirect URL.
func fragmentValues(t *testing.T, rawURL string) url.Values {
	t.Helper()
	_, frag, ok := strings.Cut(rawURL, "#")
	require.True(t, ok, "expected fragment in %q", rawURL)
	v, err := url.ParseQuery(frag)
	require.NoError(t, err)
	return v
}

func TestAuthorizeFatalErrors(t *testing.T) {
	t.Parallel()

	svc := newAuthorizeService(t)
	ctx := context.Background()

	t.Run("missing client_id", func(t *testing.T) {
		_, err := svc.Authorize(ctx, alice, AuthorizeRequest{ResponseType: "code"})
		_, ok := AsIdentityError(err)
		require.True(t, ok)
	})

	t.Run("overlong client_id", func(t *testing.T) {
		_, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID:     strings.Repeat("x", 65),
			ResponseType: "code",
		})
		_, ok := AsIdentityError(err)
		require.True(t, ok)
	})

	t.Run("missing response_type", func(t *testing.T) {
		_, err := svc.Authorize(ctx, alice, AuthorizeRequest{ClientID: "webapp"})
		_, ok := AsIdentityError(err)
		require.True(t, ok)
	})

	t.Run("redirect_uri mismatch", func(t *testing.T) {
		addWebClient(t, svc.Store)
		_, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID:     "webapp",
			ResponseType: "code",
			RedirectURI:  "https://evil.example/cb",
			Scope:        "read",
		})
		_, ok := AsIdentityError(err)
		require.True(t, ok)
	})
}

func TestAuthorizeUnregisteredClients(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("disallowed is fatal", func(t *testing.T) {
		svc := newAuthorizeService(t)
		svc.Settings.AllowUnregisteredClients = false

		_, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID:     "nobody",
			ResponseType: "token",
			RedirectURI:  "https://spa.example/",
			Scope:        "read",
		})
		_, ok := AsIdentityError(err)
		require.True(t, ok)
	})

	t.Run("fragment in redirect_uri is fatal", func(t *testing.T) {
		svc := newAuthorizeService(t)

		_, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID:     "spa",
			ResponseType: "token",
			RedirectURI:  "https://spa.example/cb#frag",
			Scope:        "read",
		})
		ie, ok := AsIdentityError(err)
		require.True(t, ok)
		require.Contains(t, ie.Description, "redirect_uri")
	})

	t.Run("registers on first sight", func(t *testing.T) {
		svc := newAuthorizeService(t)

		res, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID:     "spa",
			ResponseType: "token",
			RedirectURI:  "https://spa.example/cb",
			Scope:        "read",
		})
		require.NoError(t, err)
		require.Equal(t, ActionAskApproval, res.Action)

		c, err := svc.Store.Clients().GetClient(ctx, "spa")
		require.NoError(t, err)
		require.Equal(t, domain.ClientTypeUserAgentApplication, c.Type)
		require.Equal(t, "spa.example", c.Name)
		require.Equal(t, "UNREGISTERED (spa.example)", c.Description)
		require.Empty(t, c.Secret)
	})

	t.Run("reuses existing registration by redirect_uri", func(t *testing.T) {
		svc := newAuthorizeService(t)

		_, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID: "spa", ResponseType: "token",
			RedirectURI: "https://spa.example/cb", Scope: "read",
		})
		require.NoError(t, err)

		// Different client_id, same redirect target: resolves to the
		// already registered client instead of registering again.
		res, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID: "other-id", ResponseType: "token",
			RedirectURI: "https://spa.example/cb", Scope: "read",
		})
		require.NoError(t, err)
		require.Equal(t, "spa", res.Client.ID)
	})
}

func TestAuthorizeProtocolErrorsRedirect(t *testing.T) {
	t.Parallel()

	svc := newAuthorizeService(t)
	ctx := context.Background()
	addWebClient(t, svc.Store)

	t.Run("response_type not allowed for profile", func(t *testing.T) {
		// web_application may only use code.
		res, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID:     "webapp",
			ResponseType: "token",
			Scope:        "read",
			State:        "s1",
		})
		require.NoError(t, err)
		require.Equal(t, ActionRedirect, res.Action)

		v := fragmentValues(t, res.RedirectURL)
		require.Equal(t, "unsupported_response_type", v.Get("error"))
		require.Equal(t, "s1", v.Get("state"))
	})

	t.Run("malformed scope", func(t *testing.T) {
		res, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID: "webapp", ResponseType: "code", Scope: "",
		})
		require.NoError(t, err)
		v := fragmentValues(t, res.RedirectURL)
		require.Equal(t, "invalid_scope", v.Get("error"))
	})

	t.Run("unsupported scope", func(t *testing.T) {
		res, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID: "webapp", ResponseType: "code", Scope: "delete",
		})
		require.NoError(t, err)
		v := fragmentValues(t, res.RedirectURL)
		require.Equal(t, "invalid_scope", v.Get("error"))
	})

	t.Run("admin scope needs allowlist", func(t *testing.T) {
		svc := newAuthorizeService(t)
		svc.Settings.AllowAllScopes = true
		addWebClient(t, svc.Store)

		res, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID: "webapp", ResponseType: "code", Scope: AdminScope,
		})
		require.NoError(t, err)
		v := fragmentValues(t, res.RedirectURL)
		require.Equal(t, "invalid_scope", v.Get("error"))

		admin := identity.Owner{ID: "admin", DisplayName: "Admin"}
		res, err = svc.Authorize(ctx, admin, AuthorizeRequest{
			ClientID: "webapp", ResponseType: "code", Scope: AdminScope,
		})
		require.NoError(t, err)
		require.Equal(t, ActionAskApproval, res.Action)
	})
}

func TestAuthorizeConsentAndGrantFlow(t *testing.T) {
	t.Parallel()

	svc := newAuthorizeService(t)
	ctx := context.Background()
	addWebClient(t, svc.Store)

	// Comma-separated scope normalizes; no prior approval means consent.
	res, err := svc.Authorize(ctx, alice, AuthorizeRequest{
		ClientID:     "webapp",
		ResponseType: "code",
		RedirectURI:  "https://app.example/cb",
		Scope:        "write,read",
		State:        "xyz",
	})
	require.NoError(t, err)
	require.Equal(t, ActionAskApproval, res.Action)
	require.Equal(t, []string{"read", "write"}, res.Scopes)
	require.NotEmpty(t, res.Nonce)

	// The owner approves only "read".
	res, err = svc.Approve(ctx, alice, ApproveRequest{
		ClientID:    "webapp",
		Scope:       "write,read",
		Nonce:       res.Nonce,
		PostedScope: "read",
		Approved:    true,
	})
	require.NoError(t, err)
	require.Equal(t, ActionRedirect, res.Action)

	u, err := url.Parse(res.RedirectURL)
	require.NoError(t, err)
	require.Equal(t, "https://app.example/cb", u.Scheme+"://"+u.Host+u.Path)
	q := u.Query()
	require.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), q.Get("code"))
	require.Equal(t, "xyz", q.Get("state"))

	approval, err := svc.Store.Approvals().GetApproval(ctx, "webapp", "alice")
	require.NoError(t, err)
	require.Equal(t, "read", approval.Scope)

	// A second authorize within the approved scope grants immediately.
	res, err = svc.Authorize(ctx, alice, AuthorizeRequest{
		ClientID: "webapp", ResponseType: "code", Scope: "read",
	})
	require.NoError(t, err)
	require.Equal(t, ActionRedirect, res.Action)
	require.Contains(t, res.RedirectURL, "?code=")

	// Requesting more than approved asks again, and approving merges.
	res, err = svc.Authorize(ctx, alice, AuthorizeRequest{
		ClientID: "webapp", ResponseType: "code", Scope: "read write",
	})
	require.NoError(t, err)
	require.Equal(t, ActionAskApproval, res.Action)

	res, err = svc.Approve(ctx, alice, ApproveRequest{
		ClientID:    "webapp",
		Scope:       "read write",
		Nonce:       res.Nonce,
		PostedScope: "read write",
		Approved:    true,
	})
	require.NoError(t, err)
	require.Equal(t, ActionRedirect, res.Action)

	approval, err = svc.Store.Approvals().GetApproval(ctx, "webapp", "alice")
	require.NoError(t, err)
	require.Equal(t, "read write", approval.Scope)
}

func TestAuthorizeImplicitGrant(t *testing.T) {
	t.Parallel()

	svc := newAuthorizeService(t)
	ctx := context.Background()

	res, err := svc.Authorize(ctx, alice, AuthorizeRequest{
		ClientID:     "spa",
		ResponseType: "token",
		RedirectURI:  "https://spa.example/cb",
		Scope:        "read",
		State:        "st",
	})
	require.NoError(t, err)
	require.Equal(t, ActionAskApproval, res.Action)

	res, err = svc.Approve(ctx, alice, ApproveRequest{
		ClientID:    "spa",
		Scope:       "read",
		Nonce:       res.Nonce,
		PostedScope: "read",
		Approved:    true,
	})
	require.NoError(t, err)
	require.Equal(t, ActionRedirect, res.Action)

	v := fragmentValues(t, res.RedirectURL)
	require.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), v.Get("access_token"))
	require.Equal(t, "bearer", v.Get("token_type"))
	require.Equal(t, "3600", v.Get("expires_in"))
	require.Equal(t, "read", v.Get("scope"))
	require.Equal(t, "st", v.Get("state"))

	token, err := svc.Store.AccessTokens().GetAccessToken(ctx, v.Get("access_token"))
	require.NoError(t, err)
	require.Equal(t, "alice", token.ResourceOwnerID)
	require.Equal(t, "Alice", token.ResourceOwnerDisplayName)
}

func TestApproveDenialAndNonceHandling(t *testing.T) {
	t.Parallel()

	svc := newAuthorizeService(t)
	ctx := context.Background()
	addWebClient(t, svc.Store)

	t.Run("unknown nonce is fatal", func(t *testing.T) {
		_, err := svc.Approve(ctx, alice, ApproveRequest{
			ClientID:    "webapp",
			Scope:       "read",
			Nonce:       "bogus",
			PostedScope: "read",
			Approved:    true,
		})
		_, ok := AsIdentityError(err)
		require.True(t, ok)
	})

	t.Run("denial redirects access_denied", func(t *testing.T) {
		res, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID: "webapp", ResponseType: "code", Scope: "read", State: "d1",
		})
		require.NoError(t, err)

		res, err = svc.Approve(ctx, alice, ApproveRequest{
			ClientID: "webapp",
			Scope:    "read",
			Nonce:    res.Nonce,
			Approved: false,
		})
		require.NoError(t, err)
		v := fragmentValues(t, res.RedirectURL)
		require.Equal(t, "access_denied", v.Get("error"))
		require.Equal(t, "d1", v.Get("state"))
	})

	t.Run("nonce is single use", func(t *testing.T) {
		res, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID: "webapp", ResponseType: "code", Scope: "read",
		})
		require.NoError(t, err)
		nonce := res.Nonce

		_, err = svc.Approve(ctx, alice, ApproveRequest{
			ClientID: "webapp", Scope: "read", Nonce: nonce,
			PostedScope: "read", Approved: true,
		})
		require.NoError(t, err)

		_, err = svc.Approve(ctx, alice, ApproveRequest{
			ClientID: "webapp", Scope: "read", Nonce: nonce,
			PostedScope: "read", Approved: true,
		})
		_, ok := AsIdentityError(err)
		require.True(t, ok)
	})

	t.Run("posted scope outside requested scope", func(t *testing.T) {
		res, err := svc.Authorize(ctx, alice, AuthorizeRequest{
			ClientID: "webapp", ResponseType: "code", Scope: "read",
		})
		require.NoError(t, err)

		res, err = svc.Approve(ctx, alice, ApproveRequest{
			ClientID: "webapp", Scope: "read", Nonce: res.Nonce,
			PostedScope: "read write", Approved: true,
		})
		require.NoError(t, err)
		v := fragmentValues(t, res.RedirectURL)
		require.Equal(t, "invalid_scope", v.Get("error"))
	})
}
