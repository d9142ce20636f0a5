package http_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	httpapi "github.com/openvoot/groupgate/internal/groupgate/http"
	"github.com/openvoot/groupgate/internal/groupgate/identity"
	"github.com/openvoot/groupgate/internal/groupgate/service"
	"github.com/openvoot/groupgate/internal/groupgate/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	store  *sqlite.Store
	client *http.Client
}

func newTestServer(t *testing.T, settings service.Settings) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	router := httpapi.NewRouter(
		"test",
		st,
		identity.NewStaticAuthenticator("alice", "Alice"),
		slog.New(slog.DiscardHandler),
	)
	router.AuthorizeService = &service.AuthorizeService{Store: st, Settings: settings}
	router.TokenService = &service.TokenService{Store: st}
	router.VerifyService = &service.VerifyService{Store: st}
	router.ClientService = &service.ClientService{Store: st}
	router.ApprovalService = &service.ApprovalService{Store: st}
	router.VootService = &service.VootService{Store: st}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testServer{Server: srv, store: st, client: client}
}

func testSettings() service.Settings {
	return service.Settings{
		SupportedScopes:       "read write",
		AdminResourceOwnerIDs: []string{"alice"},
		AccessTokenExpiry:     3600,
	}
}

func seedWebClient(t *testing.T, ts *testServer) domain.Client {
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
	require.NoError(t, ts.store.Clients().AddClient(context.Background(), c))
	return c
}

var nonceRE = regexp.MustCompile(`name="authorize_nonce" value="([0-9a-f]+)"`)

func TestAuthorizationCodeFlowEndToEnd(t *testing.T) {
	ts := newTestServer(t, testSettings())
	client := seedWebClient(t, ts)

	// 1. The authorize endpoint renders a consent prompt with a nonce.
	resp, err := ts.client.Get(ts.URL + "/oauth/authorize?client_id=webapp&response_type=code&scope=write,read&state=xyz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "Web App")
	require.Contains(t, string(body), "read")

	m := nonceRE.FindStringSubmatch(string(body))
	require.NotNil(t, m, "consent page carries the nonce")
	nonce := m[1]

	// 2. Approving redirects back to the client with a code.
	form := url.Values{
		"client_id":       {"webapp"},
		"scope":           {"read write"},
		"authorize_nonce": {nonce},
		"approval":        {"approve"},
	}
	resp, err = ts.client.PostForm(ts.URL+"/oauth/authorize", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "app.example", loc.Host)
	code := loc.Query().Get("code")
	require.Regexp(t, `^[0-9a-f]{32}$`, code)
	require.Equal(t, "xyz", loc.Query().Get("state"))

	// 3. The token endpoint exchanges the code for the access token.
	tokenForm := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/oauth/token", strings.NewReader(tokenForm.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(client.ID+":"+client.Secret)))

	resp, err = ts.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokenResp))
	resp.Body.Close()
	require.Regexp(t, `^[0-9a-f]{32}$`, tokenResp.AccessToken)
	require.Equal(t, "bearer", tokenResp.TokenType)
	require.Equal(t, "read write", tokenResp.Scope)

	// 4. Replaying the code fails.
	req, _ = http.NewRequest(http.MethodPost, ts.URL+"/oauth/token", strings.NewReader(tokenForm.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(client.ID+":"+client.Secret)))

	resp, err = ts.client.Do(req)
	require.NoError(t, err)
	var errResp map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_grant", errResp["error"])

	// 5. The token reads the protected group directory.
	require.NoError(t, ts.store.Groups().AddGroup(context.Background(), domain.Group{ID: "devs", Title: "Developers"}))
	require.NoError(t, ts.store.Groups().AddMember(context.Background(), "devs", "alice", "Alice", domain.RoleMember))

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/groups/@me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenResp.AccessToken)
	resp, err = ts.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var page struct {
		TotalResults int `json:"totalResults"`
		Entry        []struct {
			ID   string `json:"id"`
			Role string `json:"voot_membership_role"`
		} `json:"entry"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	resp.Body.Close()
	require.Equal(t, 1, page.TotalResults)
	require.Equal(t, "devs", page.Entry[0].ID)
	require.Equal(t, "member", page.Entry[0].Role)

	// 6. Members of the caller's group are listed.
	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/people/@me/devs", nil)
	req.Header.Set("Authorization", "Bearer "+tokenResp.AccessToken)
	resp, err = ts.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAuthorizeDenialRedirect(t *testing.T) {
	ts := newTestServer(t, testSettings())
	seedWebClient(t, ts)

	resp, err := ts.client.Get(ts.URL + "/oauth/authorize?client_id=webapp&response_type=code&scope=read&state=d1")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	m := nonceRE.FindStringSubmatch(string(body))
	require.NotNil(t, m)

	form := url.Values{
		"client_id":       {"webapp"},
		"scope":           {"read"},
		"authorize_nonce": {m[1]},
		"approval":        {"deny"},
	}
	resp, err = ts.client.PostForm(ts.URL+"/oauth/authorize", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc := resp.Header.Get("Location")
	_, frag, ok := strings.Cut(loc, "#")
	require.True(t, ok)
	v, err := url.ParseQuery(frag)
	require.NoError(t, err)
	require.Equal(t, "access_denied", v.Get("error"))
	require.Equal(t, "d1", v.Get("state"))
}

func TestAuthorizeFatalErrorRendersPage(t *testing.T) {
	ts := newTestServer(t, testSettings())

	// Unknown client and unregistered clients disallowed: no redirect.
	resp, err := ts.client.Get(ts.URL + "/oauth/authorize?client_id=ghost&response_type=code&scope=read")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(body), "Authorization Error")
}

func TestTokenEndpointContentType(t *testing.T) {
	ts := newTestServer(t, testSettings())

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/oauth/token", bytes.NewReader([]byte(`{"grant_type":"authorization_code"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBearerChallenges(t *testing.T) {
	ts := newTestServer(t, testSettings())

	t.Run("missing token", func(t *testing.T) {
		resp, err := ts.client.Get(ts.URL + "/groups/@me")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="invalid_token"`)
	})

	t.Run("malformed token", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/groups/@me", nil)
		req.Header.Set("Authorization", "Bearer !!!")
		resp, err := ts.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("insufficient scope", func(t *testing.T) {
		token := seedToken(t, ts, "writeonly", "write")
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/groups/@me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := ts.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), "insufficient_scope")
	})
}

func seedToken(t *testing.T, ts *testServer, value, scope string) string {
	t.Helper()
	require.NoError(t, ts.store.AccessTokens().StoreAccessToken(context.Background(), domain.AccessToken{
		Token:           value + strings.Repeat("0", 32-len(value)),
		IssueTime:       time.Now(),
		ClientID:        "webapp",
		ResourceOwnerID: "alice",
		Scope:           scope,
		ExpiresIn:       3600,
	}))
	return value + strings.Repeat("0", 32-len(value))
}

func TestClientManagementAPI(t *testing.T) {
	ts := newTestServer(t, testSettings())
	admin := seedToken(t, ts, "admintoken", "oauth_admin")

	do := func(method, path string, payload any) *http.Response {
		t.Helper()
		var body io.Reader
		if payload != nil {
			b, err := json.Marshal(payload)
			require.NoError(t, err)
			body = bytes.NewReader(b)
		}
		req, _ := http.NewRequest(method, ts.URL+path, body)
		req.Header.Set("Authorization", "Bearer "+admin)
		resp, err := ts.client.Do(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("requires admin scope", func(t *testing.T) {
		read := seedToken(t, ts, "readtoken", "read")
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/oauth/client", nil)
		req.Header.Set("Authorization", "Bearer "+read)
		resp, err := ts.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	create := map[string]string{
		"id":           "newapp",
		"secret":       "s3cr3t",
		"name":         "New App",
		"redirect_uri": "https://new.example/cb",
		"type":         "web_application",
	}

	resp := do(http.MethodPost, "/oauth/client", create)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = do(http.MethodPost, "/oauth/client", create)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = do(http.MethodGet, "/oauth/client/newapp", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got domain.Client
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	require.Equal(t, "New App", got.Name)

	create["name"] = "Renamed"
	resp = do(http.MethodPut, "/oauth/client/newapp", create)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(http.MethodGet, "/oauth/client", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Client
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)

	resp = do(http.MethodDelete, "/oauth/client/newapp", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = do(http.MethodDelete, "/oauth/client/newapp", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	t.Run("invalid metadata", func(t *testing.T) {
		bad := map[string]string{"id": "x", "name": "X", "redirect_uri": "https://x.example/cb#frag", "type": "web_application"}
		resp := do(http.MethodPost, "/oauth/client", bad)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestApprovalManagementPages(t *testing.T) {
	ts := newTestServer(t, testSettings())
	seedWebClient(t, ts)

	// Grant consent first.
	resp, err := ts.client.Get(ts.URL + "/oauth/authorize?client_id=webapp&response_type=code&scope=read")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	m := nonceRE.FindStringSubmatch(string(body))
	require.NotNil(t, m)

	resp, err = ts.client.PostForm(ts.URL+"/oauth/authorize", url.Values{
		"client_id":       {"webapp"},
		"scope":           {"read"},
		"authorize_nonce": {m[1]},
		"approval":        {"approve"},
	})
	require.NoError(t, err)
	resp.Body.Close()

	// The approvals page lists the consent.
	resp, err = ts.client.Get(ts.URL + "/oauth/revoke")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "Web App")

	// Revoking removes it.
	resp, err = ts.client.PostForm(ts.URL+"/oauth/revoke", url.Values{"client_id": {"webapp"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, err = ts.client.Get(ts.URL + "/oauth/revoke")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(body), "not approved any applications")
}

func TestSystemEndpoints(t *testing.T) {
	ts := newTestServer(t, testSettings())

	resp, err := ts.client.Get(ts.URL + "/livez")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = ts.client.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
