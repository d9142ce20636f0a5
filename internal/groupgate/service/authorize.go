package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/identity"
	"github.com/openvoot/groupgate/internal/groupgate/store"
	"github.com/openvoot/groupgate/pkg/cryptox"
	"github.com/openvoot/groupgate/pkg/scopex"
	"github.com/openvoot/groupgate/pkg/slogx"
)

// AdminScope is the administrative scope token. Requests carrying it are only
// granted to resource owners on the configured admin allowlist.
const AdminScope = "oauth_admin"

// MaxClientIDLength bounds the client_id parameter.
const MaxClientIDLength = 64

// Settings is the injected authorization policy.
type Settings struct {
	// AllowUnregisteredClients permits dynamic client registration keyed
	// by redirect_uri on the first authorize call.
	AllowUnregisteredClients bool

	// AllowAllScopes skips the supported-scope subset check.
	AllowAllScopes bool

	// SupportedScopes is the canonical scope value requests must stay
	// within when AllowAllScopes is off.
	SupportedScopes string

	// AdminResourceOwnerIDs lists owners permitted the admin scope.
	AdminResourceOwnerIDs []string

	// AccessTokenExpiry is the access token lifetime in seconds.
	AccessTokenExpiry int64

	// AllowScopeFiltering lets the consent page offer per-token checkboxes
	// so the owner can approve a subset of the requested scope.
	AllowScopeFiltering bool
}

// AdminResourceOwner reports whether the owner id is on the admin allowlist.
func (s Settings) AdminResourceOwner(id string) bool {
	for _, admin := range s.AdminResourceOwnerIDs {
		if admin == id {
			return true
		}
	}
	return false
}

// AuthorizeService runs the authorize/approve half of the protocol engine.
type AuthorizeService struct {
	Store    store.Store
	Settings Settings
}

// Action tags an AuthorizeResult so the HTTP layer knows whether to render
// the consent prompt or redirect.
type Action int

const (
	// ActionAskApproval renders the consent prompt carrying the nonce.
	ActionAskApproval Action = iota

	// ActionRedirect sends the browser to RedirectURL. Protocol errors use
	// this action too; their parameters ride the URL fragment.
	ActionRedirect
)

// AuthorizeRequest carries the decoded authorize query parameters.
type AuthorizeRequest struct {
	ClientID     string
	ResponseType string
	RedirectURI  string
	Scope        string
	State        string
}

// ApproveRequest carries the posted consent form.
type ApproveRequest struct {
	ClientID     string
	ResponseType string
	RedirectURI  string

	// Scope is the originally requested scope the nonce was minted for.
	Scope string
	State string

	// Nonce is the opaque value the consent form carried.
	Nonce string

	// PostedScope is the scope the owner actually approved; equal to Scope
	// unless scope filtering is enabled.
	PostedScope string

	// Approved is the owner's decision.
	Approved bool
}

// AuthorizeResult is the tagged outcome of Authorize or Approve.
type AuthorizeResult struct {
	Action Action

	// RedirectURL is set for ActionRedirect.
	RedirectURL string

	// Client, Scopes and Nonce are set for ActionAskApproval.
	Client domain.Client
	Scopes []string
	Nonce  string
}

// Authorize validates an authorization request and decides between consent,
// immediate grant and error. Fatal failures return an *IdentityError; they
// must be rendered locally because no redirect target is trusted yet.
func (s *AuthorizeService) Authorize(ctx context.Context, owner identity.ResourceOwner, req AuthorizeRequest) (AuthorizeResult, error) {
	l := slogx.FromContext(ctx)

	if req.ClientID == "" {
		return AuthorizeResult{}, identityErrorf("client_id missing")
	}
	if len(req.ClientID) > MaxClientIDLength {
		return AuthorizeResult{}, identityErrorf("client_id too long")
	}
	if req.ResponseType == "" {
		return AuthorizeResult{}, identityErrorf("response_type missing")
	}

	client, err := s.resolveClient(ctx, req.ClientID, req.RedirectURI)
	if err != nil {
		return AuthorizeResult{}, err
	}

	// The redirect target is only trusted once it matches the registration.
	if req.RedirectURI != "" && req.RedirectURI != client.RedirectURI {
		return AuthorizeResult{}, identityErrorf("specified redirect_uri not the same as registered redirect_uri")
	}

	if !responseTypeAllowed(client.Type, req.ResponseType) {
		return errorRedirect(client, "unsupported_response_type", "response_type not supported by client profile", req.State), nil
	}

	scope, err := scopex.Normalize(req.Scope)
	if err != nil {
		return errorRedirect(client, "invalid_scope", "malformed scope", req.State), nil
	}
	if !s.Settings.AllowAllScopes && !scopex.Subset(scope, s.Settings.SupportedScopes) {
		return errorRedirect(client, "invalid_scope", "scope not supported", req.State), nil
	}
	if scopex.Contains(scope, AdminScope) && !s.Settings.AdminResourceOwner(owner.ResourceOwnerID()) {
		return errorRedirect(client, "invalid_scope", "scope not allowed for this user", req.State), nil
	}

	approval, err := s.Store.Approvals().GetApproval(ctx, client.ID, owner.ResourceOwnerID())
	switch {
	case err == nil && scopex.Subset(scope, approval.Scope):
		return s.grant(ctx, owner, client, req.ResponseType, req.RedirectURI, scope, req.State)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return AuthorizeResult{}, err
	}

	nonce, err := cryptox.RandomHex(cryptox.TokenSize128)
	if err != nil {
		return AuthorizeResult{}, err
	}
	err = s.Store.AuthorizeNonces().StoreAuthorizeNonce(ctx, domain.AuthorizeNonce{
		Nonce:           nonce,
		ClientID:        client.ID,
		ResourceOwnerID: owner.ResourceOwnerID(),
		ResponseType:    req.ResponseType,
		RedirectURI:     req.RedirectURI,
		Scope:           scope,
		State:           req.State,
		CreatedAt:       time.Now(),
	})
	if err != nil {
		return AuthorizeResult{}, err
	}

	l.Info("consent required",
		slog.String("client_id", client.ID),
		slog.String("scope", scope))

	return AuthorizeResult{
		Action: ActionAskApproval,
		Client: client,
		Scopes: strings.Fields(scope),
		Nonce:  nonce,
	}, nil
}

// Approve consumes the consent nonce and either records the approval and
// grants, or reports the denial on the redirect.
func (s *AuthorizeService) Approve(ctx context.Context, owner identity.ResourceOwner, req ApproveRequest) (AuthorizeResult, error) {
	l := slogx.FromContext(ctx)

	scope, err := scopex.Normalize(req.Scope)
	if err != nil {
		return AuthorizeResult{}, identityErrorf("invalid scope in approval request")
	}

	// A missing nonce means the form was forged, replayed or expired. No
	// redirect target has been re-verified at this point, so this is fatal.
	nonce, err := s.Store.AuthorizeNonces().ConsumeAuthorizeNonce(ctx, req.ClientID, owner.ResourceOwnerID(), scope, req.Nonce)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthorizeResult{}, identityErrorf("approval nonce not found")
		}
		return AuthorizeResult{}, err
	}

	client, err := s.resolveClient(ctx, nonce.ClientID, nonce.RedirectURI)
	if err != nil {
		return AuthorizeResult{}, err
	}

	if !req.Approved {
		l.Info("consent denied", slog.String("client_id", client.ID))
		return errorRedirect(client, "access_denied", "not authorized by resource owner", nonce.State), nil
	}

	postedScope, err := scopex.Normalize(req.PostedScope)
	if err != nil || !scopex.Subset(postedScope, nonce.Scope) {
		return errorRedirect(client, "invalid_scope", "approved scope is not a subset of requested scope", nonce.State), nil
	}

	now := time.Now()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		approval, err := tx.Approvals().GetApproval(ctx, client.ID, owner.ResourceOwnerID())
		if errors.Is(err, store.ErrNotFound) {
			return tx.Approvals().AddApproval(ctx, domain.Approval{
				ClientID:        client.ID,
				ResourceOwnerID: owner.ResourceOwnerID(),
				Scope:           postedScope,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
		}
		if err != nil {
			return err
		}
		if scopex.Subset(postedScope, approval.Scope) {
			return nil
		}
		merged, err := scopex.Merge(approval.Scope, postedScope)
		if err != nil {
			return err
		}
		approval.Scope = merged
		approval.UpdatedAt = now
		return tx.Approvals().UpdateApproval(ctx, approval)
	})
	if err != nil {
		return AuthorizeResult{}, err
	}

	l.Info("consent recorded",
		slog.String("client_id", client.ID),
		slog.String("scope", postedScope))

	return s.grant(ctx, owner, client, nonce.ResponseType, nonce.RedirectURI, postedScope, nonce.State)
}

// resolveClient fetches the client by id, falling back to dynamic
// registration keyed by redirect_uri when unregistered clients are allowed.
func (s *AuthorizeService) resolveClient(ctx context.Context, clientID, redirectURI string) (domain.Client, error) {
	client, err := s.Store.Clients().GetClient(ctx, clientID)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Client{}, err
	}

	if !s.Settings.AllowUnregisteredClients {
		return domain.Client{}, identityErrorf("client not registered")
	}
	if redirectURI == "" {
		return domain.Client{}, identityErrorf("redirect_uri required for unregistered clients")
	}
	u, err := url.Parse(redirectURI)
	if err != nil || !u.IsAbs() || u.Host == "" || u.Fragment != "" {
		return domain.Client{}, identityErrorf("malformed redirect_uri")
	}

	client, err = s.Store.Clients().GetClientByRedirectURI(ctx, redirectURI)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Client{}, err
	}

	now := time.Now()
	client = domain.Client{
		ID:          clientID,
		Name:        u.Host,
		Description: "UNREGISTERED (" + u.Host + ")",
		RedirectURI: redirectURI,
		Type:        domain.ClientTypeUserAgentApplication,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Clients().AddClient(ctx, client); err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

// grant mints an access token for the approved scope and builds the success
// redirect. The code flow pre-mints the token and withholds it behind a
// single-use authorization code.
func (s *AuthorizeService) grant(ctx context.Context, owner identity.ResourceOwner, client domain.Client, responseType, requestRedirectURI, scope, state string) (AuthorizeResult, error) {
	l := slogx.FromContext(ctx)

	tokenValue, err := cryptox.RandomHex(cryptox.TokenSize128)
	if err != nil {
		return AuthorizeResult{}, err
	}
	token := domain.AccessToken{
		Token:                    tokenValue,
		IssueTime:                time.Now(),
		ClientID:                 client.ID,
		ResourceOwnerID:          owner.ResourceOwnerID(),
		ResourceOwnerDisplayName: owner.ResourceOwnerDisplayName(),
		Scope:                    scope,
		ExpiresIn:                s.Settings.AccessTokenExpiry,
	}
	if err := s.Store.AccessTokens().StoreAccessToken(ctx, token); err != nil {
		return AuthorizeResult{}, err
	}

	switch responseType {
	case "token":
		params := url.Values{}
		params.Set("access_token", token.Token)
		params.Set("expires_in", strconv.FormatInt(token.ExpiresIn, 10))
		params.Set("token_type", "bearer")
		params.Set("scope", token.Scope)
		if state != "" {
			params.Set("state", state)
		}
		l.Info("access token granted",
			slog.String("client_id", client.ID),
			slog.String("resource_owner_id", token.ResourceOwnerID),
			slog.String("scope", scope))
		return AuthorizeResult{
			Action:      ActionRedirect,
			RedirectURL: client.RedirectURI + "#" + params.Encode(),
		}, nil

	case "code":
		codeValue, err := cryptox.RandomHex(cryptox.TokenSize128)
		if err != nil {
			return AuthorizeResult{}, err
		}
		code := domain.AuthorizationCode{
			Code:      codeValue,
			IssueTime: token.IssueTime,
			ClientID:  client.ID,
			// Bound to the redirect_uri as requested, which may be
			// empty; the token endpoint must present the same value.
			RedirectURI: requestRedirectURI,
			AccessToken: token.Token,
		}
		if err := s.Store.AuthorizationCodes().StoreAuthorizationCode(ctx, code); err != nil {
			return AuthorizeResult{}, err
		}
		params := url.Values{}
		params.Set("code", code.Code)
		if state != "" {
			params.Set("state", state)
		}
		l.Info("authorization code granted",
			slog.String("client_id", client.ID),
			slog.String("resource_owner_id", token.ResourceOwnerID),
			slog.String("scope", scope))
		return AuthorizeResult{
			Action:      ActionRedirect,
			RedirectURL: client.RedirectURI + "?" + params.Encode(),
		}, nil
	}

	// Unreachable after profile validation, kept as a guard.
	return AuthorizeResult{}, identityErrorf("unsupported response_type")
}

func responseTypeAllowed(t domain.ClientType, responseType string) bool {
	for _, allowed := range t.AllowedResponseTypes() {
		if allowed == responseType {
			return true
		}
	}
	return false
}

// errorRedirect builds a protocol error carried on the client's verified
// redirect_uri as a URL fragment.
func errorRedirect(client domain.Client, code, description, state string) AuthorizeResult {
	params := url.Values{}
	params.Set("error", code)
	params.Set("error_description", description)
	if state != "" {
		params.Set("state", state)
	}
	return AuthorizeResult{
		Action:      ActionRedirect,
		RedirectURL: client.RedirectURI + "#" + params.Encode(),
	}
}
