// Package oauthx defines the OAuth2 wire-level response and error types
// shared by the token, verification and authorization endpoints.
package oauthx

import (
	"fmt"
	"net/http"

	"github.com/openvoot/groupgate/pkg/httpx"
)

// OAuth2 error codes per RFC 6749 and RFC 6750.
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidClient           = "invalid_client"
	ErrorCodeInvalidGrant            = "invalid_grant"
	ErrorCodeUnauthorizedClient      = "unauthorized_client"
	ErrorCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrorCodeInvalidScope            = "invalid_scope"
	ErrorCodeAccessDenied            = "access_denied"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"
	ErrorCodeInvalidToken            = "invalid_token"
	ErrorCodeInsufficientScope       = "insufficient_scope"
	ErrorCodeServerError             = "server_error"
)

// Error is a standard OAuth2 error response. Token-endpoint failures are
// written as JSON bodies; verification failures are surfaced through a
// WWW-Authenticate challenge instead (see WriteChallenge).
type Error struct {
	// StatusCode is the HTTP status code for this error.
	StatusCode int `json:"-"`

	// Code is the OAuth2 error code, e.g. "invalid_grant".
	Code string `json:"error"`

	// Description is a human-readable description of the error.
	Description string `json:"error_description"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteJSON writes e as an RFC 6749 JSON error response.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

// Predefined token-endpoint errors.
var (
	ErrInvalidRequest = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidClient = &Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidClient,
		Description: "client authentication failed",
	}

	ErrInvalidGrant = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidGrant,
		Description: "the authorization code is invalid, expired or already used",
	}

	ErrUnauthorizedClient = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnauthorizedClient,
		Description: "this client type is not allowed to use the token endpoint",
	}

	ErrUnsupportedGrantType = &Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedGrantType,
		Description: "the requested grant type is not supported",
	}

	ErrServerError = &Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "the authorization server encountered an unexpected condition",
	}
)

// TokenResponse is the successful token-endpoint response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// WriteChallenge writes an RFC 6750 WWW-Authenticate challenge for a failed
// bearer-token verification and a matching status code.
func WriteChallenge(w http.ResponseWriter, realm, code, description string) {
	w.Header().Set("WWW-Authenticate",
		fmt.Sprintf("Bearer realm=%q,error=%q,error_description=%q", realm, code, description))
	w.WriteHeader(http.StatusUnauthorized)
}
