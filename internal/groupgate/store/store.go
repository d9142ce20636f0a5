// Package store defines the storage contract the authorization engine calls
// for all durable reads and writes. Concrete drivers live under
// store/drivers; the engine never touches a database directly.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface, exposing one sub-repository per
// record kind. Single-use semantics (nonces, codes) are expressed as
// delete-if-present primitives that fail with ErrNotFound when the row is
// already gone, so concurrent consumers race safely on the database rather
// than on in-process state.
type Store interface {
	Clients() Clients
	AuthorizeNonces() AuthorizeNonces
	AuthorizationCodes() AuthorizationCodes
	AccessTokens() AccessTokens
	Approvals() Approvals
	Groups() Groups

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repositories but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Clients interface {
	// GetClient fetches a client by its id.
	GetClient(ctx context.Context, id string) (domain.Client, error)

	// GetClientByRedirectURI fetches the client registered for a redirect
	// target; used to resolve dynamically registered clients.
	GetClientByRedirectURI(ctx context.Context, redirectURI string) (domain.Client, error)

	// ListClients returns all clients ordered by creation date (newest first).
	ListClients(ctx context.Context) ([]domain.Client, error)

	// AddClient inserts a new client; ErrAlreadyExists when the id is taken.
	AddClient(ctx context.Context, c domain.Client) error

	// UpdateClient replaces the mutable fields of an existing client.
	UpdateClient(ctx context.Context, c domain.Client) error

	// DeleteClient removes a client; ErrNotFound when absent.
	DeleteClient(ctx context.Context, id string) error
}

type AuthorizeNonces interface {
	// StoreAuthorizeNonce persists a freshly minted consent nonce with the
	// request parameters it covers.
	StoreAuthorizeNonce(ctx context.Context, n domain.AuthorizeNonce) error

	// ConsumeAuthorizeNonce atomically deletes the nonce matching all of
	// (clientID, resourceOwnerID, scope, nonce) and returns it. ErrNotFound
	// means the nonce was never issued or was already consumed.
	ConsumeAuthorizeNonce(ctx context.Context, clientID, resourceOwnerID, scope, nonce string) (domain.AuthorizeNonce, error)

	// DeleteStaleAuthorizeNonces removes nonces created before the cutoff
	// whose consent prompt was abandoned (housekeeping).
	DeleteStaleAuthorizeNonces(ctx context.Context, before time.Time) error
}

type AuthorizationCodes interface {
	// StoreAuthorizationCode persists a freshly minted authorization code.
	StoreAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error

	// GetAuthorizationCode fetches a code by value and the redirect_uri it
	// was bound to at issue time (empty string matches empty string).
	GetAuthorizationCode(ctx context.Context, code, redirectURI string) (domain.AuthorizationCode, error)

	// DeleteAuthorizationCode removes a code. ErrNotFound signals the code
	// was already redeemed; callers rely on this for replay protection.
	DeleteAuthorizationCode(ctx context.Context, code, redirectURI string) error

	// DeleteExpiredAuthorizationCodes removes codes past their lifetime
	// (housekeeping).
	DeleteExpiredAuthorizationCodes(ctx context.Context) error
}

type AccessTokens interface {
	// StoreAccessToken persists a newly minted token. Tokens are immutable.
	StoreAccessToken(ctx context.Context, t domain.AccessToken) error

	// GetAccessToken fetches a token by its opaque value.
	GetAccessToken(ctx context.Context, token string) (domain.AccessToken, error)

	// DeleteExpiredAccessTokens removes tokens past issue_time+expires_in
	// (housekeeping; also reclaims tokens whose code was never exchanged).
	DeleteExpiredAccessTokens(ctx context.Context) error
}

type Approvals interface {
	// GetApproval fetches the consent record for a client/owner pair.
	GetApproval(ctx context.Context, clientID, resourceOwnerID string) (domain.Approval, error)

	// GetApprovals lists all consent records of a resource owner.
	GetApprovals(ctx context.Context, resourceOwnerID string) ([]domain.Approval, error)

	// AddApproval inserts a new consent record.
	AddApproval(ctx context.Context, a domain.Approval) error

	// UpdateApproval replaces the scope of an existing consent record.
	UpdateApproval(ctx context.Context, a domain.Approval) error

	// DeleteApproval revokes consent entirely; ErrNotFound when absent.
	DeleteApproval(ctx context.Context, clientID, resourceOwnerID string) error
}

type Groups interface {
	// ListMemberships returns the groups a resource owner belongs to,
	// ordered by group title.
	ListMemberships(ctx context.Context, resourceOwnerID string) ([]domain.Membership, error)

	// GetMembership returns the owner's membership of one group;
	// ErrNotFound when the owner is not a member.
	GetMembership(ctx context.Context, resourceOwnerID, groupID string) (domain.Membership, error)

	// ListMembers returns all members of a group ordered by display name.
	ListMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error)

	// AddGroup inserts a group (admin/seed use).
	AddGroup(ctx context.Context, g domain.Group) error

	// AddMember adds a resource owner to a group with a role.
	AddMember(ctx context.Context, groupID, resourceOwnerID, displayName, role string) error
}
