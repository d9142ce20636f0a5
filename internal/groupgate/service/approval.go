package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/store"
	"github.com/openvoot/groupgate/pkg/slogx"
)

// ApprovalService lets resource owners review and revoke their consents.
type ApprovalService struct {
	Store store.Store
}

// ApprovalEntry is one consent joined with the client it was granted to.
type ApprovalEntry struct {
	Approval domain.Approval
	Client   domain.Client
}

// ListApprovals returns the owner's consents with the client metadata needed
// to render them.
func (s *ApprovalService) ListApprovals(ctx context.Context, resourceOwnerID string) ([]ApprovalEntry, error) {
	approvals, err := s.Store.Approvals().GetApprovals(ctx, resourceOwnerID)
	if err != nil {
		return nil, err
	}

	out := make([]ApprovalEntry, 0, len(approvals))
	for _, a := range approvals {
		client, err := s.Store.Clients().GetClient(ctx, a.ClientID)
		if errors.Is(err, store.ErrNotFound) {
			// Client deleted after consent; show the bare approval.
			client = domain.Client{ID: a.ClientID, Name: a.ClientID}
		} else if err != nil {
			return nil, err
		}
		out = append(out, ApprovalEntry{Approval: a, Client: client})
	}
	return out, nil
}

// RevokeApproval removes the owner's consent for a client entirely.
func (s *ApprovalService) RevokeApproval(ctx context.Context, resourceOwnerID, clientID string) error {
	if err := s.Store.Approvals().DeleteApproval(ctx, clientID, resourceOwnerID); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("approval revoked",
		slog.String("client_id", clientID),
		slog.String("resource_owner_id", resourceOwnerID))
	return nil
}
