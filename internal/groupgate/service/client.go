package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/store"
	"github.com/openvoot/groupgate/pkg/slogx"
)

// ClientService implements administrative client registration.
type ClientService struct {
	Store store.Store
}

func (s *ClientService) GetClient(ctx context.Context, id string) (domain.Client, error) {
	return s.Store.Clients().GetClient(ctx, id)
}

func (s *ClientService) ListClients(ctx context.Context) ([]domain.Client, error) {
	return s.Store.Clients().ListClients(ctx)
}

func (s *ClientService) AddClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	if err := validateClient(c); err != nil {
		return domain.Client{}, err
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.Store.Clients().AddClient(ctx, c); err != nil {
		return domain.Client{}, err
	}
	slogx.FromContext(ctx).Info("client registered",
		slog.String("client_id", c.ID),
		slog.String("type", string(c.Type)))
	return c, nil
}

func (s *ClientService) UpdateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	if err := validateClient(c); err != nil {
		return domain.Client{}, err
	}
	existing, err := s.Store.Clients().GetClient(ctx, c.ID)
	if err != nil {
		return domain.Client{}, err
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now()
	if err := s.Store.Clients().UpdateClient(ctx, c); err != nil {
		return domain.Client{}, err
	}
	slogx.FromContext(ctx).Info("client updated", slog.String("client_id", c.ID))
	return c, nil
}

func (s *ClientService) DeleteClient(ctx context.Context, id string) error {
	if err := s.Store.Clients().DeleteClient(ctx, id); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("client deleted", slog.String("client_id", id))
	return nil
}

func validateClient(c domain.Client) error {
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}
	if len(c.ID) > MaxClientIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", ErrInvalidRequest, MaxClientIDLength)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown client type", ErrInvalidRequest)
	}
	if c.Type == domain.ClientTypeUserAgentApplication && c.Secret != "" {
		return fmt.Errorf("%w: user agent based clients cannot hold a secret", ErrInvalidRequest)
	}
	u, err := url.Parse(c.RedirectURI)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: redirect_uri must be an absolute URL", ErrInvalidRequest)
	}
	if u.Fragment != "" {
		return fmt.Errorf("%w: redirect_uri must not contain a fragment", ErrInvalidRequest)
	}
	return nil
}
