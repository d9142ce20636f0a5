package service

import (
	"context"
	"errors"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
	"github.com/openvoot/groupgate/internal/groupgate/store"
)

// ErrNotGroupMember is returned when the caller asks for the members of a
// group they do not belong to.
var ErrNotGroupMember = errors.New("not_a_member")

// VootService serves the protected group directory in the VOOT wire format.
type VootService struct {
	Store store.Store
}

// GroupEntry is one group of a membership listing, flattened for the wire.
type GroupEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Role        string `json:"voot_membership_role"`
}

// GroupsPage is a paged membership listing.
type GroupsPage struct {
	StartIndex   int          `json:"startIndex"`
	TotalResults int          `json:"totalResults"`
	ItemsPerPage int          `json:"itemsPerPage"`
	Entry        []GroupEntry `json:"entry"`
}

// MembersPage is a paged group member listing.
type MembersPage struct {
	StartIndex   int                  `json:"startIndex"`
	TotalResults int                  `json:"totalResults"`
	ItemsPerPage int                  `json:"itemsPerPage"`
	Entry        []domain.GroupMember `json:"entry"`
}

// ListMemberships returns the groups the resource owner belongs to,
// windowed by startIndex/count. A non-positive count means no limit.
func (s *VootService) ListMemberships(ctx context.Context, resourceOwnerID string, startIndex, count int) (GroupsPage, error) {
	memberships, err := s.Store.Groups().ListMemberships(ctx, resourceOwnerID)
	if err != nil {
		return GroupsPage{}, err
	}

	entries := make([]GroupEntry, 0, len(memberships))
	for _, m := range memberships {
		entries = append(entries, GroupEntry{
			ID:          m.Group.ID,
			Title:       m.Group.Title,
			Description: m.Group.Description,
			Role:        m.Role,
		})
	}

	total := len(entries)
	entries = window(entries, startIndex, count)
	return GroupsPage{
		StartIndex:   clampStart(startIndex, total),
		TotalResults: total,
		ItemsPerPage: len(entries),
		Entry:        entries,
	}, nil
}

// GetGroupMembers lists the members of a group the caller belongs to.
// Callers outside the group get ErrNotGroupMember regardless of whether the
// group exists, so the directory does not leak group ids.
func (s *VootService) GetGroupMembers(ctx context.Context, resourceOwnerID, groupID string, startIndex, count int) (MembersPage, error) {
	_, err := s.Store.Groups().GetMembership(ctx, resourceOwnerID, groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return MembersPage{}, ErrNotGroupMember
		}
		return MembersPage{}, err
	}

	members, err := s.Store.Groups().ListMembers(ctx, groupID)
	if err != nil {
		return MembersPage{}, err
	}

	total := len(members)
	members = window(members, startIndex, count)
	return MembersPage{
		StartIndex:   clampStart(startIndex, total),
		TotalResults: total,
		ItemsPerPage: len(members),
		Entry:        members,
	}, nil
}

func window[T any](items []T, startIndex, count int) []T {
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= len(items) {
		return nil
	}
	items = items[startIndex:]
	if count > 0 && count < len(items) {
		items = items[:count]
	}
	return items
}

func clampStart(startIndex, total int) int {
	if startIndex < 0 {
		return 0
	}
	if startIndex > total {
		return total
	}
	return startIndex
}
