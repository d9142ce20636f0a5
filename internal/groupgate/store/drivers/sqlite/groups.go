package sqlite

import (
	"context"

	"github.com/openvoot/groupgate/internal/groupgate/domain"
)

type groupsRepo struct {
	db dbtx
}

func (r *groupsRepo) ListMemberships(ctx context.Context, resourceOwnerID string) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT g.id, g.title, g.description, m.role
		 FROM voot_members m
		 JOIN voot_groups g ON g.id = m.group_id
		 WHERE m.resource_owner_id = ?
		 ORDER BY g.title, g.id`,
		resourceOwnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.Group.ID, &m.Group.Title, &m.Group.Description, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *groupsRepo) GetMembership(ctx context.Context, resourceOwnerID, groupID string) (domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT g.id, g.title, g.description, m.role
		 FROM voot_members m
		 JOIN voot_groups g ON g.id = m.group_id
		 WHERE m.resource_owner_id = ? AND m.group_id = ?`,
		resourceOwnerID, groupID)

	var m domain.Membership
	err := row.Scan(&m.Group.ID, &m.Group.Title, &m.Group.Description, &m.Role)
	if err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	return m, nil
}

func (r *groupsRepo) ListMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT resource_owner_id, display_name, role
		 FROM voot_members WHERE group_id = ?
		 ORDER BY display_name, resource_owner_id`,
		groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GroupMember
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *groupsRepo) AddGroup(ctx context.Context, g domain.Group) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO voot_groups (id, title, description) VALUES (?, ?, ?)`,
		g.ID, g.Title, g.Description)
	return err
}

func (r *groupsRepo) AddMember(ctx context.Context, groupID, resourceOwnerID, displayName, role string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO voot_members (group_id, resource_owner_id, display_name, role)
		 VALUES (?, ?, ?, ?)`,
		groupID, resourceOwnerID, displayName, role)
	return err
}
