package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GroupRepository handles database operations for course groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// GetGroup retrieves a group by ID.
func (r *GroupRepository) GetGroup(ctx context.Context, id int64) (*Group, error) {
	var group Group
	query := r.db.Rebind(`SELECT id, course_id, name, picture, hidepicture FROM course_groups WHERE id = ?`)
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &group, nil
}

// UserGroups retrieves the groups of a course the user belongs to, limited to
// groupingID when it is non-zero.
func (r *GroupRepository) UserGroups(ctx context.Context, courseID, userID, groupingID int64) ([]*Group, error) {
	var groups []*Group
	query := `SELECT g.id, g.course_id, g.name, g.picture, g.hidepicture
		FROM course_groups g
		JOIN groups_members m ON m.group_id = g.id
		WHERE g.course_id = ? AND m.userid = ?`
	args := []interface{}{courseID, userID}
	if groupingID != 0 {
		query += ` AND g.id IN (SELECT group_id FROM groupings_groups WHERE grouping_id = ?)`
		args = append(args, groupingID)
	}
	query += ` ORDER BY g.name`
	if err := r.db.SelectContext(ctx, &groups, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get user groups: %w", err)
	}
	return groups, nil
}

// IsMember reports whether the user belongs to the group.
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM groups_members WHERE group_id = ? AND userid = ?`)
	if err := r.db.GetContext(ctx, &n, query, groupID, userID); err != nil {
		return false, fmt.Errorf("failed to check group membership: %w", err)
	}
	return n > 0, nil
}
