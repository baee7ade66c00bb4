package accesscontrol

import (
	"context"
	"fmt"

	"camrent/internal/infra/dbx"
)

type Store interface {
	AssignRole(ctx context.Context, userID int64, role RoleName) error
	RemoveRole(ctx context.Context, userID int64, role RoleName) error
	GetUserRoles(ctx context.Context, userID int64) ([]Role, error)
	ResolveUserRole(ctx context.Context, userID int64) (RoleName, error)
	UserHasRole(ctx context.Context, userID int64, role RoleName) (bool, error)
	ListRoles(ctx context.Context) ([]Role, error)
	ListUserIDsWithRole(ctx context.Context, role RoleName) ([]int64, error)
}

type Repository struct {
	q dbx.Querier
}

func NewRepository(q dbx.Querier) Store {
	return &Repository{q: q}
}

func (r *Repository) AssignRole(ctx context.Context, userID int64, role RoleName) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	query := `
        INSERT INTO user_roles (user_id, role_id)
        SELECT $1, id FROM roles WHERE name = $2
        ON CONFLICT DO NOTHING
    `
	_, err := r.q.Exec(ctx, query, userID, role)
	return err
}

func (r *Repository) RemoveRole(ctx context.Context, userID int64, role RoleName) error {
	query := `
        DELETE FROM user_roles
        WHERE user_id = $1
          AND role_id = (SELECT id FROM roles WHERE name = $2)
    `
	result, err := r.q.Exec(ctx, query, userID, role)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("role not found for user_id=%d role=%s", userID, role)
	}
	return nil
}

func (r *Repository) GetUserRoles(ctx context.Context, userID int64) ([]Role, error) {
	query := `
        SELECT r.id, r.name, r.description, r.created_at, r.updated_at
        FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id = $1
    `
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ResolveUserRole returns the single role that governs the user's requests:
// the highest-priority role held, or customer when no role rows exist.
func (r *Repository) ResolveUserRole(ctx context.Context, userID int64) (RoleName, error) {
	roles, err := r.GetUserRoles(ctx, userID)
	if err != nil {
		return "", err
	}

	names := make([]RoleName, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return Resolve(names), nil
}

func (r *Repository) UserHasRole(ctx context.Context, userID int64, role RoleName) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS (
            SELECT 1
            FROM user_roles ur
            JOIN roles r ON ur.role_id = r.id
            WHERE ur.user_id = $1 AND r.name = $2
        )
    `
	err := r.q.QueryRow(ctx, query, userID, role).Scan(&exists)
	return exists, err
}

// ListUserIDsWithRole returns the accounts that hold the given role, used to
// fan back-office notifications out to the staff.
func (r *Repository) ListUserIDsWithRole(ctx context.Context, role RoleName) ([]int64, error) {
	query := `
        SELECT ur.user_id
        FROM user_roles ur
        JOIN roles r ON ur.role_id = r.id
        WHERE r.name = $1
    `
	rows, err := r.q.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	query := `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
