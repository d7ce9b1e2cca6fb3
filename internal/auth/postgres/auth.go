package postgres

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/procurement-management/internal/auth"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentials(username string) (string, int64, bool, error) {
	var passwordHash string
	var userID int64
	var isActive bool
	query := `SELECT id, password_hash, is_active FROM users WHERE username = ? AND deleted_at IS NULL`

	row := r.db.Raw(query, username).Row()
	if err := row.Scan(&userID, &passwordHash, &isActive); err != nil {
		if err == sql.ErrNoRows {
			return "", 0, false, fmt.Errorf("user not found")
		}
		return "", 0, false, err
	}
	return passwordHash, userID, isActive, nil
}

// GetUserWithPermissions loads the user row and the union of group-granted
// and individually-granted permission codenames. Superusers skip the
// permission queries entirely; the authorization layer treats them as
// all-capable.
func (r *Repository) GetUserWithPermissions(userID int64) (*auth.User, error) {
	var user auth.User
	var firstName, lastName string

	query := `SELECT id, username, first_name, last_name, is_superuser, supervisor_id, worksite_id
	          FROM users WHERE id = ? AND is_active = true AND deleted_at IS NULL`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&user.ID, &user.Username, &firstName, &lastName,
		&user.IsSuperuser, &user.SupervisorID, &user.WorksiteID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}
	user.FullName = firstName + " " + lastName

	if user.IsSuperuser {
		return &user, nil
	}

	permQuery := `SELECT DISTINCT p.codename
	             FROM permissions p
	             JOIN group_permissions gp ON p.id = gp.permission_id
	             JOIN user_groups ug ON gp.group_id = ug.group_id
	             WHERE ug.user_id = ?
	             UNION
	             SELECT p.codename
	             FROM permissions p
	             JOIN user_permissions up ON p.id = up.permission_id
	             WHERE up.user_id = ?`

	rows, err := r.db.Raw(permQuery, userID, userID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var codename string
		if err := rows.Scan(&codename); err != nil {
			return nil, err
		}
		permissions = append(permissions, codename)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	user.Permissions = permissions
	return &user, nil
}
