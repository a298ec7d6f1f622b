package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/noteloom/noteloom/internal/identity/domain"
	"github.com/noteloom/noteloom/internal/identity/store"
)

type usersRepo struct {
	db *sql.DB
}

const userColumns = `id, username, nickname, COALESCE(email, ''), avatar,
	password_hash, status, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Nickname,
		&u.Email,
		&u.Avatar,
		&u.PasswordHash,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	var email any
	if u.Email != "" {
		email = u.Email
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, nickname, email, avatar, password_hash, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Nickname, email, u.Avatar, u.PasswordHash, u.Status,
	)
	if err != nil {
		return fmt.Errorf("create user %q: %w", u.Username, err)
	}
	return nil
}

func (r *usersRepo) AssignRole(ctx context.Context, userID, role string) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_roles (user_id, role_id)
		 SELECT ?, id FROM roles WHERE name = ?`,
		userID, role,
	)
	if err != nil {
		return fmt.Errorf("assign role %q: %w", role, err)
	}

	// Zero rows means the role name didn't resolve (or the pair already
	// existed); distinguish by checking the role exists at all.
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM roles WHERE name = ?`, role).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("assign role %q: %w", role, store.ErrNotFound)
		}
	}
	return nil
}

func (r *usersRepo) ListRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.name FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = ?
		 ORDER BY r.name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectStrings(rows)
}

func (r *usersRepo) ListPermissions(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT rp.permission FROM role_permissions rp
		 JOIN user_roles ur ON ur.role_id = rp.role_id
		 WHERE ur.user_id = ?
		 ORDER BY rp.permission`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectStrings(rows)
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
