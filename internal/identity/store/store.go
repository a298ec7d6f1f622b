package store

import (
	"context"
	"errors"

	"github.com/noteloom/noteloom/internal/identity/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the user-repository boundary. The wider content platform owns
// its own persistence; the identity service only ever needs accounts and
// their authorization snapshot.
type Store interface {
	Users() Users

	Ping(ctx context.Context) error
	Close() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	CreateUser(ctx context.Context, u domain.User) error

	// AssignRole attaches a role by name; unknown role names error.
	AssignRole(ctx context.Context, userID, role string) error

	// ListRoles and ListPermissions resolve the authorization snapshot
	// embedded into claims at issuance time.
	ListRoles(ctx context.Context, userID string) ([]string, error)
	ListPermissions(ctx context.Context, userID string) ([]string, error)
}
