// Package directory provides read-only access to the user directory the
// vaccination engine consults for names, emails and roles. User records are
// owned by the surrounding application and never mutated here.
package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaxtrack/vaxtrack/internal/platform/db"
	"github.com/vaxtrack/vaxtrack/pkg/vaxerr"
)

// User is a directory entry. Coren is set only for nurses.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CPF       string    `json:"cpf"`
	Role      string    `json:"role"`
	Coren     *string   `json:"coren,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserDirectory looks up users by id.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
}

type userDirectoryPG struct{ pool *pgxpool.Pool }

// NewUserDirectoryPG creates a Postgres-backed UserDirectory over app_user.
func NewUserDirectoryPG(pool *pgxpool.Pool) UserDirectory {
	return &userDirectoryPG{pool: pool}
}

func (d *userDirectoryPG) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var conn interface {
		QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	} = d.pool
	if tx := db.TxFromContext(ctx); tx != nil {
		conn = tx
	}

	var u User
	err := conn.QueryRow(ctx, `
		SELECT id, name, email, cpf, role, coren, created_at
		FROM app_user WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.CPF, &u.Role, &u.Coren, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, vaxerr.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// MockDirectory is an in-memory UserDirectory for tests.
type MockDirectory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*User
}

// NewMockDirectory creates an empty MockDirectory.
func NewMockDirectory() *MockDirectory {
	return &MockDirectory{users: make(map[uuid.UUID]*User)}
}

// Add registers a user and returns it.
func (m *MockDirectory) Add(u *User) *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.ID] = u
	return u
}

func (m *MockDirectory) GetUser(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, vaxerr.NotFound("user")
	}
	return u, nil
}
