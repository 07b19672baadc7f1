package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/ids"
)

// Registry manages user accounts.
type Registry interface {
	Create(ctx context.Context, email, fullName, password string, role Role, hubID string) (User, error)
	Get(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Authenticate(ctx context.Context, email, password string) (User, error)
	List(ctx context.Context) ([]User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// InMemory implements Registry with in-process concurrency safety.
type InMemory struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string
}

// NewInMemory creates an empty user registry.
func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (r *InMemory) Create(ctx context.Context, email, fullName, password string, role Role, hubID string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return User{}, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}
	if role == RoleUnknown {
		return User{}, fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return User{}, fmt.Errorf("%w: email %s", ErrAlreadyExists, email)
	}
	u := &User{
		ID:           ids.New(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         role,
		HubID:        strings.TrimSpace(hubID),
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	r.users[u.ID] = u
	r.byEmail[email] = u.ID
	return *u, nil
}

func (r *InMemory) Get(ctx context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

func (r *InMemory) FindByEmail(ctx context.Context, email string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return *r.users[id], nil
}

func (r *InMemory) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := r.FindByEmail(ctx, email)
	if err != nil {
		return User{}, ErrUnauthorized
	}
	if !u.Active {
		return User{}, ErrUnauthorized
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return User{}, ErrUnauthorized
	}
	r.mu.Lock()
	if stored, ok := r.users[u.ID]; ok {
		stored.LastLoginAt = time.Now().UTC()
		u = *stored
	}
	r.mu.Unlock()
	return u, nil
}

func (r *InMemory) List(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *InMemory) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Active = active
	return nil
}
