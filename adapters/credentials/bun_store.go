package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
	"github.com/Gladiston-Porto/Trading-APP-sub001/ports"
)

// UserModel is the Bun model for identities.
type UserModel struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           string    `bun:"id,pk"`
	Email        string    `bun:"email,notnull,unique"`
	Name         string    `bun:"name,notnull"`
	Role         core.Role `bun:"role,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// BunStore implements ports.CredentialStore using Bun.
type BunStore struct {
	db *bun.DB
}

var _ ports.CredentialStore = (*BunStore)(nil)

// NewBunStore creates a new repository.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// CreateSchema creates the users table if it does not exist.
func (r *BunStore) CreateSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*UserModel)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// FindByEmail implements ports.CredentialStore.
func (r *BunStore) FindByEmail(ctx context.Context, email string) (*core.Identity, error) {
	var model UserModel
	err := r.db.NewSelect().
		Model(&model).
		Where("email = ?", core.NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return model.toIdentity(), nil
}

// FindByID implements ports.CredentialStore.
func (r *BunStore) FindByID(ctx context.Context, id string) (*core.Identity, error) {
	var model UserModel
	err := r.db.NewSelect().
		Model(&model).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return model.toIdentity(), nil
}

// Create implements ports.CredentialStore.
func (r *BunStore) Create(ctx context.Context, identity *core.Identity) (*core.Identity, error) {
	model := fromIdentity(identity)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now

	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateEmail, model.Email)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return model.toIdentity(), nil
}

// Delete implements ports.CredentialStore.
func (r *BunStore) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().
		Model((*UserModel)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (m *UserModel) toIdentity() *core.Identity {
	return &core.Identity{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		Role:         m.Role,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fromIdentity(i *core.Identity) *UserModel {
	return &UserModel{
		ID:           i.ID,
		Email:        core.NormalizeEmail(i.Email),
		Name:         i.Name,
		Role:         i.Role,
		PasswordHash: i.PasswordHash,
	}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return fmt.Errorf("select user: %w", err)
}

// isUniqueViolation matches the unique-constraint messages of SQLite and Postgres.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed: unique")
}
