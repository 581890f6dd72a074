package repository

import (
	"context"
	"fmt"

	"trekko-booking/internal/data/entity"
	"trekko-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindValidSession(ctx context.Context, token string) (*entity.Session, *entity.User, error)
}

type userRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewUserRepository(db database.PgxIface, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := `
		SELECT id, name, email, role, user_type, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u entity.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.UserType, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find user by ID",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return nil, fmt.Errorf("find user by ID %s: %w", id.String(), err)
	}

	return &u, nil
}

// FindValidSession resolves a bearer token to its session and owner. Expired
// and unknown tokens both return nil without error.
func (r *userRepository) FindValidSession(ctx context.Context, token string) (*entity.Session, *entity.User, error) {
	query := `
		SELECT s.id, s.user_id, s.token, s.expires_at, s.created_at,
		       u.id, u.name, u.email, u.role, u.user_type, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > NOW()
	`

	var s entity.Session
	var u entity.User
	err := r.db.QueryRow(ctx, query, token).Scan(
		&s.ID, &s.UserID, &s.Token, &s.ExpiresAt, &s.CreatedAt,
		&u.ID, &u.Name, &u.Email, &u.Role, &u.UserType, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find session", zap.Error(err))
		return nil, nil, fmt.Errorf("find session: %w", err)
	}

	return &s, &u, nil
}
