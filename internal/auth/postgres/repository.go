package postgres

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errors "github.com/frahmantamala/donation-service/internal"
	"github.com/frahmantamala/donation-service/internal/auth"
	"github.com/frahmantamala/donation-service/internal/core/datamodel/user"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.RepositoryAPI {
	return &Repository{
		db: db,
	}
}

// GetByEmail returns ErrInvalidCredentials when no account matches.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*user.AdminUser, error) {
	var u user.AdminUser
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*user.AdminUser, error) {
	var u user.AdminUser
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}
	return &u, nil
}

// Upsert inserts the admin or, on an email clash, replaces its name, hash, role and active flag.
func (r *Repository) Upsert(ctx context.Context, u *user.AdminUser) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "password_hash", "role", "is_active", "updated_at"}),
		}).
		Create(u).Error
}
