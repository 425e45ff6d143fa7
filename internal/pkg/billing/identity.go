package billing

import (
	"context"
	"errors"

	"github.com/eagleone34/kindercause-sub000/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentityStore resolves auth identities by email.
type IdentityStore interface {
	// FindOrCreateByEmail returns the user for email, creating an inactive
	// one when none exists. Concurrent callers always get the same row.
	FindOrCreateByEmail(ctx context.Context, email, name string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

type gormIdentityStore struct {
	db *gorm.DB
}

// NewIdentityStore creates an identity store backed by the users table.
func NewIdentityStore(db *gorm.DB) IdentityStore {
	return &gormIdentityStore{db: db}
}

func (s *gormIdentityStore) FindOrCreateByEmail(ctx context.Context, email, name string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, errors.New("email is required")
	}

	// Soft-deleted rows still hold the unique email, so lookups must see them.
	db := s.db.WithContext(ctx)
	var existing models.User
	err := db.Unscoped().Where("email = ?", email).First(&existing).Error
	if err == nil {
		return s.restore(ctx, &existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err := models.NewProvisionedUser(email, name)
	if err != nil {
		return nil, err
	}
	// Another delivery may have inserted the same email in the meantime.
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(user).Error; err != nil {
		return nil, err
	}

	var stored models.User
	if err := db.Unscoped().Where("email = ?", email).First(&stored).Error; err != nil {
		return nil, err
	}
	return s.restore(ctx, &stored)
}

// restore clears deleted_at on a soft-deleted identity.
func (s *gormIdentityStore) restore(ctx context.Context, u *models.User) (*models.User, error) {
	if !u.DeletedAt.Valid {
		return u, nil
	}
	if err := s.db.WithContext(ctx).Unscoped().Model(&models.User{}).
		Where("id = ?", u.ID).Update("deleted_at", nil).Error; err != nil {
		return nil, err
	}
	log.Infow("[Billing] restored soft-deleted user", "user_id", u.ID)
	u.DeletedAt = gorm.DeletedAt{}
	return u, nil
}

func (s *gormIdentityStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
