package checkout

import (
	"context"
	"strings"

	"github.com/eagleone34/kindercause-sub000/app/models"
	"gorm.io/gorm"
)

// FundraiserStore loads the fundraiser a checkout is started for.
type FundraiserStore interface {
	GetFundraiserBySlug(ctx context.Context, slug string) (*models.Fundraiser, error)
}

type gormFundraiserStore struct {
	db *gorm.DB
}

// NewFundraiserStore creates a read-only fundraiser store backed by GORM.
func NewFundraiserStore(db *gorm.DB) FundraiserStore {
	return &gormFundraiserStore{db: db}
}

func (s *gormFundraiserStore) GetFundraiserBySlug(ctx context.Context, slug string) (*models.Fundraiser, error) {
	var f models.Fundraiser
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}
