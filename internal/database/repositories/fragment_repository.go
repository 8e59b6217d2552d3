package repositories

import (
	"context"
	"time"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/bbernstein/museo-go/internal/database/models"
)

// FragmentRepository handles found fragment records.
type FragmentRepository struct {
	db *gorm.DB
}

// NewFragmentRepository creates a new FragmentRepository.
func NewFragmentRepository(db *gorm.DB) *FragmentRepository {
	return &FragmentRepository{db: db}
}

// Create stores a fragment, assigning an ID and found time when missing.
func (r *FragmentRepository) Create(ctx context.Context, fragment *models.Fragment) error {
	if fragment.ID == "" {
		fragment.ID = cuid.New()
	}
	if fragment.FoundAt.IsZero() {
		fragment.FoundAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(fragment).Error
}

// FindAll returns the most recent fragments first. A limit of 0 returns all.
func (r *FragmentRepository) FindAll(ctx context.Context, limit int) ([]models.Fragment, error) {
	var fragments []models.Fragment
	query := r.db.WithContext(ctx).Order("found_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	result := query.Find(&fragments)
	return fragments, result.Error
}

// FindBySequence returns the fragments found in a sequence, oldest first.
func (r *FragmentRepository) FindBySequence(ctx context.Context, sequence string) ([]models.Fragment, error) {
	var fragments []models.Fragment
	result := r.db.WithContext(ctx).
		Where("sequence = ?", sequence).
		Order("found_at ASC").
		Find(&fragments)
	return fragments, result.Error
}

// Count returns the number of fragments stored.
func (r *FragmentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Fragment{}).Count(&count)
	return count, result.Error
}
