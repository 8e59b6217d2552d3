package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/bbernstein/museo-go/internal/database/models"
)

// TagBindingRepository handles RFID tag to sequence bindings.
type TagBindingRepository struct {
	db *gorm.DB
}

// NewTagBindingRepository creates a new TagBindingRepository.
func NewTagBindingRepository(db *gorm.DB) *TagBindingRepository {
	return &TagBindingRepository{db: db}
}

// NormalizeTag returns the canonical form of an RFID tag id.
func NormalizeTag(tag string) string {
	return strings.ToUpper(strings.TrimSpace(tag))
}

// FindAll returns all bindings ordered by tag.
func (r *TagBindingRepository) FindAll(ctx context.Context) ([]models.TagBinding, error) {
	var bindings []models.TagBinding
	result := r.db.WithContext(ctx).
		Order("tag ASC").
		Find(&bindings)
	return bindings, result.Error
}

// FindByTag returns the binding for tag, or nil if the tag is unbound.
func (r *TagBindingRepository) FindByTag(ctx context.Context, tag string) (*models.TagBinding, error) {
	var binding models.TagBinding
	result := r.db.WithContext(ctx).First(&binding, "tag = ?", NormalizeTag(tag))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &binding, nil
}

// Upsert binds tag to sequence, replacing any existing binding.
func (r *TagBindingRepository) Upsert(ctx context.Context, tag, sequence string, label *string) (*models.TagBinding, error) {
	tag = NormalizeTag(tag)

	var binding models.TagBinding
	result := r.db.WithContext(ctx).First(&binding, "tag = ?", tag)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		binding = models.TagBinding{
			ID:       cuid.New(),
			Tag:      tag,
			Sequence: sequence,
			Label:    label,
		}
		if err := r.db.WithContext(ctx).Create(&binding).Error; err != nil {
			return nil, err
		}
		return &binding, nil
	} else if result.Error != nil {
		return nil, result.Error
	}

	binding.Sequence = sequence
	binding.Label = label
	if err := r.db.WithContext(ctx).Save(&binding).Error; err != nil {
		return nil, err
	}
	return &binding, nil
}

// Delete removes the binding for tag.
func (r *TagBindingRepository) Delete(ctx context.Context, tag string) error {
	return r.db.WithContext(ctx).Delete(&models.TagBinding{}, "tag = ?", NormalizeTag(tag)).Error
}
