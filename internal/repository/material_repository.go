package repository

import (
	"context"
	"errors"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"gorm.io/gorm"
)

// MaterialRepository 物料行仓库
type MaterialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*entity.MaterialLineItem, error) {
	var m entity.MaterialLineItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MaterialRepository) Create(ctx context.Context, m *entity.MaterialLineItem) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.MaterialLineItem{}).Error
}

// ListByRecord 批记录下全部物料行，按创建时间排列
func (r *MaterialRepository) ListByRecord(ctx context.Context, recordID string) ([]entity.MaterialLineItem, error) {
	var items []entity.MaterialLineItem
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}
