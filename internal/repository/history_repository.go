package repository

import (
	"context"
	"errors"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"gorm.io/gorm"
)

// HistoryRepository 完工归档仓库。快照不可变，只有创建与读取。
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Create(ctx context.Context, h *entity.HistoryEntry) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *HistoryRepository) FindByID(ctx context.Context, id string) (*entity.HistoryEntry, error) {
	var h entity.HistoryEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// FindByRecord 某批记录的归档快照
func (r *HistoryRepository) FindByRecord(ctx context.Context, recordID string) (*entity.HistoryEntry, error) {
	var h entity.HistoryEntry
	err := r.db.WithContext(ctx).Where("record_id = ?", recordID).First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *HistoryRepository) List(ctx context.Context, page, size int) ([]entity.HistoryEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.HistoryEntry{})
	var total int64
	query.Count(&total)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	var items []entity.HistoryEntry
	err := query.Order("completed_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&items).Error
	return items, total, err
}

// ListAll 全量归档，导出用
func (r *HistoryRepository) ListAll(ctx context.Context) ([]entity.HistoryEntry, error) {
	var items []entity.HistoryEntry
	err := r.db.WithContext(ctx).Order("completed_at ASC").Find(&items).Error
	return items, err
}
