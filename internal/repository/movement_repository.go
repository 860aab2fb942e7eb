package repository

import (
	"context"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"gorm.io/gorm"
)

// MovementRepository 库存流水仓库。流水只追加，故无更新/删除方法。
type MovementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

func (r *MovementRepository) Create(ctx context.Context, m *entity.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListByStock 某台账的流水，按时间倒序
func (r *MovementRepository) ListByStock(ctx context.Context, stockID string, page, size int) ([]entity.StockMovement, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.StockMovement{}).Where("stock_id = ?", stockID)
	var total int64
	query.Count(&total)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	var items []entity.StockMovement
	err := query.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&items).Error
	return items, total, err
}

// ListAll 全量流水，导出用
func (r *MovementRepository) ListAll(ctx context.Context) ([]entity.StockMovement, error) {
	var items []entity.StockMovement
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&items).Error
	return items, err
}

// ListByReference 按来源单据查流水
func (r *MovementRepository) ListByReference(ctx context.Context, refType, refID string) ([]entity.StockMovement, error) {
	var items []entity.StockMovement
	err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}
