package repository

import (
	"context"
	"errors"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"gorm.io/gorm"
)

// LotRepository 组件批次仓库
type LotRepository struct {
	db *gorm.DB
}

func NewLotRepository(db *gorm.DB) *LotRepository {
	return &LotRepository{db: db}
}

// FindByBarcode 按条码定位批次
func (r *LotRepository) FindByBarcode(ctx context.Context, barcode string) (*entity.ComponentLot, error) {
	var lot entity.ComponentLot
	err := r.db.WithContext(ctx).Where("barcode = ?", barcode).First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

func (r *LotRepository) Create(ctx context.Context, lot *entity.ComponentLot) error {
	return r.db.WithContext(ctx).Create(lot).Error
}

func (r *LotRepository) Update(ctx context.Context, lot *entity.ComponentLot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// ListByStock 某台账下全部批次
func (r *LotRepository) ListByStock(ctx context.Context, stockID string) ([]entity.ComponentLot, error) {
	var lots []entity.ComponentLot
	err := r.db.WithContext(ctx).
		Where("stock_id = ?", stockID).
		Order("created_at ASC").
		Find(&lots).Error
	return lots, err
}
