package repository

import (
	"context"
	"errors"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"gorm.io/gorm"
)

// StockRepository 库存台账仓库
type StockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) *StockRepository {
	return &StockRepository{db: db}
}

// FindByBarcode 按条码查找（业务键首选）
func (r *StockRepository) FindByBarcode(ctx context.Context, barcode string) (*entity.StockRecord, error) {
	return r.findOne(ctx, "barcode = ?", barcode)
}

// FindByPartNo 按零件号查找（业务键兜底）
func (r *StockRepository) FindByPartNo(ctx context.Context, partNo string) (*entity.StockRecord, error) {
	return r.findOne(ctx, "part_no = ?", partNo)
}

func (r *StockRepository) FindByID(ctx context.Context, id string) (*entity.StockRecord, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *StockRepository) findOne(ctx context.Context, query string, arg string) (*entity.StockRecord, error) {
	var s entity.StockRecord
	err := r.db.WithContext(ctx).Where(query, arg).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *StockRepository) Create(ctx context.Context, s *entity.StockRecord) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *StockRepository) Update(ctx context.Context, s *entity.StockRecord) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// StockListParams 库存列表参数
type StockListParams struct {
	Keyword string
	Page    int
	Size    int
}

func (r *StockRepository) List(ctx context.Context, params StockListParams) ([]entity.StockRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.StockRecord{})
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("barcode LIKE ? OR part_no LIKE ? OR product_name LIKE ?", kw, kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var items []entity.StockRecord
	err := query.Order("updated_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&items).Error
	return items, total, err
}
