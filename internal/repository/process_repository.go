package repository

import (
	"context"
	"errors"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"gorm.io/gorm"
)

// ProcessRepository 工序与工人仓库
type ProcessRepository struct {
	db *gorm.DB
}

func NewProcessRepository(db *gorm.DB) *ProcessRepository {
	return &ProcessRepository{db: db}
}

// FindByID 根据ID查找工序，带工人
func (r *ProcessRepository) FindByID(ctx context.Context, id string) (*entity.Process, error) {
	var p entity.Process
	err := r.db.WithContext(ctx).
		Preload("Handlers").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProcessRepository) Create(ctx context.Context, p *entity.Process) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update 保存工序自身字段（不触达工人集合）
func (r *ProcessRepository) Update(ctx context.Context, p *entity.Process) error {
	return r.db.WithContext(ctx).Omit("Handlers").Save(p).Error
}

// Delete 删除工序及其工人
func (r *ProcessRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("process_id = ?", id).Delete(&entity.ProcessHandler{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.Process{}).Error
}

// FindHandlerByID 根据ID查找工人
func (r *ProcessRepository) FindHandlerByID(ctx context.Context, id string) (*entity.ProcessHandler, error) {
	var h entity.ProcessHandler
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *ProcessRepository) CreateHandler(ctx context.Context, h *entity.ProcessHandler) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *ProcessRepository) UpdateHandler(ctx context.Context, h *entity.ProcessHandler) error {
	return r.db.WithContext(ctx).Save(h).Error
}

func (r *ProcessRepository) DeleteHandler(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.ProcessHandler{}).Error
}
