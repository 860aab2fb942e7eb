package repository

import (
	"context"
	"errors"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"gorm.io/gorm"
)

// RecordRepository 批记录仓库
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// FindByID 根据ID查找批记录，带物料行与工序/工人
func (r *RecordRepository) FindByID(ctx context.Context, id string) (*entity.BatchRecord, error) {
	var rec entity.BatchRecord
	err := r.db.WithContext(ctx).
		Preload("Materials").
		Preload("Processes", func(db *gorm.DB) *gorm.DB {
			return db.Order("bmr_processes.created_at ASC")
		}).
		Preload("Processes.Handlers").
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Create 创建批记录（级联物料行与工序）
func (r *RecordRepository) Create(ctx context.Context, rec *entity.BatchRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// Save 整体保存
func (r *RecordRepository) Save(ctx context.Context, rec *entity.BatchRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

// UpdateStatus 状态CAS：仅当当前状态在 from 集合内才更新，返回是否生效。
// 完工流程靠它保证同一批记录至多进入一次。
func (r *RecordRepository) UpdateStatus(ctx context.Context, id string, from []string, to string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.BatchRecord{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListParams 列表查询参数
type ListParams struct {
	Status  string
	Keyword string
	Page    int
	Size    int
}

// List 分页查询批记录
func (r *RecordRepository) List(ctx context.Context, params ListParams) ([]entity.BatchRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.BatchRecord{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("record_no LIKE ? OR product_name LIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var recs []entity.BatchRecord
	err := query.Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&recs).Error
	return recs, total, err
}

// DeleteWorkingData 清除批记录的工作数据：物料行、工序及其工人。
// 完工清理与级联删除共用。
func (r *RecordRepository) DeleteWorkingData(ctx context.Context, recordID string) error {
	db := r.db.WithContext(ctx)
	sub := db.Model(&entity.Process{}).Select("id").Where("record_id = ?", recordID)
	if err := db.Where("process_id IN (?)", sub).Delete(&entity.ProcessHandler{}).Error; err != nil {
		return err
	}
	if err := db.Where("record_id = ?", recordID).Delete(&entity.Process{}).Error; err != nil {
		return err
	}
	return db.Where("record_id = ?", recordID).Delete(&entity.MaterialLineItem{}).Error
}

// Delete 删除批记录本体
func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.BatchRecord{}).Error
}
