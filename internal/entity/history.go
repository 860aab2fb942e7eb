package entity

import (
	"time"
)

// HistoryEntry 完工归档快照，创建后不再变更
type HistoryEntry struct {
	ID           string  `json:"id" gorm:"primaryKey;type:uuid"`
	RecordID     string  `json:"record_id" gorm:"type:uuid;not null;index"`
	RecordNo     string  `json:"record_no" gorm:"size:50;not null"`
	ProductName  string  `json:"product_name" gorm:"size:128"`
	BatchSize    float64 `json:"batch_size" gorm:"type:decimal(12,4)"`
	MaterialCost float64 `json:"material_cost" gorm:"type:decimal(12,4);default:0"`
	LaborCost    float64 `json:"labor_cost" gorm:"type:decimal(12,4);default:0"`
	TotalPrice   float64 `json:"total_price" gorm:"type:decimal(12,4);default:0"`
	// Snapshot 物料行与工序/工人费用明细的JSON快照
	Snapshot    string    `json:"snapshot" gorm:"type:text"`
	CompletedBy string    `json:"completed_by" gorm:"size:64"`
	CompletedAt time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (HistoryEntry) TableName() string {
	return "bmr_history_entries"
}
