package entity

import (
	"time"
)

// RecordStatus 批记录状态。completing 为完工流程持有的中间状态，
// complete 为终态，仅完工流程可置入。
const (
	RecordStatusActive     = "active"
	RecordStatusInProgress = "inprogress"
	RecordStatusInactive   = "inactive"
	RecordStatusCompleting = "completing"
	RecordStatusComplete   = "complete"
)

// BatchRecord 生产批记录(BMR)
type BatchRecord struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid"`
	RecordNo    string     `json:"record_no" gorm:"size:50;not null;uniqueIndex"`
	InitialCode string     `json:"initial_code" gorm:"size:32;not null"`
	ProductName string     `json:"product_name" gorm:"size:128;not null"`
	AssemblyID  string     `json:"assembly_id" gorm:"size:64;index"`
	BatchSize   float64    `json:"batch_size" gorm:"type:decimal(12,4);default:0"`
	Unit        string     `json:"unit" gorm:"size:20;default:pcs"`
	MfgDate     *time.Time `json:"mfg_date"`
	ExpDate     *time.Time `json:"exp_date"`
	Status      string     `json:"status" gorm:"size:16;not null;default:active"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedBy   string     `json:"created_by" gorm:"size:64"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Materials []MaterialLineItem `json:"materials,omitempty" gorm:"foreignKey:RecordID"`
	Processes []Process          `json:"processes,omitempty" gorm:"foreignKey:RecordID"`
}

func (BatchRecord) TableName() string {
	return "bmr_batch_records"
}

// AllProcessesCompleted 完工前置条件：所有工序有效状态均为 completed
func (r *BatchRecord) AllProcessesCompleted() bool {
	for i := range r.Processes {
		if r.Processes[i].EffectiveStatus() != TimerStatusCompleted {
			return false
		}
	}
	return true
}
