package entity

import (
	"time"
)

// Process 批记录工序（计时劳务步骤）。
// 挂有工人(Handlers)时自身的费率/计时字段失效，费用与状态均由工人集合推导。
type Process struct {
	ID          string  `json:"id" gorm:"primaryKey;type:uuid"`
	RecordID    string  `json:"record_id" gorm:"type:uuid;not null;index"`
	Name        string  `json:"name" gorm:"size:128;not null"`
	Description string  `json:"description" gorm:"type:text"`
	RatePerMin  float64 `json:"rate_per_min" gorm:"type:decimal(12,4);default:0"`
	Timer       Timer   `json:"timer" gorm:"embedded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Handlers []ProcessHandler `json:"handlers,omitempty" gorm:"foreignKey:ProcessID"`
}

func (Process) TableName() string {
	return "bmr_processes"
}

// ProcessHandler 工序工人，自带费率与独立计时器
type ProcessHandler struct {
	ID         string  `json:"id" gorm:"primaryKey;type:uuid"`
	ProcessID  string  `json:"process_id" gorm:"type:uuid;not null;index"`
	Name       string  `json:"name" gorm:"size:128;not null"`
	RatePerMin float64 `json:"rate_per_min" gorm:"type:decimal(12,4);default:0"`
	Timer      Timer   `json:"timer" gorm:"embedded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProcessHandler) TableName() string {
	return "bmr_process_handlers"
}

// EffectiveStatus 工序有效状态：有工人时全部完成才算 completed，
// 否则沿用自身计时器状态
func (p *Process) EffectiveStatus() string {
	if len(p.Handlers) > 0 {
		done := true
		for i := range p.Handlers {
			if p.Handlers[i].Timer.Status != TimerStatusCompleted {
				done = false
				break
			}
		}
		if done {
			return TimerStatusCompleted
		}
	}
	return p.Timer.Status
}

// Cost 工序当前人工费用。纯读取，每次调用基于计时器实时推算，不做缓存。
// 费率按分钟计，耗时为毫秒，故除以 60000。
func (p *Process) Cost(now time.Time) float64 {
	if len(p.Handlers) > 0 {
		var total float64
		for i := range p.Handlers {
			h := &p.Handlers[i]
			total += h.RatePerMin * float64(h.Timer.CurrentElapsed(now)) / 60000.0
		}
		return total
	}
	return p.RatePerMin * float64(p.Timer.CurrentElapsed(now)) / 60000.0
}
