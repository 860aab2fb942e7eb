package entity

import (
	"time"
)

// MovementType 库存流水方向
const (
	MovementTypeIn  = "in"
	MovementTypeOut = "out"
)

// ReferenceType 流水来源单据类型
const (
	RefTypeCompletion = "completion" // 批记录完工
	RefTypeReceipt    = "receipt"    // 入库单
)

// StockRecord 库存台账（成品或原料），业务键优先条码，其次零件号
type StockRecord struct {
	ID            string  `json:"id" gorm:"primaryKey;type:uuid"`
	Barcode       string  `json:"barcode" gorm:"size:64;not null;uniqueIndex"`
	PartNo        string  `json:"part_no" gorm:"size:64;index"`
	ProductName   string  `json:"product_name" gorm:"size:128"`
	LotNo         string  `json:"lot_no" gorm:"size:50"`
	Quantity      float64 `json:"quantity" gorm:"type:decimal(12,4);not null;default:0"`
	ReservedQty   float64 `json:"reserved_qty" gorm:"type:decimal(12,4);default:0"`
	AvgUnitPrice  float64 `json:"avg_unit_price" gorm:"type:decimal(12,4);default:0"`
	TotalReceived float64 `json:"total_received" gorm:"type:decimal(12,4);default:0"`
	Unit          string  `json:"unit" gorm:"size:20;not null;default:pcs"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StockRecord) TableName() string {
	return "stock_records"
}

// ComponentLot 序列化组件批次，按条码唯一定位。
// ReservedQty 为预留量，分配只扣预留，实物扣减在上游预留时已发生。
type ComponentLot struct {
	ID          string  `json:"id" gorm:"primaryKey;type:uuid"`
	StockID     string  `json:"stock_id" gorm:"type:uuid;not null;index"`
	LotNo       string  `json:"lot_no" gorm:"size:50"`
	Barcode     string  `json:"barcode" gorm:"size:64;not null;uniqueIndex"`
	ReservedQty float64 `json:"reserved_qty" gorm:"type:decimal(12,4);not null;default:0"`
	OnHandQty   float64 `json:"on_hand_qty" gorm:"type:decimal(12,4);default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ComponentLot) TableName() string {
	return "stock_component_lots"
}

// StockMovement 库存流水，只追加，本引擎不更新不删除
type StockMovement struct {
	ID            string  `json:"id" gorm:"primaryKey;type:uuid"`
	StockID       string  `json:"stock_id" gorm:"type:uuid;index"`
	LotID         string  `json:"lot_id" gorm:"type:uuid;index"`
	Type          string  `json:"type" gorm:"size:8;not null"`
	Quantity      float64 `json:"quantity" gorm:"type:decimal(12,4);not null"`
	RemainingQty  float64 `json:"remaining_qty" gorm:"type:decimal(12,4)"`
	ReferenceType string  `json:"reference_type" gorm:"size:32;not null"`
	ReferenceID   string  `json:"reference_id" gorm:"size:64;not null;index"`
	ReferenceCode string  `json:"reference_code" gorm:"size:50"`
	CreatedBy     string  `json:"created_by" gorm:"size:64"`

	CreatedAt time.Time `json:"created_at"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}
