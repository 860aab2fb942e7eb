package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// VariantAllocation 录入时指定的按条码分配数量
type VariantAllocation struct {
	Barcode string  `json:"barcode"`
	Qty     float64 `json:"qty"`
}

// VariantAllocations 以JSON文本落库，兼容postgres与sqlite
type VariantAllocations []VariantAllocation

func (v VariantAllocations) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (v *VariantAllocations) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	switch b := value.(type) {
	case []byte:
		return json.Unmarshal(b, v)
	case string:
		return json.Unmarshal([]byte(b), v)
	}
	return fmt.Errorf("无法解析变体分配数据: %T", value)
}

// MaterialLineItem 批记录物料行
type MaterialLineItem struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	RecordID    string `json:"record_id" gorm:"type:uuid;not null;index"`
	RawMaterial string `json:"raw_material" gorm:"size:128;not null"`
	PartNo      string `json:"part_no" gorm:"size:64"`
	// ComponentBarcodes 逗号分隔的组件批条码，允许为空（无序列化库存可释放）
	ComponentBarcodes  string             `json:"component_barcodes" gorm:"type:text"`
	RequestedQty       float64            `json:"requested_qty" gorm:"type:decimal(12,4);default:0"`
	UnitPrice          float64            `json:"unit_price" gorm:"type:decimal(12,4);default:0"`
	TotalQty           float64            `json:"total_qty" gorm:"type:decimal(12,4);default:0"`
	AvgPrice           float64            `json:"avg_price" gorm:"type:decimal(12,4);default:0"`
	IssuedBy           string             `json:"issued_by" gorm:"size:64"`
	ReceivedBy         string             `json:"received_by" gorm:"size:64"`
	VariantAllocations VariantAllocations `json:"variant_allocations,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MaterialLineItem) TableName() string {
	return "bmr_material_line_items"
}

// Barcodes 拆分条码列表，忽略空段
func (m *MaterialLineItem) Barcodes() []string {
	var out []string
	for _, s := range strings.Split(m.ComponentBarcodes, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LineTotal 行合计。TotalQty/AvgPrice 两者齐备时优先，否则回退到申请数量×单价
func (m *MaterialLineItem) LineTotal() float64 {
	if m.TotalQty > 0 && m.AvgPrice > 0 {
		return m.TotalQty * m.AvgPrice
	}
	return m.RequestedQty * m.UnitPrice
}

// AllocationFor 单个条码应释放数量：有变体分配取分配值，否则按条码数均摊
func (m *MaterialLineItem) AllocationFor(barcode string, count int) float64 {
	for _, va := range m.VariantAllocations {
		if va.Barcode == barcode {
			return va.Qty
		}
	}
	if count <= 0 {
		return 0
	}
	return m.RequestedQty / float64(count)
}
