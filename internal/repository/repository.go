package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Repositories 仓库集合
type Repositories struct {
	Record   *RecordRepository
	Process  *ProcessRepository
	Material *MaterialRepository
	Stock    *StockRepository
	Lot      *LotRepository
	Movement *MovementRepository
	History  *HistoryRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Record:   NewRecordRepository(db),
		Process:  NewProcessRepository(db),
		Material: NewMaterialRepository(db),
		Stock:    NewStockRepository(db),
		Lot:      NewLotRepository(db),
		Movement: NewMovementRepository(db),
		History:  NewHistoryRepository(db),
	}
}
