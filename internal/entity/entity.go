package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移全部表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 批记录
		&BatchRecord{},
		&MaterialLineItem{},
		&Process{},
		&ProcessHandler{},

		// 库存
		&StockRecord{},
		&ComponentLot{},
		&StockMovement{},

		// 归档
		&HistoryEntry{},
	)
}
