package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"github.com/Phoneix-pro/bmr-engine/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllocationResult 单条码释放结果
type AllocationResult struct {
	Barcode      string  `json:"barcode"`
	LotID        string  `json:"lot_id"`
	StockID      string  `json:"stock_id"`
	AllocatedQty float64 `json:"allocated_qty"`
	RemainingQty float64 `json:"remaining_qty"`
}

// AllocationService 库存分配服务：完工时按物料行释放组件批次的预留量。
// 重放不安全（重复执行会重复扣减），调用方必须保证同一批记录至多执行一次。
type AllocationService struct {
	lots      *repository.LotRepository
	stocks    *repository.StockRepository
	movements *repository.MovementRepository
	logger    *zap.Logger
}

func NewAllocationService(lots *repository.LotRepository, stocks *repository.StockRepository, movements *repository.MovementRepository, logger *zap.Logger) *AllocationService {
	return &AllocationService{lots: lots, stocks: stocks, movements: movements, logger: logger}
}

// ReleaseLine 释放一个物料行的预留。
// 条码为空表示无序列化库存可释放，直接返回；单个条码找不到批次记日志跳过，
// 不中断整行；存储故障才向上冒泡。预留量只减不减到负，多余的释放量舍弃。
func (s *AllocationService) ReleaseLine(ctx context.Context, rec *entity.BatchRecord, line *entity.MaterialLineItem, operator string) ([]AllocationResult, error) {
	barcodes := line.Barcodes()
	if len(barcodes) == 0 {
		return nil, nil
	}

	ownerDelta := make(map[string]float64)
	var results []AllocationResult

	for _, bc := range barcodes {
		lot, err := s.lots.FindByBarcode(ctx, bc)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("组件批次不存在，跳过释放",
					zap.String("barcode", bc),
					zap.String("record_id", rec.ID),
					zap.String("raw_material", line.RawMaterial),
				)
				continue
			}
			return results, fmt.Errorf("查找组件批次失败: %w", err)
		}

		qty := line.AllocationFor(bc, len(barcodes))
		remaining := lot.ReservedQty - qty
		if remaining < 0 {
			remaining = 0
		}
		applied := lot.ReservedQty - remaining
		lot.ReservedQty = remaining
		if err := s.lots.Update(ctx, lot); err != nil {
			return results, fmt.Errorf("更新组件批次预留量失败: %w", err)
		}

		mv := &entity.StockMovement{
			ID:            uuid.New().String(),
			StockID:       lot.StockID,
			LotID:         lot.ID,
			Type:          entity.MovementTypeOut,
			Quantity:      qty,
			RemainingQty:  lot.ReservedQty,
			ReferenceType: entity.RefTypeCompletion,
			ReferenceID:   rec.ID,
			ReferenceCode: rec.RecordNo,
			CreatedBy:     operator,
		}
		if err := s.movements.Create(ctx, mv); err != nil {
			return results, fmt.Errorf("写入库存流水失败: %w", err)
		}

		ownerDelta[lot.StockID] += applied
		results = append(results, AllocationResult{
			Barcode:      bc,
			LotID:        lot.ID,
			StockID:      lot.StockID,
			AllocatedQty: qty,
			RemainingQty: lot.ReservedQty,
		})
	}

	// 同一台账下多个批次的扣减合并后同步到台账预留量
	for stockID, delta := range ownerDelta {
		stock, err := s.stocks.FindByID(ctx, stockID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("批次所属台账不存在，预留量未同步",
					zap.String("stock_id", stockID),
					zap.String("record_id", rec.ID),
				)
				continue
			}
			return results, fmt.Errorf("查找库存台账失败: %w", err)
		}
		stock.ReservedQty -= delta
		if stock.ReservedQty < 0 {
			stock.ReservedQty = 0
		}
		if err := s.stocks.Update(ctx, stock); err != nil {
			return results, fmt.Errorf("更新库存台账预留量失败: %w", err)
		}
	}

	return results, nil
}
