package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"github.com/Phoneix-pro/bmr-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// StockService 库存台账服务：加权平均入账、收货、流水查询与导出
type StockService struct {
	stocks    *repository.StockRepository
	lots      *repository.LotRepository
	movements *repository.MovementRepository
	logger    *zap.Logger
}

func NewStockService(stocks *repository.StockRepository, lots *repository.LotRepository, movements *repository.MovementRepository, logger *zap.Logger) *StockService {
	return &StockService{stocks: stocks, lots: lots, movements: movements, logger: logger}
}

// FinishedGoodCandidate 待入账的成品
type FinishedGoodCandidate struct {
	Barcode     string
	PartNo      string
	ProductName string
	LotNo       string
	Quantity    float64
	UnitPrice   float64
	Unit        string
}

// UpsertFinishedGood 成品入账。业务键先按条码、再按零件号两次独立查找，
// 两者命中不同台账时以条码为准（与历史行为一致，记警告日志）。
// 命中则按数量加权重算均价，未命中则新建台账并附带一个零预留的初始批次。
// 流水由调用方补写。
func (s *StockService) UpsertFinishedGood(ctx context.Context, cand FinishedGoodCandidate) (*entity.StockRecord, error) {
	existing, err := s.resolveByBusinessKey(ctx, cand.Barcode, cand.PartNo)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		newQty := existing.Quantity + cand.Quantity
		newAvg := 0.0
		if newQty != 0 {
			newAvg = (existing.Quantity*existing.AvgUnitPrice + cand.Quantity*cand.UnitPrice) / newQty
		}
		existing.Quantity = newQty
		existing.AvgUnitPrice = newAvg
		existing.TotalReceived += cand.Quantity
		if err := s.stocks.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("更新库存台账失败: %w", err)
		}
		return existing, nil
	}

	unit := cand.Unit
	if unit == "" {
		unit = "pcs"
	}
	stock := &entity.StockRecord{
		ID:            uuid.New().String(),
		Barcode:       cand.Barcode,
		PartNo:        cand.PartNo,
		ProductName:   cand.ProductName,
		LotNo:         cand.LotNo,
		Quantity:      cand.Quantity,
		AvgUnitPrice:  cand.UnitPrice,
		TotalReceived: cand.Quantity,
		Unit:          unit,
	}
	if err := s.stocks.Create(ctx, stock); err != nil {
		return nil, fmt.Errorf("创建库存台账失败: %w", err)
	}
	lot := &entity.ComponentLot{
		ID:          uuid.New().String(),
		StockID:     stock.ID,
		LotNo:       cand.LotNo,
		Barcode:     cand.Barcode,
		ReservedQty: 0,
		OnHandQty:   cand.Quantity,
	}
	if err := s.lots.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("创建初始批次失败: %w", err)
	}
	return stock, nil
}

func (s *StockService) resolveByBusinessKey(ctx context.Context, barcode, partNo string) (*entity.StockRecord, error) {
	byBarcode, err := s.stocks.FindByBarcode(ctx, barcode)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("按条码查找台账失败: %w", err)
	}
	var byPart *entity.StockRecord
	if partNo != "" {
		byPart, err = s.stocks.FindByPartNo(ctx, partNo)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("按零件号查找台账失败: %w", err)
		}
	}
	if byBarcode != nil {
		if byPart != nil && byPart.ID != byBarcode.ID {
			s.logger.Warn("条码与零件号命中不同台账，以条码为准",
				zap.String("barcode", barcode),
				zap.String("part_no", partNo),
				zap.String("barcode_stock", byBarcode.ID),
				zap.String("part_no_stock", byPart.ID),
			)
		}
		return byBarcode, nil
	}
	return byPart, nil
}

// ReceiveRequest 原料收货（上游预留在此时发生）
type ReceiveRequest struct {
	Barcode     string  `json:"barcode" binding:"required"`
	PartNo      string  `json:"part_no"`
	ProductName string  `json:"product_name"`
	LotNo       string  `json:"lot_no"`
	LotBarcode  string  `json:"lot_barcode" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price"`
	ReservedQty float64 `json:"reserved_qty"`
	Unit        string  `json:"unit"`
}

// Receive 收货入账：台账走加权平均，另建一个带预留量的序列化批次，补写入库流水
func (s *StockService) Receive(ctx context.Context, req ReceiveRequest, operator string) (*entity.StockRecord, error) {
	lotNo := req.LotNo
	if lotNo == "" {
		lotNo = fmt.Sprintf("%s%03d", time.Now().Format("20060102"), time.Now().UnixNano()%1000)
	}

	existing, err := s.resolveByBusinessKey(ctx, req.Barcode, req.PartNo)
	if err != nil {
		return nil, err
	}
	var stock *entity.StockRecord
	if existing != nil {
		newQty := existing.Quantity + req.Quantity
		newAvg := 0.0
		if newQty != 0 {
			newAvg = (existing.Quantity*existing.AvgUnitPrice + req.Quantity*req.UnitPrice) / newQty
		}
		existing.Quantity = newQty
		existing.AvgUnitPrice = newAvg
		existing.TotalReceived += req.Quantity
		existing.ReservedQty += req.ReservedQty
		if err := s.stocks.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("更新库存台账失败: %w", err)
		}
		stock = existing
	} else {
		unit := req.Unit
		if unit == "" {
			unit = "pcs"
		}
		stock = &entity.StockRecord{
			ID:            uuid.New().String(),
			Barcode:       req.Barcode,
			PartNo:        req.PartNo,
			ProductName:   req.ProductName,
			LotNo:         lotNo,
			Quantity:      req.Quantity,
			ReservedQty:   req.ReservedQty,
			AvgUnitPrice:  req.UnitPrice,
			TotalReceived: req.Quantity,
			Unit:          unit,
		}
		if err := s.stocks.Create(ctx, stock); err != nil {
			return nil, fmt.Errorf("创建库存台账失败: %w", err)
		}
	}

	lot := &entity.ComponentLot{
		ID:          uuid.New().String(),
		StockID:     stock.ID,
		LotNo:       lotNo,
		Barcode:     req.LotBarcode,
		ReservedQty: req.ReservedQty,
		OnHandQty:   req.Quantity,
	}
	if err := s.lots.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("创建组件批次失败: %w", err)
	}

	mv := &entity.StockMovement{
		ID:            uuid.New().String(),
		StockID:       stock.ID,
		LotID:         lot.ID,
		Type:          entity.MovementTypeIn,
		Quantity:      req.Quantity,
		RemainingQty:  stock.Quantity,
		ReferenceType: entity.RefTypeReceipt,
		ReferenceID:   lot.ID,
		ReferenceCode: lotNo,
		CreatedBy:     operator,
	}
	if err := s.movements.Create(ctx, mv); err != nil {
		return nil, fmt.Errorf("写入库存流水失败: %w", err)
	}
	return stock, nil
}

func (s *StockService) List(ctx context.Context, params repository.StockListParams) ([]entity.StockRecord, int64, error) {
	return s.stocks.List(ctx, params)
}

func (s *StockService) ListMovements(ctx context.Context, stockID string, page, size int) ([]entity.StockMovement, int64, error) {
	return s.movements.ListByStock(ctx, stockID, page, size)
}

var movementExportHeaders = []string{"流水ID", "台账ID", "批次ID", "方向", "数量", "剩余量", "来源类型", "来源单据", "来源编号", "操作人", "时间"}

// ExportMovements 导出全量库存流水
func (s *StockService) ExportMovements(ctx context.Context) (*excelize.File, string, error) {
	moves, err := s.movements.ListAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("读取库存流水失败: %w", err)
	}

	f := excelize.NewFile()
	sheet := "库存流水"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	for i, h := range movementExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for i, m := range moves {
		row := i + 2
		values := []interface{}{
			m.ID, m.StockID, m.LotID, m.Type, m.Quantity, m.RemainingQty,
			m.ReferenceType, m.ReferenceID, m.ReferenceCode, m.CreatedBy,
			m.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	filename := fmt.Sprintf("stock_movements_%s.xlsx", time.Now().Format("20060102"))
	return f, filename, nil
}
