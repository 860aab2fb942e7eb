package service

import (
	"context"
	"testing"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"github.com/Phoneix-pro/bmr-engine/internal/repository"
	"github.com/Phoneix-pro/bmr-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAllocationTest(t *testing.T) (*gorm.DB, *AllocationService, *repository.Repositories) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewAllocationService(repos.Lot, repos.Stock, repos.Movement, zap.NewNop())
	return db, svc, repos
}

func seedStockWithLots(t *testing.T, db *gorm.DB, stockID string, reserved float64, lots ...entity.ComponentLot) {
	t.Helper()
	stock := &entity.StockRecord{
		ID:          stockID,
		Barcode:     "STK-" + stockID,
		PartNo:      "PN-" + stockID,
		ProductName: "Component " + stockID,
		Quantity:    100,
		ReservedQty: reserved,
		Unit:        "pcs",
	}
	require.NoError(t, db.Create(stock).Error)
	for i := range lots {
		lots[i].StockID = stockID
		require.NoError(t, db.Create(&lots[i]).Error)
	}
}

func TestReleaseLineEvenSplit(t *testing.T) {
	db, svc, repos := setupAllocationTest(t)
	ctx := context.Background()

	seedStockWithLots(t, db, "stock-1", 10,
		entity.ComponentLot{ID: "lot-1", Barcode: "BC-001", ReservedQty: 5, OnHandQty: 50},
		entity.ComponentLot{ID: "lot-2", Barcode: "BC-002", ReservedQty: 5, OnHandQty: 50},
	)

	rec := &entity.BatchRecord{ID: "rec-1", RecordNo: "BMR-202406010001"}
	line := &entity.MaterialLineItem{
		RawMaterial:       "Resistor",
		ComponentBarcodes: "BC-001,BC-002",
		RequestedQty:      10,
	}

	results, err := svc.ReleaseLine(ctx, rec, line, "op-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.InDelta(t, 5.0, r.AllocatedQty, 1e-9)
		assert.InDelta(t, 0.0, r.RemainingQty, 1e-9)
	}

	lot1, err := repos.Lot.FindByBarcode(ctx, "BC-001")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, lot1.ReservedQty, 1e-9)

	// 台账预留量合并扣减
	stock, err := repos.Stock.FindByID(ctx, "stock-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, stock.ReservedQty, 1e-9)

	// 每个条码一条出库流水，挂在完工单据上
	moves, err := repos.Movement.ListByReference(ctx, entity.RefTypeCompletion, "rec-1")
	require.NoError(t, err)
	require.Len(t, moves, 2)
	for _, m := range moves {
		assert.Equal(t, entity.MovementTypeOut, m.Type)
		assert.Equal(t, "BMR-202406010001", m.ReferenceCode)
	}
}

func TestReleaseLineVariantOverride(t *testing.T) {
	db, svc, repos := setupAllocationTest(t)
	ctx := context.Background()

	seedStockWithLots(t, db, "stock-1", 9,
		entity.ComponentLot{ID: "lot-1", Barcode: "BC-001", ReservedQty: 2, OnHandQty: 20},
		entity.ComponentLot{ID: "lot-2", Barcode: "BC-002", ReservedQty: 7, OnHandQty: 20},
	)

	rec := &entity.BatchRecord{ID: "rec-1", RecordNo: "BMR-X"}
	line := &entity.MaterialLineItem{
		RawMaterial:       "Capacitor",
		ComponentBarcodes: "BC-001,BC-002",
		RequestedQty:      4,
		VariantAllocations: entity.VariantAllocations{
			{Barcode: "BC-002", Qty: 7},
		},
	}

	results, err := svc.ReleaseLine(ctx, rec, line, "op-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	// BC-001 无变体分配，按条码数均摊 4/2=2
	assert.InDelta(t, 2.0, results[0].AllocatedQty, 1e-9)
	// BC-002 取变体分配值
	assert.InDelta(t, 7.0, results[1].AllocatedQty, 1e-9)

	stock, err := repos.Stock.FindByID(ctx, "stock-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, stock.ReservedQty, 1e-9)
}

// 预留量只减到零，超出部分舍弃
func TestReleaseLineFloorsAtZero(t *testing.T) {
	db, svc, repos := setupAllocationTest(t)
	ctx := context.Background()

	seedStockWithLots(t, db, "stock-1", 3,
		entity.ComponentLot{ID: "lot-1", Barcode: "BC-001", ReservedQty: 3, OnHandQty: 10},
	)

	rec := &entity.BatchRecord{ID: "rec-1", RecordNo: "BMR-X"}
	line := &entity.MaterialLineItem{
		RawMaterial:       "Screw",
		ComponentBarcodes: "BC-001",
		RequestedQty:      8, // 要释放8但只预留了3
	}

	results, err := svc.ReleaseLine(ctx, rec, line, "op-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.0, results[0].RemainingQty, 1e-9)

	lot, err := repos.Lot.FindByBarcode(ctx, "BC-001")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, lot.ReservedQty, 1e-9)

	// 台账只扣实际释放的3，不扣到负
	stock, err := repos.Stock.FindByID(ctx, "stock-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, stock.ReservedQty, 1e-9)
}

// 单个条码查无批次只跳过，不中断整行
func TestReleaseLineSkipsMissingLot(t *testing.T) {
	db, svc, repos := setupAllocationTest(t)
	ctx := context.Background()

	seedStockWithLots(t, db, "stock-1", 5,
		entity.ComponentLot{ID: "lot-1", Barcode: "BC-001", ReservedQty: 5, OnHandQty: 10},
	)

	rec := &entity.BatchRecord{ID: "rec-1", RecordNo: "BMR-X"}
	line := &entity.MaterialLineItem{
		RawMaterial:       "Wire",
		ComponentBarcodes: "BC-MISSING,BC-001",
		RequestedQty:      10,
	}

	results, err := svc.ReleaseLine(ctx, rec, line, "op-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "BC-001", results[0].Barcode)
	// 存在的条码仍按条码总数均摊 10/2=5
	assert.InDelta(t, 5.0, results[0].AllocatedQty, 1e-9)

	moves, err := repos.Movement.ListByReference(ctx, entity.RefTypeCompletion, "rec-1")
	require.NoError(t, err)
	assert.Len(t, moves, 1)
}

func TestReleaseLineNoBarcodes(t *testing.T) {
	_, svc, _ := setupAllocationTest(t)

	rec := &entity.BatchRecord{ID: "rec-1", RecordNo: "BMR-X"}
	line := &entity.MaterialLineItem{RawMaterial: "Paint", ComponentBarcodes: ""}

	results, err := svc.ReleaseLine(context.Background(), rec, line, "op-1")
	require.NoError(t, err)
	assert.Nil(t, results)
}

// 同台账下多批次的扣减合并后一次同步
func TestReleaseLineAggregatesOwnerDelta(t *testing.T) {
	db, svc, repos := setupAllocationTest(t)
	ctx := context.Background()

	seedStockWithLots(t, db, "stock-1", 20,
		entity.ComponentLot{ID: "lot-1", Barcode: "BC-001", ReservedQty: 8, OnHandQty: 30},
		entity.ComponentLot{ID: "lot-2", Barcode: "BC-002", ReservedQty: 8, OnHandQty: 30},
	)
	seedStockWithLots(t, db, "stock-2", 4,
		entity.ComponentLot{ID: "lot-3", Barcode: "BC-003", ReservedQty: 4, OnHandQty: 30},
	)

	rec := &entity.BatchRecord{ID: "rec-1", RecordNo: "BMR-X"}
	line := &entity.MaterialLineItem{
		RawMaterial:       "Connector",
		ComponentBarcodes: "BC-001,BC-002,BC-003",
		RequestedQty:      12,
	}

	_, err := svc.ReleaseLine(ctx, rec, line, "op-1")
	require.NoError(t, err)

	stock1, err := repos.Stock.FindByID(ctx, "stock-1")
	require.NoError(t, err)
	assert.InDelta(t, 12.0, stock1.ReservedQty, 1e-9) // 20 - 4 - 4

	stock2, err := repos.Stock.FindByID(ctx, "stock-2")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, stock2.ReservedQty, 1e-9) // 4 - 4
}
