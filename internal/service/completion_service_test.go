package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"github.com/Phoneix-pro/bmr-engine/internal/repository"
	"github.com/Phoneix-pro/bmr-engine/internal/sse"
	"github.com/Phoneix-pro/bmr-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupCompletionTest(t *testing.T) (*gorm.DB, *Services, *repository.Repositories, *sse.Hub) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	hub := sse.NewHub(zap.NewNop())
	services := NewServices(repos, nil, hub, nil, zap.NewNop())
	return db, services, repos, hub
}

// 造一条就绪的批记录：一行物料（2件×10元），一道工序两个工人
// （费率5元/分钟，各计满2分钟），总成本 20 + 20 = 40
func seedReadyRecord(t *testing.T, db *gorm.DB, services *Services, initialCode, barcodes string) *entity.BatchRecord {
	t.Helper()
	rec, err := services.Record.Create(context.Background(), CreateRecordRequest{
		ProductName: "Widget",
		InitialCode: initialCode,
		BatchSize:   4,
		Materials: []MaterialInput{
			{RawMaterial: "Resistor", ComponentBarcodes: barcodes, RequestedQty: 2, UnitPrice: 10},
		},
		Processes: []ProcessInput{
			{Name: "Assembly", Handlers: []HandlerInput{
				{Name: "Alice", RatePerMin: 5},
				{Name: "Bob", RatePerMin: 5},
			}},
		},
	}, "op-1")
	require.NoError(t, err)

	err = db.Model(&entity.ProcessHandler{}).
		Where("process_id = ?", rec.Processes[0].ID).
		Updates(map[string]interface{}{
			"status":     entity.TimerStatusCompleted,
			"elapsed_ms": 120_000,
		}).Error
	require.NoError(t, err)
	return rec
}

func TestCompletionHappyPath(t *testing.T) {
	db, services, repos, hub := setupCompletionTest(t)
	ctx := context.Background()

	client := &sse.Client{ID: "c1", UserID: "op-1", Events: make(chan sse.Event, 16)}
	hub.Register(client)

	rec := seedReadyRecord(t, db, services, "WDG", "")

	entry, err := services.Completion.AttemptCompletion(ctx, rec.ID, "op-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.InDelta(t, 20.0, entry.MaterialCost, 1e-9)
	assert.InDelta(t, 20.0, entry.LaborCost, 1e-9)
	assert.InDelta(t, 40.0, entry.TotalPrice, 1e-9)
	assert.Equal(t, rec.RecordNo, entry.RecordNo)

	// 快照可回放且含工序明细
	var snap struct {
		Materials []json.RawMessage `json:"materials"`
		Processes []json.RawMessage `json:"processes"`
	}
	require.NoError(t, json.Unmarshal([]byte(entry.Snapshot), &snap))
	assert.Len(t, snap.Materials, 1)
	assert.Len(t, snap.Processes, 1)

	// 批记录置终态，工作数据已清理
	after, err := repos.Record.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RecordStatusComplete, after.Status)
	assert.Empty(t, after.Materials)
	assert.Empty(t, after.Processes)

	// 成品入账：数量为批量，单价为总成本摊批量
	stock, err := repos.Stock.FindByPartNo(ctx, "WDG")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, stock.Quantity, 1e-9)
	assert.InDelta(t, 10.0, stock.AvgUnitPrice, 1e-9)

	// 入库流水挂在完工单据上
	moves, err := repos.Movement.ListByReference(ctx, entity.RefTypeCompletion, rec.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, entity.MovementTypeIn, moves[0].Type)

	// 完工事件已广播
	var events []string
	for len(client.Events) > 0 {
		events = append(events, (<-client.Events).EventType)
	}
	assert.Contains(t, events, "record.completed")
	assert.Contains(t, events, "stock.reload")
	assert.Contains(t, events, "history.reload")
}

func TestCompletionNotReady(t *testing.T) {
	_, services, repos, _ := setupCompletionTest(t)
	ctx := context.Background()

	rec, err := services.Record.Create(ctx, CreateRecordRequest{
		ProductName: "Widget",
		InitialCode: "WDG",
		BatchSize:   1,
		Processes: []ProcessInput{
			{Name: "Assembly", RatePerMin: 5},
		},
	}, "op-1")
	require.NoError(t, err)

	_, err = services.Completion.AttemptCompletion(ctx, rec.ID, "op-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotReady))

	// 拒绝时无任何副作用：无归档、无库存、状态已回退可继续编辑
	after, err := repos.Record.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RecordStatusInProgress, after.Status)
	assert.Len(t, after.Processes, 1)

	entries, total, err := repos.History.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, entries)
}

func TestCompletionReleasesReservations(t *testing.T) {
	db, services, repos, _ := setupCompletionTest(t)
	ctx := context.Background()

	seedStockWithLots(t, db, "stock-1", 2,
		entity.ComponentLot{ID: "lot-1", Barcode: "BC-001", ReservedQty: 1, OnHandQty: 10},
		entity.ComponentLot{ID: "lot-2", Barcode: "BC-002", ReservedQty: 1, OnHandQty: 10},
	)

	rec := seedReadyRecord(t, db, services, "WDG", "BC-001,BC-002")

	_, err := services.Completion.AttemptCompletion(ctx, rec.ID, "op-1")
	require.NoError(t, err)

	lot1, err := repos.Lot.FindByBarcode(ctx, "BC-001")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, lot1.ReservedQty, 1e-9)

	stock, err := repos.Stock.FindByID(ctx, "stock-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, stock.ReservedQty, 1e-9)

	// 完工单据下同时有组件出库与成品入库流水
	moves, err := repos.Movement.ListByReference(ctx, entity.RefTypeCompletion, rec.ID)
	require.NoError(t, err)
	var ins, outs int
	for _, m := range moves {
		switch m.Type {
		case entity.MovementTypeIn:
			ins++
		case entity.MovementTypeOut:
			outs++
		}
	}
	assert.Equal(t, 1, ins)
	assert.Equal(t, 2, outs)
}

func TestCompletionRejectsSecondAttempt(t *testing.T) {
	db, services, _, _ := setupCompletionTest(t)
	ctx := context.Background()

	rec := seedReadyRecord(t, db, services, "WDG", "")

	_, err := services.Completion.AttemptCompletion(ctx, rec.ID, "op-1")
	require.NoError(t, err)

	_, err = services.Completion.AttemptCompletion(ctx, rec.ID, "op-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRecordBusy))
}

func TestCompletionNotFound(t *testing.T) {
	_, services, _, _ := setupCompletionTest(t)

	_, err := services.Completion.AttemptCompletion(context.Background(), "no-such-id", "op-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

// 归档之后的步骤失败：不回滚，错误携带已提交步骤，批记录停在 completing
func TestCompletionPartialFailureAfterArchive(t *testing.T) {
	db, services, repos, _ := setupCompletionTest(t)
	ctx := context.Background()

	rec := seedReadyRecord(t, db, services, "WDG", "")

	// 破坏台账表，成品入账步骤必然失败
	require.NoError(t, db.Migrator().DropTable(&entity.StockRecord{}))

	entry, err := services.Completion.AttemptCompletion(ctx, rec.ID, "op-1")
	require.Error(t, err)

	var partial *PartialCompletionError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, rec.ID, partial.RecordID)
	assert.Equal(t, []string{StepArchive, StepInventory}, partial.Steps)

	// 归档已落库且随错误返回
	require.NotNil(t, entry)
	assert.Equal(t, partial.HistoryID, entry.ID)
	stored, err := repos.History.FindByRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, stored.TotalPrice, 1e-9)

	// 状态不回退，留给运维或重试路径续作
	after, err := repos.Record.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RecordStatusCompleting, after.Status)
}

// 归档是硬门槛：失败则整个流程中止，状态回退且无任何副作用
func TestCompletionAbortsWhenArchiveFails(t *testing.T) {
	db, services, repos, _ := setupCompletionTest(t)
	ctx := context.Background()

	rec := seedReadyRecord(t, db, services, "WDG", "")

	require.NoError(t, db.Migrator().DropTable(&entity.HistoryEntry{}))

	_, err := services.Completion.AttemptCompletion(ctx, rec.ID, "op-1")
	require.Error(t, err)
	var partial *PartialCompletionError
	assert.False(t, errors.As(err, &partial))

	// 状态已回退，工作数据原封未动
	after, err := repos.Record.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RecordStatusInProgress, after.Status)
	assert.Len(t, after.Materials, 1)
	assert.Len(t, after.Processes, 1)

	// 未写任何流水，也未入账成品
	moves, err := repos.Movement.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, moves)
	_, err = repos.Stock.FindByPartNo(ctx, "WDG")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

// 相同成品再次完工命中同一台账，数量加权累计
func TestCompletionUpsertsSameFinishedGood(t *testing.T) {
	db, services, repos, _ := setupCompletionTest(t)
	ctx := context.Background()

	rec1 := seedReadyRecord(t, db, services, "WDG", "")
	_, err := services.Completion.AttemptCompletion(ctx, rec1.ID, "op-1")
	require.NoError(t, err)

	rec2 := seedReadyRecord(t, db, services, "WDG", "")
	_, err = services.Completion.AttemptCompletion(ctx, rec2.ID, "op-1")
	require.NoError(t, err)

	stock, err := repos.Stock.FindByPartNo(ctx, "WDG")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, stock.Quantity, 1e-9)
	assert.InDelta(t, 10.0, stock.AvgUnitPrice, 1e-9)
	assert.InDelta(t, 8.0, stock.TotalReceived, 1e-9)
}
