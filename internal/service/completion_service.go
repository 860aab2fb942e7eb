package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"github.com/Phoneix-pro/bmr-engine/internal/repository"
	"github.com/Phoneix-pro/bmr-engine/internal/sse"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// completionLockTTL redis租约时长，防止实例崩溃后锁悬挂
const completionLockTTL = 5 * time.Minute

// reloadChannel 完工后跨实例刷新信号的redis频道
const reloadChannel = "bmr:reload"

// CompletionService 完工流程编排。
// 步骤固定顺序执行：前置检查 → 费用计算 → 归档 → 释放预留 → 成品入账 →
// 清理工作数据 → 置终态 → 通知刷新。归档是唯一的硬门槛，之前失败无副作用；
// 之后的失败以 PartialCompletionError 上报已提交步骤，不回滚。
type CompletionService struct {
	records   *repository.RecordRepository
	movements *repository.MovementRepository
	history   *HistoryService
	alloc     *AllocationService
	stock     *StockService
	rdb       *redis.Client
	hub       *sse.Hub
	logger    *zap.Logger
}

func NewCompletionService(
	records *repository.RecordRepository,
	movements *repository.MovementRepository,
	history *HistoryService,
	alloc *AllocationService,
	stock *StockService,
	rdb *redis.Client,
	hub *sse.Hub,
	logger *zap.Logger,
) *CompletionService {
	return &CompletionService{
		records:   records,
		movements: movements,
		history:   history,
		alloc:     alloc,
		stock:     stock,
		rdb:       rdb,
		hub:       hub,
		logger:    logger,
	}
}

// AttemptCompletion 尝试完工一个批记录。
// 互斥靠状态CAS（active/inprogress → completing）保证同一批记录至多进入
// 一次；配置了redis时再叠加一层跨实例租约。不同批记录的完工互不排队。
func (s *CompletionService) AttemptCompletion(ctx context.Context, recordID, operator string) (*entity.HistoryEntry, error) {
	if s.rdb != nil {
		key := "bmr:completing:" + recordID
		ok, err := s.rdb.SetNX(ctx, key, operator, completionLockTTL).Result()
		if err != nil {
			s.logger.Warn("redis租约获取失败，退化为仅状态CAS", zap.Error(err))
		} else if !ok {
			return nil, ErrRecordBusy
		} else {
			defer s.rdb.Del(context.Background(), key)
		}
	}

	locked, err := s.records.UpdateStatus(ctx, recordID,
		[]string{entity.RecordStatusActive, entity.RecordStatusInProgress},
		entity.RecordStatusCompleting)
	if err != nil {
		return nil, fmt.Errorf("锁定批记录失败: %w", err)
	}
	if !locked {
		// 区分不存在与状态不允许
		if _, ferr := s.records.FindByID(ctx, recordID); ferr != nil {
			return nil, ferr
		}
		return nil, ErrRecordBusy
	}
	revert := func() {
		if _, rerr := s.records.UpdateStatus(ctx, recordID,
			[]string{entity.RecordStatusCompleting}, entity.RecordStatusInProgress); rerr != nil {
			s.logger.Error("回退批记录状态失败", zap.String("record_id", recordID), zap.Error(rerr))
		}
	}

	rec, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		revert()
		return nil, err
	}

	// 1. 前置检查：所有工序有效状态均为 completed，否则无任何变更直接拒绝
	if !rec.AllProcessesCompleted() {
		revert()
		return nil, ErrNotReady
	}

	// 2. 费用计算：物料行合计 + 工序人工费用。工序均已完成，数字已冻结。
	now := time.Now()
	var materialCost, laborCost float64
	for i := range rec.Materials {
		materialCost += rec.Materials[i].LineTotal()
	}
	for i := range rec.Processes {
		laborCost += rec.Processes[i].Cost(now)
	}
	totalPrice := materialCost + laborCost

	// 3. 归档（硬门槛）
	entry, err := s.history.Archive(ctx, rec, materialCost, laborCost, totalPrice, operator, now)
	if err != nil {
		revert()
		return nil, fmt.Errorf("归档失败: %w", err)
	}

	done := []string{StepArchive}
	fail := func(step string, err error) (*entity.HistoryEntry, error) {
		s.logger.Error("完工流程在归档后失败",
			zap.String("record_id", recordID),
			zap.String("step", step),
			zap.Strings("committed", done),
			zap.Error(err),
		)
		return entry, &PartialCompletionError{
			RecordID:  recordID,
			HistoryID: entry.ID,
			Steps:     done,
			Err:       fmt.Errorf("%s: %w", step, err),
		}
	}

	// 4. 释放预留：逐物料行执行，行内单条码缺失已在分配器中记日志跳过
	for i := range rec.Materials {
		if _, err := s.alloc.ReleaseLine(ctx, rec, &rec.Materials[i], operator); err != nil {
			return fail(StepInventory, err)
		}
	}
	done = append(done, StepInventory)

	// 5. 成品入账：业务键自动派生，单价为总成本摊到批量
	unitPrice := totalPrice
	if rec.BatchSize > 0 {
		unitPrice = totalPrice / rec.BatchSize
	}
	cand := FinishedGoodCandidate{
		Barcode:     fmt.Sprintf("BMR-%s-%d", rec.InitialCode, now.Unix()),
		PartNo:      rec.InitialCode,
		ProductName: rec.ProductName,
		LotNo:       "LOT-" + rec.InitialCode,
		Quantity:    rec.BatchSize,
		UnitPrice:   unitPrice,
		Unit:        rec.Unit,
	}
	stockRec, err := s.stock.UpsertFinishedGood(ctx, cand)
	if err != nil {
		return fail(StepStock, err)
	}
	mv := &entity.StockMovement{
		ID:            uuid.New().String(),
		StockID:       stockRec.ID,
		Type:          entity.MovementTypeIn,
		Quantity:      cand.Quantity,
		RemainingQty:  stockRec.Quantity,
		ReferenceType: entity.RefTypeCompletion,
		ReferenceID:   rec.ID,
		ReferenceCode: rec.RecordNo,
		CreatedBy:     operator,
	}
	if err := s.movements.Create(ctx, mv); err != nil {
		return fail(StepStock, err)
	}
	done = append(done, StepStock)

	// 6. 清理工作数据：物料行、工序、工人
	if err := s.records.DeleteWorkingData(ctx, rec.ID); err != nil {
		return fail(StepCleanup, err)
	}
	done = append(done, StepCleanup)

	// 7. 置终态
	finalized, err := s.records.UpdateStatus(ctx, rec.ID,
		[]string{entity.RecordStatusCompleting}, entity.RecordStatusComplete)
	if err != nil {
		return fail(StepFinalize, err)
	}
	if !finalized {
		return fail(StepFinalize, errors.New("批记录状态已被他处修改"))
	}

	s.logger.Info("批记录完工",
		zap.String("record_id", rec.ID),
		zap.String("record_no", rec.RecordNo),
		zap.Float64("material_cost", materialCost),
		zap.Float64("labor_cost", laborCost),
		zap.Float64("total_price", totalPrice),
		zap.String("stock_barcode", stockRec.Barcode),
	)

	// 8. 通知依赖视图刷新
	s.notifyReload(rec)
	return entry, nil
}

func (s *CompletionService) notifyReload(rec *entity.BatchRecord) {
	if s.hub != nil {
		payload, _ := json.Marshal(map[string]string{
			"record_id": rec.ID,
			"record_no": rec.RecordNo,
		})
		s.hub.Broadcast(sse.Event{EventType: "record.completed", Data: string(payload)})
		s.hub.Broadcast(sse.Event{EventType: "stock.reload", Data: "{}"})
		s.hub.Broadcast(sse.Event{EventType: "history.reload", Data: "{}"})
	}
	if s.rdb != nil {
		if err := s.rdb.Publish(context.Background(), reloadChannel, rec.ID).Err(); err != nil {
			s.logger.Warn("发布刷新信号失败", zap.Error(err))
		}
	}
}
