package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"github.com/Phoneix-pro/bmr-engine/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordService 批记录及其物料行/工序的维护
type RecordService struct {
	records   *repository.RecordRepository
	materials *repository.MaterialRepository
	processes *repository.ProcessRepository
	logger    *zap.Logger
}

func NewRecordService(records *repository.RecordRepository, materials *repository.MaterialRepository, processes *repository.ProcessRepository, logger *zap.Logger) *RecordService {
	return &RecordService{records: records, materials: materials, processes: processes, logger: logger}
}

type HandlerInput struct {
	Name       string  `json:"name" binding:"required"`
	RatePerMin float64 `json:"rate_per_min"`
}

type ProcessInput struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	RatePerMin  float64        `json:"rate_per_min"`
	Handlers    []HandlerInput `json:"handlers"`
}

type MaterialInput struct {
	RawMaterial        string                    `json:"raw_material" binding:"required"`
	PartNo             string                    `json:"part_no"`
	ComponentBarcodes  string                    `json:"component_barcodes"`
	RequestedQty       float64                   `json:"requested_qty"`
	UnitPrice          float64                   `json:"unit_price"`
	TotalQty           float64                   `json:"total_qty"`
	AvgPrice           float64                   `json:"avg_price"`
	IssuedBy           string                    `json:"issued_by"`
	ReceivedBy         string                    `json:"received_by"`
	VariantAllocations entity.VariantAllocations `json:"variant_allocations"`
}

type CreateRecordRequest struct {
	ProductName string          `json:"product_name" binding:"required"`
	InitialCode string          `json:"initial_code" binding:"required"`
	AssemblyID  string          `json:"assembly_id"`
	BatchSize   float64         `json:"batch_size" binding:"required,gt=0"`
	Unit        string          `json:"unit"`
	MfgDate     string          `json:"mfg_date"` // YYYY-MM-DD
	ExpDate     string          `json:"exp_date"`
	Notes       string          `json:"notes"`
	Materials   []MaterialInput `json:"materials"`
	Processes   []ProcessInput  `json:"processes"`
}

// Create 创建批记录，级联物料行与工序/工人
func (s *RecordService) Create(ctx context.Context, req CreateRecordRequest, userID string) (*entity.BatchRecord, error) {
	now := time.Now()
	rec := &entity.BatchRecord{
		ID:          uuid.New().String(),
		RecordNo:    fmt.Sprintf("BMR-%s%04d", now.Format("20060102"), now.UnixNano()%10000),
		InitialCode: req.InitialCode,
		ProductName: req.ProductName,
		AssemblyID:  req.AssemblyID,
		BatchSize:   req.BatchSize,
		Unit:        req.Unit,
		Status:      entity.RecordStatusActive,
		Notes:       req.Notes,
		CreatedBy:   userID,
	}
	if rec.Unit == "" {
		rec.Unit = "pcs"
	}
	if req.MfgDate != "" {
		if t, err := time.Parse("2006-01-02", req.MfgDate); err == nil {
			rec.MfgDate = &t
		}
	}
	if req.ExpDate != "" {
		if t, err := time.Parse("2006-01-02", req.ExpDate); err == nil {
			rec.ExpDate = &t
		}
	}

	for _, m := range req.Materials {
		rec.Materials = append(rec.Materials, newMaterialLine(rec.ID, m))
	}
	for _, p := range req.Processes {
		rec.Processes = append(rec.Processes, newProcess(rec.ID, p))
	}

	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("创建批记录失败: %w", err)
	}
	return rec, nil
}

func newMaterialLine(recordID string, m MaterialInput) entity.MaterialLineItem {
	return entity.MaterialLineItem{
		ID:                 uuid.New().String(),
		RecordID:           recordID,
		RawMaterial:        m.RawMaterial,
		PartNo:             m.PartNo,
		ComponentBarcodes:  m.ComponentBarcodes,
		RequestedQty:       m.RequestedQty,
		UnitPrice:          m.UnitPrice,
		TotalQty:           m.TotalQty,
		AvgPrice:           m.AvgPrice,
		IssuedBy:           m.IssuedBy,
		ReceivedBy:         m.ReceivedBy,
		VariantAllocations: m.VariantAllocations,
	}
}

func newProcess(recordID string, p ProcessInput) entity.Process {
	proc := entity.Process{
		ID:          uuid.New().String(),
		RecordID:    recordID,
		Name:        p.Name,
		Description: p.Description,
		RatePerMin:  p.RatePerMin,
		Timer:       entity.Timer{Status: entity.TimerStatusInitiate},
	}
	for _, h := range p.Handlers {
		proc.Handlers = append(proc.Handlers, entity.ProcessHandler{
			ID:         uuid.New().String(),
			ProcessID:  proc.ID,
			Name:       h.Name,
			RatePerMin: h.RatePerMin,
			Timer:      entity.Timer{Status: entity.TimerStatusInitiate},
		})
	}
	return proc
}

func (s *RecordService) Get(ctx context.Context, id string) (*entity.BatchRecord, error) {
	return s.records.FindByID(ctx, id)
}

func (s *RecordService) List(ctx context.Context, params repository.ListParams) ([]entity.BatchRecord, int64, error) {
	return s.records.List(ctx, params)
}

// Delete 删除批记录并级联清除工作数据。已完工的记录是归档对象，禁止删除。
func (s *RecordService) Delete(ctx context.Context, id string) error {
	rec, err := s.records.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status == entity.RecordStatusComplete || rec.Status == entity.RecordStatusCompleting {
		return ErrRecordCompleted
	}
	if err := s.records.DeleteWorkingData(ctx, id); err != nil {
		return fmt.Errorf("清除批记录工作数据失败: %w", err)
	}
	return s.records.Delete(ctx, id)
}

// mutableRecord 校验批记录仍可编辑
func (s *RecordService) mutableRecord(ctx context.Context, recordID string) (*entity.BatchRecord, error) {
	rec, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Status == entity.RecordStatusComplete || rec.Status == entity.RecordStatusCompleting {
		return nil, ErrRecordCompleted
	}
	return rec, nil
}

// AddMaterial 追加物料行
func (s *RecordService) AddMaterial(ctx context.Context, recordID string, input MaterialInput) (*entity.MaterialLineItem, error) {
	if _, err := s.mutableRecord(ctx, recordID); err != nil {
		return nil, err
	}
	m := newMaterialLine(recordID, input)
	if err := s.materials.Create(ctx, &m); err != nil {
		return nil, fmt.Errorf("创建物料行失败: %w", err)
	}
	return &m, nil
}

func (s *RecordService) RemoveMaterial(ctx context.Context, id string) error {
	m, err := s.materials.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.mutableRecord(ctx, m.RecordID); err != nil {
		return err
	}
	return s.materials.Delete(ctx, id)
}

// AddProcess 追加工序（可携带工人）
func (s *RecordService) AddProcess(ctx context.Context, recordID string, input ProcessInput) (*entity.Process, error) {
	if _, err := s.mutableRecord(ctx, recordID); err != nil {
		return nil, err
	}
	p := newProcess(recordID, input)
	if err := s.processes.Create(ctx, &p); err != nil {
		return nil, fmt.Errorf("创建工序失败: %w", err)
	}
	return &p, nil
}

func (s *RecordService) RemoveProcess(ctx context.Context, id string) error {
	p, err := s.processes.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.mutableRecord(ctx, p.RecordID); err != nil {
		return err
	}
	return s.processes.Delete(ctx, id)
}

// AddHandler 给工序追加工人。工序计时一旦结束不允许再加人。
func (s *RecordService) AddHandler(ctx context.Context, processID string, input HandlerInput) (*entity.ProcessHandler, error) {
	p, err := s.processes.FindByID(ctx, processID)
	if err != nil {
		return nil, err
	}
	if _, err := s.mutableRecord(ctx, p.RecordID); err != nil {
		return nil, err
	}
	if p.EffectiveStatus() == entity.TimerStatusCompleted {
		return nil, fmt.Errorf("%w: 工序已完成，不能追加工人", entity.ErrInvalidTransition)
	}
	h := &entity.ProcessHandler{
		ID:         uuid.New().String(),
		ProcessID:  processID,
		Name:       input.Name,
		RatePerMin: input.RatePerMin,
		Timer:      entity.Timer{Status: entity.TimerStatusInitiate},
	}
	if err := s.processes.CreateHandler(ctx, h); err != nil {
		return nil, fmt.Errorf("创建工人失败: %w", err)
	}
	return h, nil
}
