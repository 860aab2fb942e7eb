package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"github.com/Phoneix-pro/bmr-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// HistoryService 完工归档服务
type HistoryService struct {
	repo        *repository.HistoryRepository
	minioClient *minio.Client
	bucket      string
	logger      *zap.Logger
}

func NewHistoryService(repo *repository.HistoryRepository, minioClient *minio.Client, bucket string, logger *zap.Logger) *HistoryService {
	return &HistoryService{repo: repo, minioClient: minioClient, bucket: bucket, logger: logger}
}

// snapshotMaterial/snapshotProcess 归档快照中的明细结构
type snapshotMaterial struct {
	RawMaterial string                    `json:"raw_material"`
	PartNo      string                    `json:"part_no"`
	Barcodes    []string                  `json:"barcodes,omitempty"`
	Qty         float64                   `json:"qty"`
	Price       float64                   `json:"price"`
	LineTotal   float64                   `json:"line_total"`
	IssuedBy    string                    `json:"issued_by,omitempty"`
	ReceivedBy  string                    `json:"received_by,omitempty"`
	Variants    entity.VariantAllocations `json:"variants,omitempty"`
}

type snapshotHandler struct {
	Name      string  `json:"name"`
	Rate      float64 `json:"rate"`
	ElapsedMs int64   `json:"elapsed_ms"`
	Cost      float64 `json:"cost"`
}

type snapshotProcess struct {
	Name      string            `json:"name"`
	Rate      float64           `json:"rate"`
	ElapsedMs int64             `json:"elapsed_ms"`
	Cost      float64           `json:"cost"`
	Handlers  []snapshotHandler `json:"handlers,omitempty"`
}

// Archive 生成批记录的完工快照并落库。这是完工流程的硬门槛：失败则整个
// 流程中止且无任何副作用。快照落库后尽力同步一份到对象存储，失败只记日志。
func (s *HistoryService) Archive(ctx context.Context, rec *entity.BatchRecord, materialCost, laborCost, totalPrice float64, operator string, now time.Time) (*entity.HistoryEntry, error) {
	snap := struct {
		Materials []snapshotMaterial `json:"materials"`
		Processes []snapshotProcess  `json:"processes"`
	}{}

	for i := range rec.Materials {
		m := &rec.Materials[i]
		qty, price := m.TotalQty, m.AvgPrice
		if !(qty > 0 && price > 0) {
			qty, price = m.RequestedQty, m.UnitPrice
		}
		snap.Materials = append(snap.Materials, snapshotMaterial{
			RawMaterial: m.RawMaterial,
			PartNo:      m.PartNo,
			Barcodes:    m.Barcodes(),
			Qty:         qty,
			Price:       price,
			LineTotal:   m.LineTotal(),
			IssuedBy:    m.IssuedBy,
			ReceivedBy:  m.ReceivedBy,
			Variants:    m.VariantAllocations,
		})
	}
	for i := range rec.Processes {
		p := &rec.Processes[i]
		sp := snapshotProcess{
			Name:      p.Name,
			Rate:      p.RatePerMin,
			ElapsedMs: p.Timer.CurrentElapsed(now),
			Cost:      p.Cost(now),
		}
		for j := range p.Handlers {
			h := &p.Handlers[j]
			sp.Handlers = append(sp.Handlers, snapshotHandler{
				Name:      h.Name,
				Rate:      h.RatePerMin,
				ElapsedMs: h.Timer.CurrentElapsed(now),
				Cost:      h.RatePerMin * float64(h.Timer.CurrentElapsed(now)) / 60000.0,
			})
		}
		snap.Processes = append(snap.Processes, sp)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("序列化完工快照失败: %w", err)
	}

	entry := &entity.HistoryEntry{
		ID:           uuid.New().String(),
		RecordID:     rec.ID,
		RecordNo:     rec.RecordNo,
		ProductName:  rec.ProductName,
		BatchSize:    rec.BatchSize,
		MaterialCost: materialCost,
		LaborCost:    laborCost,
		TotalPrice:   totalPrice,
		Snapshot:     string(raw),
		CompletedBy:  operator,
		CompletedAt:  now,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("写入归档快照失败: %w", err)
	}

	if s.minioClient != nil && s.bucket != "" {
		objectName := fmt.Sprintf("history/%s.json", rec.RecordNo)
		_, err := s.minioClient.PutObject(ctx, s.bucket, objectName,
			bytes.NewReader(raw), int64(len(raw)),
			minio.PutObjectOptions{ContentType: "application/json"})
		if err != nil {
			s.logger.Warn("归档快照同步对象存储失败",
				zap.String("object", objectName), zap.Error(err))
		}
	}

	return entry, nil
}

func (s *HistoryService) Get(ctx context.Context, id string) (*entity.HistoryEntry, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *HistoryService) List(ctx context.Context, page, size int) ([]entity.HistoryEntry, int64, error) {
	return s.repo.List(ctx, page, size)
}

var historyExportHeaders = []string{"批记录号", "产品", "批量", "物料成本", "人工成本", "总成本", "完工人", "完工时间"}

// Export 导出完工历史
func (s *HistoryService) Export(ctx context.Context) (*excelize.File, string, error) {
	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("读取归档失败: %w", err)
	}

	f := excelize.NewFile()
	sheet := "完工历史"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	for i, h := range historyExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for i, e := range entries {
		row := i + 2
		values := []interface{}{
			e.RecordNo, e.ProductName, e.BatchSize, e.MaterialCost,
			e.LaborCost, e.TotalPrice, e.CompletedBy,
			e.CompletedAt.Format("2006-01-02 15:04:05"),
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	filename := fmt.Sprintf("bmr_history_%s.xlsx", time.Now().Format("20060102"))
	return f, filename, nil
}
