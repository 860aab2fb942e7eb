package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Phoneix-pro/bmr-engine/internal/repository"
)

// ProcessService 工序费用读取服务
type ProcessService struct {
	repo *repository.ProcessRepository
}

func NewProcessService(repo *repository.ProcessRepository) *ProcessService {
	return &ProcessService{repo: repo}
}

// ProcessCost 工序当前费用快照
type ProcessCost struct {
	ProcessID string  `json:"process_id"`
	Status    string  `json:"status"`
	ElapsedMs int64   `json:"elapsed_ms"`
	Cost      float64 `json:"cost"`
}

// CurrentCost 读取工序实时费用。每次调用基于计时器现算，不缓存，
// 因此与计时引擎永远一致，可任意频率轮询。
func (s *ProcessService) CurrentCost(ctx context.Context, id string) (*ProcessCost, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查找工序失败: %w", err)
	}
	now := time.Now()
	elapsed := p.Timer.CurrentElapsed(now)
	if len(p.Handlers) > 0 {
		elapsed = 0
		for i := range p.Handlers {
			elapsed += p.Handlers[i].Timer.CurrentElapsed(now)
		}
	}
	return &ProcessCost{
		ProcessID: p.ID,
		Status:    p.EffectiveStatus(),
		ElapsedMs: elapsed,
		Cost:      p.Cost(now),
	}, nil
}
