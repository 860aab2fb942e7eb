package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"github.com/Phoneix-pro/bmr-engine/internal/repository"
	"go.uber.org/zap"
)

// TimerAction 计时器操作
const (
	TimerActionStart = "start"
	TimerActionPause = "pause"
	TimerActionStop  = "stop"
)

// TimerService 计时服务。状态机本体在 entity.Timer 上，每个工序/工人各持
// 一个计时器，互相独立，可并行运行，这里只负责装载、流转、落库。
type TimerService struct {
	repo   *repository.ProcessRepository
	logger *zap.Logger
}

func NewTimerService(repo *repository.ProcessRepository, logger *zap.Logger) *TimerService {
	return &TimerService{repo: repo, logger: logger}
}

// ApplyProcess 操作工序自身计时器。工序配置了工人时自身计时字段失效，
// 必须改为对工人计时。
func (s *TimerService) ApplyProcess(ctx context.Context, id, action string) (*entity.Process, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查找工序失败: %w", err)
	}
	if len(p.Handlers) > 0 {
		return nil, fmt.Errorf("%w: 工序已配置工人，请对工人计时", entity.ErrInvalidTransition)
	}
	if err := applyTimer(&p.Timer, action, time.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("保存工序计时状态失败: %w", err)
	}
	s.logger.Info("工序计时器流转",
		zap.String("process_id", p.ID),
		zap.String("action", action),
		zap.String("status", p.Timer.Status),
		zap.Int64("elapsed_ms", p.Timer.ElapsedMs),
	)
	return p, nil
}

// ApplyHandler 操作工人计时器
func (s *TimerService) ApplyHandler(ctx context.Context, id, action string) (*entity.ProcessHandler, error) {
	h, err := s.repo.FindHandlerByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查找工人失败: %w", err)
	}
	if err := applyTimer(&h.Timer, action, time.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateHandler(ctx, h); err != nil {
		return nil, fmt.Errorf("保存工人计时状态失败: %w", err)
	}
	s.logger.Info("工人计时器流转",
		zap.String("handler_id", h.ID),
		zap.String("action", action),
		zap.String("status", h.Timer.Status),
		zap.Int64("elapsed_ms", h.Timer.ElapsedMs),
	)
	return h, nil
}

func applyTimer(t *entity.Timer, action string, now time.Time) error {
	switch action {
	case TimerActionStart:
		return t.Start(now)
	case TimerActionPause:
		return t.Pause(now)
	case TimerActionStop:
		return t.Stop(now)
	}
	return fmt.Errorf("%w: 未知操作 %s", entity.ErrInvalidTransition, action)
}
