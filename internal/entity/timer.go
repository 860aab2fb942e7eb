package entity

import (
	"errors"
	"fmt"
	"time"
)

// TimerStatus 计时器状态
const (
	TimerStatusInitiate  = "initiate"
	TimerStatusRunning   = "running"
	TimerStatusPaused    = "paused"
	TimerStatusCompleted = "completed"
)

// ErrInvalidTransition 计时器状态不允许该操作
var ErrInvalidTransition = errors.New("invalid timer transition")

// Timer 工序/工人计时器。
// ElapsedMs 只保存历史累计时长，不含正在运行的区间；运行中的区间由
// now - TimerAnchor 实时推算。恢复时重算锚点 anchor = now - elapsed，
// 因此暂停/恢复无损，进程休眠多久都不影响计时，也不需要后台时钟。
// completed 为终态，耗时与费用在 Stop 边界冻结。
type Timer struct {
	Status      string     `json:"status" gorm:"size:16;not null;default:initiate"`
	ElapsedMs   int64      `json:"elapsed_ms" gorm:"not null;default:0"`
	TimerAnchor *time.Time `json:"timer_anchor"`
	StartedAt   *time.Time `json:"started_at"`
	PausedAt    *time.Time `json:"paused_at"`
	EndedAt     *time.Time `json:"ended_at"`
}

// Start 启动或恢复计时，要求当前为 initiate 或 paused
func (t *Timer) Start(now time.Time) error {
	if t.Status != TimerStatusInitiate && t.Status != TimerStatusPaused {
		return fmt.Errorf("%w: 当前状态[%s]不允许启动", ErrInvalidTransition, t.Status)
	}
	anchor := now.Add(-time.Duration(t.ElapsedMs) * time.Millisecond)
	t.TimerAnchor = &anchor
	if t.StartedAt == nil {
		t.StartedAt = &now
	}
	t.Status = TimerStatusRunning
	return nil
}

// Pause 暂停计时，结算当前区间写入 ElapsedMs 并清空锚点
func (t *Timer) Pause(now time.Time) error {
	if t.Status != TimerStatusRunning {
		return fmt.Errorf("%w: 当前状态[%s]不允许暂停", ErrInvalidTransition, t.Status)
	}
	if t.TimerAnchor != nil {
		t.ElapsedMs = now.Sub(*t.TimerAnchor).Milliseconds()
	}
	t.TimerAnchor = nil
	t.PausedAt = &now
	t.Status = TimerStatusPaused
	return nil
}

// Stop 结束计时并进入终态，不可逆
func (t *Timer) Stop(now time.Time) error {
	if t.Status != TimerStatusRunning && t.Status != TimerStatusPaused {
		return fmt.Errorf("%w: 当前状态[%s]不允许结束", ErrInvalidTransition, t.Status)
	}
	if t.Status == TimerStatusRunning && t.TimerAnchor != nil {
		t.ElapsedMs = now.Sub(*t.TimerAnchor).Milliseconds()
	}
	t.TimerAnchor = nil
	t.EndedAt = &now
	t.Status = TimerStatusCompleted
	return nil
}

// CurrentElapsed 当前累计时长（毫秒）。纯读取，任意频率轮询都不产生副作用，
// 累计值只在 Pause/Stop 时落盘。
func (t *Timer) CurrentElapsed(now time.Time) int64 {
	if t.Status == TimerStatusRunning && t.TimerAnchor != nil {
		return now.Sub(*t.TimerAnchor).Milliseconds()
	}
	return t.ElapsedMs
}
