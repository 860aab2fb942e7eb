package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerTransitions(t *testing.T) {
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  string
		op      func(tm *Timer, now time.Time) error
		wantErr bool
	}{
		{"start from initiate", TimerStatusInitiate, (*Timer).Start, false},
		{"start from paused", TimerStatusPaused, (*Timer).Start, false},
		{"start from running", TimerStatusRunning, (*Timer).Start, true},
		{"start from completed", TimerStatusCompleted, (*Timer).Start, true},
		{"pause from running", TimerStatusRunning, (*Timer).Pause, false},
		{"pause from initiate", TimerStatusInitiate, (*Timer).Pause, true},
		{"pause from paused", TimerStatusPaused, (*Timer).Pause, true},
		{"pause from completed", TimerStatusCompleted, (*Timer).Pause, true},
		{"stop from running", TimerStatusRunning, (*Timer).Stop, false},
		{"stop from paused", TimerStatusPaused, (*Timer).Stop, false},
		{"stop from initiate", TimerStatusInitiate, (*Timer).Stop, true},
		{"stop from completed", TimerStatusCompleted, (*Timer).Stop, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := &Timer{Status: tt.status}
			if tt.status == TimerStatusRunning {
				anchor := base.Add(-time.Minute)
				tm.TimerAnchor = &anchor
			}
			err := tt.op(tm, base)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// 暂停/恢复无损：两段运行区间的耗时严格相加，中间停多久都不影响
func TestTimerPauseResumeAccumulates(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	tm := &Timer{Status: TimerStatusInitiate}

	require.NoError(t, tm.Start(t0))
	assert.Equal(t, TimerStatusRunning, tm.Status)

	// 跑90秒后暂停
	t1 := t0.Add(90 * time.Second)
	require.NoError(t, tm.Pause(t1))
	assert.Equal(t, int64(90_000), tm.ElapsedMs)
	assert.Nil(t, tm.TimerAnchor)

	// 停3天（模拟进程休眠/重启），恢复后再跑30秒
	t2 := t1.Add(72 * time.Hour)
	require.NoError(t, tm.Start(t2))
	t3 := t2.Add(30 * time.Second)
	require.NoError(t, tm.Stop(t3))

	assert.Equal(t, TimerStatusCompleted, tm.Status)
	assert.Equal(t, int64(120_000), tm.ElapsedMs)
	require.NotNil(t, tm.EndedAt)
	assert.True(t, tm.EndedAt.Equal(t3))
}

func TestTimerAnchorDerivation(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	tm := &Timer{Status: TimerStatusPaused, ElapsedMs: 60_000}

	// 恢复时锚点回退已累计时长
	require.NoError(t, tm.Start(t0))
	require.NotNil(t, tm.TimerAnchor)
	assert.True(t, tm.TimerAnchor.Equal(t0.Add(-time.Minute)))

	// 运行中实时推算 = 历史累计 + 当前区间
	assert.Equal(t, int64(75_000), tm.CurrentElapsed(t0.Add(15*time.Second)))
}

// CurrentElapsed 是纯读取，任意频率轮询不改变状态
func TestTimerCurrentElapsedPure(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	tm := &Timer{Status: TimerStatusInitiate}
	require.NoError(t, tm.Start(t0))

	for i := 1; i <= 10; i++ {
		now := t0.Add(time.Duration(i) * time.Second)
		assert.Equal(t, int64(i*1000), tm.CurrentElapsed(now))
	}
	assert.Equal(t, int64(0), tm.ElapsedMs)
	assert.Equal(t, TimerStatusRunning, tm.Status)

	// 非运行态返回落盘累计值
	require.NoError(t, tm.Pause(t0.Add(10*time.Second)))
	assert.Equal(t, int64(10_000), tm.CurrentElapsed(t0.Add(time.Hour)))
}

func TestTimerStopFromPausedKeepsElapsed(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	tm := &Timer{Status: TimerStatusPaused, ElapsedMs: 45_000}

	require.NoError(t, tm.Stop(t0))
	assert.Equal(t, TimerStatusCompleted, tm.Status)
	assert.Equal(t, int64(45_000), tm.ElapsedMs)
	assert.Equal(t, int64(45_000), tm.CurrentElapsed(t0.Add(time.Hour)))
}

func TestTimerStartedAtOnlySetOnce(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	tm := &Timer{Status: TimerStatusInitiate}

	require.NoError(t, tm.Start(t0))
	require.NoError(t, tm.Pause(t0.Add(time.Second)))
	require.NoError(t, tm.Start(t0.Add(time.Minute)))

	require.NotNil(t, tm.StartedAt)
	assert.True(t, tm.StartedAt.Equal(t0))
}
