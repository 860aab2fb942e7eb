package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotReady 完工前置条件不满足：仍有工序未完成
	ErrNotReady = errors.New("尚有工序未完成，不能完工")
	// ErrRecordBusy 批记录正被另一个完工流程持有，或状态不允许完工
	ErrRecordBusy = errors.New("批记录当前状态不允许完工")
	// ErrRecordCompleted 批记录已完工，禁止再变更
	ErrRecordCompleted = errors.New("批记录已完工")
)

// 完工流程步骤名，归档成功后出现故障时随 PartialCompletionError 上报
const (
	StepArchive   = "archive"
	StepInventory = "inventory"
	StepStock     = "stock"
	StepCleanup   = "cleanup"
	StepFinalize  = "finalize"
)

// PartialCompletionError 完工流程在归档之后某一步失败。
// 归档既已落库，此时不回滚，Steps 记录已提交的步骤，供运维或重试路径续作。
type PartialCompletionError struct {
	RecordID  string
	HistoryID string
	Steps     []string
	Err       error
}

func (e *PartialCompletionError) Error() string {
	return fmt.Sprintf("批记录[%s]完工部分失败, 已提交步骤[%s]: %v",
		e.RecordID, strings.Join(e.Steps, ","), e.Err)
}

func (e *PartialCompletionError) Unwrap() error {
	return e.Err
}
