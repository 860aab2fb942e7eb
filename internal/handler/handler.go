package handler

import (
	"errors"
	"net/http"

	"github.com/Phoneix-pro/bmr-engine/internal/entity"
	"github.com/Phoneix-pro/bmr-engine/internal/repository"
	"github.com/Phoneix-pro/bmr-engine/internal/service"
	"github.com/Phoneix-pro/bmr-engine/internal/sse"
	"github.com/gin-gonic/gin"
)

// Handlers HTTP处理器集合
type Handlers struct {
	Record  *RecordHandler
	Process *ProcessHandler
	Stock   *StockHandler
	History *HistoryHandler
	Events  *EventsHandler
}

func NewHandlers(services *service.Services, hub *sse.Hub) *Handlers {
	return &Handlers{
		Record:  NewRecordHandler(services.Record, services.Completion),
		Process: NewProcessHandler(services.Timer, services.Process, services.Record),
		Stock:   NewStockHandler(services.Stock),
		History: NewHistoryHandler(services.History),
		Events:  NewEventsHandler(hub),
	}
}

// respondError 把服务层错误映射为统一响应
func respondError(c *gin.Context, err error) {
	var partial *service.PartialCompletionError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": "记录不存在"})
	case errors.Is(err, entity.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"code": 10004, "message": err.Error()})
	case errors.Is(err, service.ErrNotReady):
		c.JSON(http.StatusBadRequest, gin.H{"code": 10005, "message": err.Error()})
	case errors.Is(err, service.ErrRecordBusy):
		c.JSON(http.StatusConflict, gin.H{"code": 10006, "message": err.Error()})
	case errors.Is(err, service.ErrRecordCompleted):
		c.JSON(http.StatusBadRequest, gin.H{"code": 10007, "message": err.Error()})
	case errors.As(err, &partial):
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    50002,
			"message": partial.Error(),
			"data": gin.H{
				"record_id":  partial.RecordID,
				"history_id": partial.HistoryID,
				"steps":      partial.Steps,
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
	}
}

func currentUserID(c *gin.Context) string {
	if userID, ok := c.Get("user_id"); ok {
		if s, ok := userID.(string); ok {
			return s
		}
	}
	return ""
}
