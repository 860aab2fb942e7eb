package handler

import (
	"net/http"

	"github.com/Phoneix-pro/bmr-engine/internal/service"
	"github.com/gin-gonic/gin"
)

// ProcessHandler 工序计时与费用接口
type ProcessHandler struct {
	timer   *service.TimerService
	process *service.ProcessService
	record  *service.RecordService
}

func NewProcessHandler(timer *service.TimerService, process *service.ProcessService, record *service.RecordService) *ProcessHandler {
	return &ProcessHandler{timer: timer, process: process, record: record}
}

// Timer 操作工序自身计时器，action ∈ start|pause|stop
func (h *ProcessHandler) Timer(c *gin.Context) {
	p, err := h.timer.ApplyProcess(c.Request.Context(), c.Param("id"), c.Param("action"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": p})
}

// HandlerTimer 操作工人计时器
func (h *ProcessHandler) HandlerTimer(c *gin.Context) {
	hd, err := h.timer.ApplyHandler(c.Request.Context(), c.Param("id"), c.Param("action"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": hd})
}

// Cost 工序实时费用
func (h *ProcessHandler) Cost(c *gin.Context) {
	cost, err := h.process.CurrentCost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": cost})
}

// AddHandler 给工序加工人
func (h *ProcessHandler) AddHandler(c *gin.Context) {
	var req service.HandlerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	hd, err := h.record.AddHandler(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": hd})
}

// Delete 删除工序
func (h *ProcessHandler) Delete(c *gin.Context) {
	if err := h.record.RemoveProcess(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success"})
}
