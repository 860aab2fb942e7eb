package service

import (
	"github.com/Phoneix-pro/bmr-engine/internal/config"
	"github.com/Phoneix-pro/bmr-engine/internal/repository"
	"github.com/Phoneix-pro/bmr-engine/internal/sse"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Timer      *TimerService
	Process    *ProcessService
	Record     *RecordService
	Allocation *AllocationService
	Stock      *StockService
	History    *HistoryService
	Completion *CompletionService
}

// NewServices 创建服务集合。redis与MinIO均为可选依赖：redis缺席时完工互斥
// 退化为仅状态CAS，MinIO缺席时归档快照只落库。
func NewServices(repos *repository.Repositories, rdb *redis.Client, hub *sse.Hub, cfg *config.Config, logger *zap.Logger) *Services {
	var minioClient *minio.Client
	var minioBucket string
	if cfg != nil && cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("MinIO客户端初始化失败，归档快照只落库", zap.Error(err))
			minioClient = nil
		}
		minioBucket = cfg.MinIO.Bucket
	}

	alloc := NewAllocationService(repos.Lot, repos.Stock, repos.Movement, logger)
	stock := NewStockService(repos.Stock, repos.Lot, repos.Movement, logger)
	history := NewHistoryService(repos.History, minioClient, minioBucket, logger)

	return &Services{
		Timer:      NewTimerService(repos.Process, logger),
		Process:    NewProcessService(repos.Process),
		Record:     NewRecordService(repos.Record, repos.Material, repos.Process, logger),
		Allocation: alloc,
		Stock:      stock,
		History:    history,
		Completion: NewCompletionService(repos.Record, repos.Movement, history, alloc, stock, rdb, hub, logger),
	}
}
