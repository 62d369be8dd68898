package api

import (
	"log/slog"

	"github.com/shaiso/Flowline/internal/repo"
	"github.com/shaiso/Flowline/internal/scheduler"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflowRepo  *repo.WorkflowRepo
	executionRepo *repo.ExecutionRepo
	scheduler     *scheduler.Scheduler
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	WorkflowRepo  *repo.WorkflowRepo
	ExecutionRepo *repo.ExecutionRepo
	Scheduler     *scheduler.Scheduler
	Logger        *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		workflowRepo:  cfg.WorkflowRepo,
		executionRepo: cfg.ExecutionRepo,
		scheduler:     cfg.Scheduler,
		logger:        cfg.Logger,
	}
}
