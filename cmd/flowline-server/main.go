package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Flowline/internal/api"
	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
	"github.com/shaiso/Flowline/internal/mq"
	"github.com/shaiso/Flowline/internal/nodes"
	"github.com/shaiso/Flowline/internal/repo"
	"github.com/shaiso/Flowline/internal/runner"
	"github.com/shaiso/Flowline/internal/scheduler"
	"github.com/shaiso/Flowline/internal/secrets"
	"github.com/shaiso/Flowline/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting flowline-server")

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Кодек для чувствительных полей конфигов узлов
	codec, err := secrets.NewCodecFromEnv(logger)
	if err != nil {
		logger.Error("failed to initialize credential codec", "error", err)
		os.Exit(1)
	}

	// RabbitMQ опционален: без MQ_URL queue-узлы и queue-триггер отключены
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	if url := os.Getenv("MQ_URL"); url != "" {
		mqConn, err = mq.NewConnection(url, logger)
		if err != nil {
			logger.Error("failed to connect to message broker", "error", err)
			os.Exit(1)
		}
		defer mqConn.Close()

		if err := mq.SetupTopology(context.Background(), mqConn); err != nil {
			logger.Error("failed to declare broker topology", "error", err)
			os.Exit(1)
		}
		publisher = mq.NewPublisher(mqConn, logger)
		logger.Info("connected to message broker")
	}

	// Репозитории
	workflowRepo := repo.NewWorkflowRepo(pool, codec)
	executionRepo := repo.NewExecutionRepo(pool)

	// Движок выполнения и планировщик
	registry := nodes.DefaultRegistry(publisher, logger)
	eng := runner.NewEngine(codec, registry, executionRepo, logger)

	sched := scheduler.New(scheduler.Config{
		Store:  workflowRepo,
		Runner: eng,
		Logger: logger,
	})
	if err := sched.Initialize(context.Background()); err != nil {
		logger.Error("failed to initialize scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Shutdown()

	// Queue-триггер: входящие сообщения брокера запускают workflow
	var triggerConsumer *mq.Consumer
	if mqConn != nil {
		triggerConsumer = mq.NewTriggerConsumer(mqConn, logger,
			func(ctx context.Context, workflowID uuid.UUID, payload map[string]any) error {
				wf, err := workflowRepo.GetByID(ctx, workflowID)
				if err != nil {
					return fmt.Errorf("load workflow %s: %w", workflowID, err)
				}

				initial := map[string]any{
					engine.TriggerKey: string(domain.NodeTypeQueueTrigger),
					"payload":         payload,
				}
				_, err = sched.ExecuteNow(ctx, wf, initial)
				return err
			})
		if err := triggerConsumer.Start(context.Background()); err != nil {
			logger.Error("failed to start trigger consumer", "error", err)
			os.Exit(1)
		}
		defer triggerConsumer.Stop()
	}

	// API handler
	handler := api.NewHandler(api.Config{
		WorkflowRepo:  workflowRepo,
		ExecutionRepo: executionRepo,
		Scheduler:     sched,
		Logger:        logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
