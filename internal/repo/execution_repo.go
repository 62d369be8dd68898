package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Flowline/internal/domain"
)

// ExecutionRepo — репозиторий запусков workflow.
// Лог запуска хранится в JSONB и перезаписывается целиком при Update.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// Create создаёт запись о запуске.
func (r *ExecutionRepo) Create(ctx context.Context, exec *domain.Execution) error {
	logJSON, err := marshalLog(exec.Log)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO executions (id, workflow_id, status, started_at, finished_at, error, log)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		exec.ID,
		exec.WorkflowID,
		exec.Status,
		exec.StartedAt,
		exec.FinishedAt,
		nullableString(exec.Error),
		logJSON,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// Update перезаписывает статус, время завершения, ошибку и лог запуска.
// Вызывается движком после каждого узла (инкрементальный флаш).
func (r *ExecutionRepo) Update(ctx context.Context, exec *domain.Execution) error {
	logJSON, err := marshalLog(exec.Log)
	if err != nil {
		return err
	}

	query := `
		UPDATE executions
		SET status = $2, finished_at = $3, error = $4, log = $5
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		exec.ID,
		exec.Status,
		exec.FinishedAt,
		nullableString(exec.Error),
		logJSON,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает запуск по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, workflow_id, status, started_at, finished_at, error, log
		FROM executions
		WHERE id = $1
	`
	return scanExecution(r.pool.QueryRow(ctx, query, id))
}

// ListByWorkflow возвращает запуски workflow, новые первыми.
func (r *ExecutionRepo) ListByWorkflow(ctx context.Context, workflowID uuid.UUID, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, workflow_id, status, started_at, finished_at, error, log
		FROM executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *exec)
	}
	return executions, rows.Err()
}

func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var (
		exec    domain.Execution
		errText *string
		logJSON []byte
	)
	err := row.Scan(
		&exec.ID,
		&exec.WorkflowID,
		&exec.Status,
		&exec.StartedAt,
		&exec.FinishedAt,
		&errText,
		&logJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if errText != nil {
		exec.Error = *errText
	}
	if len(logJSON) > 0 {
		if err := json.Unmarshal(logJSON, &exec.Log); err != nil {
			return nil, fmt.Errorf("unmarshal execution log: %w", err)
		}
	}
	return &exec, nil
}

func marshalLog(log []domain.LogEntry) ([]byte, error) {
	if log == nil {
		log = []domain.LogEntry{}
	}
	data, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("marshal execution log: %w", err)
	}
	return data, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
