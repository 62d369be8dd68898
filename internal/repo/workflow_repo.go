package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/secrets"
)

// WorkflowRepo — репозиторий workflow.
//
// Граф (узлы и связи) хранится в JSONB. Чувствительные поля конфигов
// шифруются кодеком на границе записи; чтение возвращает граф как есть —
// расшифровка происходит в движке непосредственно перед выполнением.
type WorkflowRepo struct {
	pool  *pgxpool.Pool
	codec *secrets.Codec
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
// codec может быть nil — тогда графы пишутся без шифрования (тесты).
func NewWorkflowRepo(pool *pgxpool.Pool, codec *secrets.Codec) *WorkflowRepo {
	return &WorkflowRepo{pool: pool, codec: codec}
}

// Create создаёт новый workflow.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	if wf.ID == uuid.Nil {
		wf.ID = uuid.New()
	}
	now := time.Now()
	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = now
	}
	wf.UpdatedAt = now

	nodes, connections, err := r.marshalGraph(wf)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (id, name, is_active, nodes, connections, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		wf.Active,
		nodes,
		connections,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// Update обновляет имя и граф workflow.
func (r *WorkflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	wf.UpdatedAt = time.Now()

	nodes, connections, err := r.marshalGraph(wf)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflows
		SET name = $2, nodes = $3, connections = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		nodes,
		connections,
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает workflow по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT id, name, is_active, nodes, connections, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`
	return r.scanWorkflow(r.pool.QueryRow(ctx, query, id))
}

// List возвращает все workflow, новые первыми.
func (r *WorkflowRepo) List(ctx context.Context) ([]domain.Workflow, error) {
	query := `
		SELECT id, name, is_active, nodes, connections, created_at, updated_at
		FROM workflows
		ORDER BY created_at DESC
	`
	return r.queryWorkflows(ctx, query)
}

// ListActive возвращает workflow, помеченные активными.
func (r *WorkflowRepo) ListActive(ctx context.Context) ([]domain.Workflow, error) {
	query := `
		SELECT id, name, is_active, nodes, connections, created_at, updated_at
		FROM workflows
		WHERE is_active = true
		ORDER BY created_at
	`
	return r.queryWorkflows(ctx, query)
}

// SetActive выставляет флаг активности workflow.
func (r *WorkflowRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE workflows
		SET is_active = $2, updated_at = $3
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, active, time.Now())
	if err != nil {
		return fmt.Errorf("set workflow active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет workflow.
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// marshalGraph сериализует граф в JSONB, предварительно зашифровав
// чувствительные поля конфигов узлов.
//
// Fail-closed: ошибка шифрования прерывает запись целиком,
// частично зашифрованный граф в БД не попадает.
func (r *WorkflowRepo) marshalGraph(wf *domain.Workflow) ([]byte, []byte, error) {
	nodes := make([]domain.NodeInstance, len(wf.Nodes))
	copy(nodes, wf.Nodes)

	if r.codec != nil {
		for i := range nodes {
			// Шифруем копию конфига, не исходный.
			if nodes[i].Config != nil {
				cfg := make(map[string]any, len(nodes[i].Config))
				for k, v := range nodes[i].Config {
					cfg[k] = v
				}
				nodes[i].Config = cfg
			}
			if err := r.codec.EncryptNodeConfig(&nodes[i]); err != nil {
				return nil, nil, fmt.Errorf("encrypt node %s config: %w", nodes[i].ID, err)
			}
		}
	}

	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal nodes: %w", err)
	}
	connectionsJSON, err := json.Marshal(wf.Connections)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal connections: %w", err)
	}
	return nodesJSON, connectionsJSON, nil
}

func (r *WorkflowRepo) queryWorkflows(ctx context.Context, query string, args ...any) ([]domain.Workflow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

func (r *WorkflowRepo) scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var (
		wf              domain.Workflow
		nodesJSON       []byte
		connectionsJSON []byte
	)
	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&wf.Active,
		&nodesJSON,
		&connectionsJSON,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if err := json.Unmarshal(nodesJSON, &wf.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal(connectionsJSON, &wf.Connections); err != nil {
		return nil, fmt.Errorf("unmarshal connections: %w", err)
	}
	return &wf, nil
}
