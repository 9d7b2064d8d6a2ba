// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chongpai/chongpai/pkg/model"
	"github.com/google/uuid"
)

// ReflowRun 重排执行记录
type ReflowRun struct {
	ID                uuid.UUID      `json:"id"`
	TotalOrders       int            `json:"total_orders"`
	ChangedOrders     int            `json:"changed_orders"`
	TotalDelayMinutes int            `json:"total_delay_minutes"`
	IsValid           bool           `json:"is_valid"`
	ViolationCount    int            `json:"violation_count"`
	Explanation       string         `json:"explanation"`
	Violations        map[string]any `json:"violations,omitempty"` // 按类型计数
	ExecutedAt        time.Time      `json:"executed_at"`
	CreatedAt         time.Time      `json:"created_at"`
}

// ReflowChange 重排变更记录
type ReflowChange struct {
	ID              uuid.UUID `json:"id"`
	RunID           uuid.UUID `json:"run_id"`
	WorkOrderID     string    `json:"work_order_id"`
	WorkOrderNumber string    `json:"work_order_number"`
	Field           string    `json:"field"`
	OldValue        time.Time `json:"old_value"`
	NewValue        time.Time `json:"new_value"`
	DelayMinutes    int       `json:"delay_minutes"`
	Reason          string    `json:"reason"`
	CreatedAt       time.Time `json:"created_at"`
}

// ReflowRunRepositoryInterface 重排记录仓储接口
type ReflowRunRepositoryInterface interface {
	SaveResult(ctx context.Context, result *model.ReflowResult) (*ReflowRun, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ReflowRun, error)
	List(ctx context.Context, filter ListFilter) ([]*ReflowRun, int, error)
	GetChanges(ctx context.Context, runID uuid.UUID) ([]*ReflowChange, error)
}

// ReflowRunRepository 重排记录仓储实现
type ReflowRunRepository struct {
	db DB
}

// NewReflowRunRepository 创建重排记录仓储
func NewReflowRunRepository(db DB) *ReflowRunRepository {
	return &ReflowRunRepository{db: db}
}

// SaveResult 持久化一次重排结果（执行记录 + 逐条变更）
func (r *ReflowRunRepository) SaveResult(ctx context.Context, result *model.ReflowResult) (*ReflowRun, error) {
	now := time.Now().UTC()

	byType := make(map[string]any)
	for _, v := range result.Violations {
		key := string(v.Type)
		if n, ok := byType[key].(int); ok {
			byType[key] = n + 1
		} else {
			byType[key] = 1
		}
	}

	changed := make(map[string]struct{})
	for _, c := range result.Changes {
		changed[c.WorkOrderID] = struct{}{}
	}

	run := &ReflowRun{
		ID:                uuid.New(),
		TotalOrders:       len(result.UpdatedWorkOrders),
		ChangedOrders:     len(changed),
		TotalDelayMinutes: result.TotalDelayMinutes(),
		IsValid:           result.IsValid,
		ViolationCount:    len(result.Violations),
		Explanation:       result.Explanation,
		Violations:        byType,
		ExecutedAt:        now,
		CreatedAt:         now,
	}

	violationsJSON, _ := json.Marshal(run.Violations)

	query := `
		INSERT INTO reflow_runs (
			id, total_orders, changed_orders, total_delay_minutes,
			is_valid, violation_count, explanation, violations,
			executed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.TotalOrders, run.ChangedOrders, run.TotalDelayMinutes,
		run.IsValid, run.ViolationCount, run.Explanation, violationsJSON,
		run.ExecutedAt, run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("创建重排记录失败: %w", err)
	}

	for _, c := range result.Changes {
		if err := r.createChange(ctx, run.ID, c, now); err != nil {
			return nil, err
		}
	}

	return run, nil
}

// createChange 创建单条变更记录
func (r *ReflowRunRepository) createChange(ctx context.Context, runID uuid.UUID, c model.WorkOrderChange, now time.Time) error {
	query := `
		INSERT INTO reflow_changes (
			id, run_id, work_order_id, work_order_number, field,
			old_value, new_value, delay_minutes, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New(), runID, c.WorkOrderID, c.WorkOrderNumber, string(c.Field),
		c.OldValue, c.NewValue, c.DelayMinutes, c.Reason, now,
	)
	if err != nil {
		return fmt.Errorf("创建变更记录失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取重排记录
func (r *ReflowRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*ReflowRun, error) {
	query := `
		SELECT id, total_orders, changed_orders, total_delay_minutes,
			is_valid, violation_count, explanation, violations,
			executed_at, created_at
		FROM reflow_runs
		WHERE id = $1
	`

	return scanRun(r.db.QueryRowContext(ctx, query, id))
}

// List 列出重排记录
func (r *ReflowRunRepository) List(ctx context.Context, filter ListFilter) ([]*ReflowRun, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("is_valid = $%d", argNum))
		args = append(args, filter.Status == "valid")
		argNum++
	}

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("executed_at >= $%d", argNum))
		args = append(args, filter.StartDate)
		argNum++
	}

	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("executed_at <= $%d", argNum))
		args = append(args, filter.EndDate)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM reflow_runs %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计重排记录失败: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, total_orders, changed_orders, total_delay_minutes,
			is_valid, violation_count, explanation, violations,
			executed_at, created_at
		FROM reflow_runs %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, filter.OrderBy, filter.OrderDir, argNum, argNum+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询重排记录失败: %w", err)
	}
	defer rows.Close()

	var runs []*ReflowRun
	for rows.Next() {
		run, err := scanRunFromRows(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}

	return runs, total, nil
}

// GetChanges 获取一次重排的全部变更
func (r *ReflowRunRepository) GetChanges(ctx context.Context, runID uuid.UUID) ([]*ReflowChange, error) {
	query := `
		SELECT id, run_id, work_order_id, work_order_number, field,
			old_value, new_value, delay_minutes, reason, created_at
		FROM reflow_changes
		WHERE run_id = $1
		ORDER BY created_at, work_order_number
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("查询变更记录失败: %w", err)
	}
	defer rows.Close()

	var changes []*ReflowChange
	for rows.Next() {
		c := &ReflowChange{}
		if err := rows.Scan(
			&c.ID, &c.RunID, &c.WorkOrderID, &c.WorkOrderNumber, &c.Field,
			&c.OldValue, &c.NewValue, &c.DelayMinutes, &c.Reason, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描变更记录失败: %w", err)
		}
		changes = append(changes, c)
	}

	return changes, nil
}

// scanRun 扫描单行重排记录
func scanRun(row *sql.Row) (*ReflowRun, error) {
	run := &ReflowRun{}
	var violationsJSON []byte

	err := row.Scan(
		&run.ID, &run.TotalOrders, &run.ChangedOrders, &run.TotalDelayMinutes,
		&run.IsValid, &run.ViolationCount, &run.Explanation, &violationsJSON,
		&run.ExecutedAt, &run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描重排记录失败: %w", err)
	}

	if len(violationsJSON) > 0 {
		json.Unmarshal(violationsJSON, &run.Violations)
	}

	return run, nil
}

// scanRunFromRows 从多行结果扫描
func scanRunFromRows(rows *sql.Rows) (*ReflowRun, error) {
	run := &ReflowRun{}
	var violationsJSON []byte

	err := rows.Scan(
		&run.ID, &run.TotalOrders, &run.ChangedOrders, &run.TotalDelayMinutes,
		&run.IsValid, &run.ViolationCount, &run.Explanation, &violationsJSON,
		&run.ExecutedAt, &run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("扫描重排记录失败: %w", err)
	}

	if len(violationsJSON) > 0 {
		json.Unmarshal(violationsJSON, &run.Violations)
	}

	return run, nil
}
