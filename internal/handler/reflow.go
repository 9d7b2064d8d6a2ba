// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/chongpai/chongpai/internal/metrics"
	"github.com/chongpai/chongpai/internal/repository"
	"github.com/chongpai/chongpai/pkg/errors"
	"github.com/chongpai/chongpai/pkg/logger"
	"github.com/chongpai/chongpai/pkg/model"
	"github.com/chongpai/chongpai/pkg/reflow"
	"github.com/chongpai/chongpai/pkg/validator"
)

// ReflowHandler 重排处理器
type ReflowHandler struct {
	engine  *reflow.Engine
	checker *validator.Checker
	runs    repository.ReflowRunRepositoryInterface // 可为 nil（不落库）
	timeout time.Duration
}

// NewReflowHandler 创建重排处理器
func NewReflowHandler(engine *reflow.Engine, runs repository.ReflowRunRepositoryInterface, timeout time.Duration) *ReflowHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReflowHandler{
		engine:  engine,
		checker: validator.NewChecker(),
		runs:    runs,
		timeout: timeout,
	}
}

// ReflowRequest 重排请求
type ReflowRequest struct {
	WorkOrders          []*model.WorkOrder          `json:"work_orders"`
	WorkCenters         []*model.WorkCenter         `json:"work_centers"`
	ManufacturingOrders []*model.ManufacturingOrder `json:"manufacturing_orders,omitempty"`
}

// ReflowResponse 重排响应
type ReflowResponse struct {
	IsValid           bool                        `json:"is_valid"`
	UpdatedWorkOrders []*model.WorkOrder          `json:"updated_work_orders"`
	Changes           []model.WorkOrderChange     `json:"changes"`
	Violations        []model.ConstraintViolation `json:"violations"`
	Explanation       string                      `json:"explanation"`
	TotalDelayMinutes int                         `json:"total_delay_minutes"`
	RunID             string                      `json:"run_id,omitempty"`
	Duration          string                      `json:"duration"`
}

// Execute 执行重排
func (h *ReflowHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ReflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	if appErr := validateReflowRequest(&req); appErr != nil {
		respondError(w, appErr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	result := h.engine.Reflow(ctx, &model.ReflowInput{
		WorkOrders:          req.WorkOrders,
		WorkCenters:         req.WorkCenters,
		ManufacturingOrders: req.ManufacturingOrders,
	})
	duration := time.Since(start)

	metrics.RecordReflowRun(result.IsValid, duration, result.TotalDelayMinutes())
	for _, v := range result.Violations {
		metrics.RecordViolation(string(v.Type))
	}

	resp := ReflowResponse{
		IsValid:           result.IsValid,
		UpdatedWorkOrders: result.UpdatedWorkOrders,
		Changes:           result.Changes,
		Violations:        result.Violations,
		Explanation:       result.Explanation,
		TotalDelayMinutes: result.TotalDelayMinutes(),
		Duration:          duration.String(),
	}

	if h.runs != nil {
		run, err := h.runs.SaveResult(r.Context(), result)
		if err != nil {
			// 落库失败不影响重排结果返回
			logger.Warn().Err(err).Msg("重排结果落库失败")
		} else {
			resp.RunID = run.ID.String()
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// ValidateResponse 验证响应
type ValidateResponse struct {
	IsValid    bool                        `json:"is_valid"`
	Violations []model.ConstraintViolation `json:"violations"`
}

// Validate 只做约束检查，不重排
func (h *ReflowHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ReflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	violations := h.checker.Validate(req.WorkOrders, req.WorkCenters)
	if violations == nil {
		violations = []model.ConstraintViolation{}
	}

	for _, v := range violations {
		metrics.RecordViolation(string(v.Type))
	}

	respondJSON(w, http.StatusOK, ValidateResponse{
		IsValid:    len(violations) == 0,
		Violations: violations,
	})
}

// validateReflowRequest 验证请求
func validateReflowRequest(req *ReflowRequest) *errors.AppError {
	for _, wo := range req.WorkOrders {
		if wo.ID == "" {
			return errors.InvalidInput("work_orders", "工单ID不能为空")
		}
		if wo.DurationMinutes < 0 {
			return errors.InvalidInput("work_orders", "工单 "+wo.ID+" 的工时不能为负")
		}
	}
	for _, wc := range req.WorkCenters {
		if wc.ID == "" {
			return errors.InvalidInput("work_centers", "工作中心ID不能为空")
		}
	}
	return nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}
