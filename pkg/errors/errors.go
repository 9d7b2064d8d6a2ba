// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeTimeout      Code = "TIMEOUT"
	CodeRateLimited  Code = "RATE_LIMITED"

	// 重排引擎相关
	CodeCircularDependency      Code = "CIRCULAR_DEPENDENCY"       // 工单依赖成环
	CodeUnknownDependency       Code = "UNKNOWN_DEPENDENCY"        // 引用了不存在的前置工单
	CodeSchedulingBoundExceeded Code = "SCHEDULING_BOUND_EXCEEDED" // 超过调度天数上限
	CodeNoShiftFound            Code = "NO_SHIFT_FOUND"            // 搜索范围内无可用班次
	CodeMissingWorkCenter       Code = "MISSING_WORK_CENTER"       // 工单引用的工作中心缺失
	CodeConstraintViolation     Code = "CONSTRAINT_VIOLATION"      // 约束违反

	// 数据相关
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeValidationFail Code = "VALIDATION_FAILED"
)

// AppError 应用错误
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// codeToHTTPStatus 错误码转HTTP状态码
func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidationFail, CodeUnknownDependency:
		return http.StatusBadRequest
	case CodeNotFound, CodeMissingWorkCenter:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeCircularDependency, CodeSchedulingBoundExceeded, CodeNoShiftFound:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus 获取HTTP状态码
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// 预定义错误
var (
	ErrNotFound     = New(CodeNotFound, "资源不存在")
	ErrInvalidInput = New(CodeInvalidInput, "输入参数无效")
	ErrInternal     = New(CodeInternal, "内部错误")
	ErrTimeout      = New(CodeTimeout, "操作超时")
)

// InvalidInput 创建输入无效错误
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason))
}

// NotFound 创建资源不存在错误
func NotFound(resource, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s '%s' 不存在", resource, id))
}

// CircularDependency 创建循环依赖错误
func CircularDependency(cycle []string) *AppError {
	err := New(CodeCircularDependency, "工单依赖关系成环，无法确定处理顺序")
	return err.WithField("cycle", cycle)
}

// UnknownDependency 创建未知前置工单错误
func UnknownDependency(workOrderID, dependencyID string) *AppError {
	return New(CodeUnknownDependency,
		fmt.Sprintf("工单 %s 引用了不存在的前置工单 %s", workOrderID, dependencyID))
}

// SchedulingBoundExceeded 创建调度越界错误
func SchedulingBoundExceeded(maxDays int) *AppError {
	return New(CodeSchedulingBoundExceeded,
		fmt.Sprintf("%d 天内无法完成调度，请检查班次与维护窗口配置", maxDays))
}

// NoShiftFound 创建无班次错误
func NoShiftFound(maxDays int) *AppError {
	return New(CodeNoShiftFound,
		fmt.Sprintf("%d 天内未找到可用班次，工作中心可能未配置班次表", maxDays))
}

// MissingWorkCenter 创建工作中心缺失错误
func MissingWorkCenter(workOrderID, workCenterID string) *AppError {
	return New(CodeMissingWorkCenter,
		fmt.Sprintf("工单 %s 引用的工作中心 %s 不在输入中", workOrderID, workCenterID))
}
