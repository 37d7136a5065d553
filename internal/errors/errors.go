package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按模块分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown      ErrorCode = 1000
	ErrInvalidParam ErrorCode = 1001
	ErrNotFound     ErrorCode = 1002
	ErrTimeout      ErrorCode = 1003

	// 认证错误 (2000-2999)
	ErrAuthRequired       ErrorCode = 2000
	ErrCredentialMismatch ErrorCode = 2001
	ErrAlreadyOnline      ErrorCode = 2002
	ErrUsernameTaken      ErrorCode = 2003
	ErrTokenInvalid       ErrorCode = 2004
	ErrTokenExpired       ErrorCode = 2005

	// 匹配/挑战错误 (3000-3999)
	ErrSelfChallenge         ErrorCode = 3000
	ErrPeerOffline           ErrorCode = 3001
	ErrChallengeNotFound     ErrorCode = 3002
	ErrChallengeAnswered     ErrorCode = 3003
	ErrNotChallengeRecipient ErrorCode = 3004

	// 对局错误 (4000-4999)
	ErrNoActiveMatch   ErrorCode = 4000
	ErrAttemptLimit    ErrorCode = 4001
	ErrPeerUnreachable ErrorCode = 4002

	// 数据库错误 (5000-5999)
	ErrDatabaseConnect ErrorCode = 5000
	ErrDatabaseQuery   ErrorCode = 5001
	ErrTransaction     ErrorCode = 5002
	ErrStorageConflict ErrorCode = 5003

	// 配置错误 (6000-6999)
	ErrConfigLoad  ErrorCode = 6000
	ErrConfigParse ErrorCode = 6001
)

// 错误码消息映射（协议层直接回给客户端，保持英文）
var errorMessages = map[ErrorCode]string{
	ErrUnknown:      "Internal server error.",
	ErrInvalidParam: "Validation error.",
	ErrNotFound:     "Resource not found.",
	ErrTimeout:      "Operation timed out.",

	ErrAuthRequired:       "You must login first.",
	ErrCredentialMismatch: "Username or password does not match.",
	ErrAlreadyOnline:      "This account is already online.",
	ErrUsernameTaken:      "Username already exists",
	ErrTokenInvalid:       "Invalid token.",
	ErrTokenExpired:       "Token has expired.",

	ErrSelfChallenge:         "You can't send a challenge to yourself.",
	ErrPeerOffline:           "The player is not online right now.",
	ErrChallengeNotFound:     "Challenge not found",
	ErrChallengeAnswered:     "The challenge was answered.",
	ErrNotChallengeRecipient: "You are not the receiver of the challenge.",

	ErrNoActiveMatch:   "You have no active match.",
	ErrAttemptLimit:    "Player has already used all 3 attempts",
	ErrPeerUnreachable: "The other player is unreachable.",

	ErrDatabaseConnect: "Database connection failed.",
	ErrDatabaseQuery:   "Database query failed.",
	ErrTransaction:     "Transaction failed.",
	ErrStorageConflict: "Conflicting update, please retry.",

	ErrConfigLoad:  "Failed to load configuration.",
	ErrConfigParse: "Failed to parse configuration.",
}

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode    `json:"code"`    // 错误码
	Message string       `json:"message"` // 用户可见消息
	Details string       `json:"details"` // 详细信息
	Cause   error        `json:"-"`       // 原始错误
	Stack   []StackFrame `json:"stack,omitempty"`
}

// StackFrame 调用栈帧
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// Msgf 覆盖默认的用户可见消息
func (e *AppError) Msgf(format string, args ...interface{}) *AppError {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	// 捕获调用栈
	err.captureStack(2)

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return New(code, details)
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是AppError，保留原始错误码
	if appErr, ok := err.(*AppError); ok {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	appErr := New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Wrapf 包装格式化错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return Wrap(err, code, details)
}

// Is 判断错误是否为指定错误码
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}

	return ErrUnknown
}

// IsExpected 判断是否为预期的领域错误（可恢复为 ok:false 响应）
func IsExpected(err error) bool {
	code := GetCode(err)
	return (code >= 1001 && code < 5000) || code == ErrStorageConflict
}

// captureStack 捕获调用栈
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)

	if n > 0 {
		frames := runtime.CallersFrames(pcs[:n])
		for {
			frame, more := frames.Next()

			// 跳过runtime和本包的调用
			if strings.Contains(frame.Function, "runtime.") ||
				strings.Contains(frame.Function, "github.com/wfunc/dart-duel/internal/errors") {
				if !more {
					break
				}
				continue
			}

			e.Stack = append(e.Stack, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})

			if !more {
				break
			}

			// 只保留前10个栈帧
			if len(e.Stack) >= 10 {
				break
			}
		}
	}
}

// GetStack 获取格式化的调用栈
func (e *AppError) GetStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, frame := range e.Stack {
		builder.WriteString(fmt.Sprintf("%d. %s\n   %s:%d\n",
			i+1, frame.Function, frame.File, frame.Line))
	}

	return builder.String()
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Code == ErrInvalidParam:
		return 400 // Bad Request
	case e.Code == ErrNotFound || e.Code == ErrChallengeNotFound || e.Code == ErrNoActiveMatch:
		return 404 // Not Found
	case e.Code == ErrNotChallengeRecipient:
		return 403 // Forbidden
	case e.Code == ErrUsernameTaken || e.Code == ErrAlreadyOnline:
		return 409 // Conflict
	case e.Code >= 2000 && e.Code <= 2999:
		return 401 // Unauthorized
	case e.Code == ErrChallengeAnswered || e.Code == ErrAttemptLimit || e.Code == ErrStorageConflict:
		return 409 // Conflict
	case e.Code >= 5000 && e.Code <= 5999:
		return 503 // Service Unavailable
	default:
		return 500 // Internal Server Error
	}
}

// IsCritical 判断是否为严重错误
func IsCritical(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrDatabaseConnect,
		ErrConfigLoad,
		ErrConfigParse:
		return true
	default:
		return false
	}
}

// ErrorResponse API错误响应结构
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     *AppError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(err *AppError, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     err,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}
