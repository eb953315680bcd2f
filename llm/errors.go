package llm

import (
	"context"
	"errors"
	"net"
)

// ErrorCode 统一的调度错误码，用于对齐 HTTP 状态、可重试性与密钥轮换策略。
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "DISPATCH_INVALID_REQUEST"    // 参数/格式错误
	ErrUnauthorized      ErrorCode = "DISPATCH_UNAUTHORIZED"       // 密钥无效（HTTP 401）
	ErrForbidden         ErrorCode = "DISPATCH_FORBIDDEN"          // 权限拒绝（HTTP 403）
	ErrRateLimited       ErrorCode = "DISPATCH_RATE_LIMITED"       // 上游限流（HTTP 429）
	ErrUpstreamTimeout   ErrorCode = "DISPATCH_UPSTREAM_TIMEOUT"   // 上游超时
	ErrUpstreamError     ErrorCode = "DISPATCH_UPSTREAM_ERROR"     // 上游 5xx/网络错误
	ErrMalformedResponse ErrorCode = "DISPATCH_MALFORMED_RESPONSE" // 2xx 响应缺少预期字段
)

// Error 是调度层的统一错误类型，由各 Provider 适配器构造。
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// ErrorClass 是重试决策使用的三分类。
type ErrorClass int

const (
	// ClassInvalidCredential 密钥级永久错误：不重试当前密钥，立即轮换。
	ClassInvalidCredential ErrorClass = iota
	// ClassTransient 暂时性错误：同密钥退避重试，预算耗尽后轮换密钥。
	ClassTransient
	// ClassFatal 请求级错误：终止整个调度，不再尝试剩余密钥。
	ClassFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassInvalidCredential:
		return "invalid_credential"
	case ClassTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// Classify 将任意错误归入三分类。
// 2xx 响应体缺失预期字段（ErrMalformedResponse）归为 Fatal：重试无法解析的
// 响应只会浪费预算。
func Classify(err error) ErrorClass {
	var de *Error
	if errors.As(err, &de) {
		switch de.Code {
		case ErrUnauthorized, ErrForbidden:
			return ClassInvalidCredential
		case ErrRateLimited, ErrUpstreamTimeout, ErrUpstreamError:
			return ClassTransient
		}
		if de.Retryable {
			return ClassTransient
		}
		return ClassFatal
	}

	// 原始传输错误：超时与网络错误视为暂时性。
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return ClassTransient
	}
	return ClassFatal
}

// IsRetryable 报告错误是否属于暂时性分类。
func IsRetryable(err error) bool {
	return Classify(err) == ClassTransient
}
