package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/BaSui01/llmdispatch/llm"
)

// MapHTTPError 将非 2xx HTTP 状态码映射为带可重试标记的 *llm.Error。
// 所有适配器共用：401/403 为密钥级错误，429/5xx 为暂时性错误，
// 其余视为请求级错误（Fatal 分类）。
func MapHTTPError(status int, msg string, provider string) *llm.Error {
	switch {
	case status == http.StatusUnauthorized:
		return &llm.Error{
			Code:       llm.ErrUnauthorized,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case status == http.StatusForbidden:
		return &llm.Error{
			Code:       llm.ErrForbidden,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case status == http.StatusTooManyRequests:
		return &llm.Error{
			Code:       llm.ErrRateLimited,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case status >= 500:
		return &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	default:
		return &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	}
}

// TransportError 将 client.Do 返回的传输层错误映射为暂时性 *llm.Error。
// 超时（含 context 超时）标记为 ErrUpstreamTimeout，其余网络错误为
// ErrUpstreamError，两者均可重试。
func TransportError(err error, provider string) *llm.Error {
	code := llm.ErrUpstreamError
	var nerr net.Error
	if (errors.As(err, &nerr) && nerr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		code = llm.ErrUpstreamTimeout
	}
	return &llm.Error{
		Code:       code,
		Message:    err.Error(),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Provider:   provider,
	}
}

// MalformedResponse 构造"2xx 响应缺失预期字段"错误。该错误归为 Fatal
// 分类：重试无法解析的响应只会浪费预算。path 为缺失的字段路径，
// 用于诊断。
func MalformedResponse(provider, path string) *llm.Error {
	return &llm.Error{
		Code:       llm.ErrMalformedResponse,
		Message:    fmt.Sprintf("response body missing expected field %s", path),
		HTTPStatus: http.StatusOK,
		Provider:   provider,
	}
}

// DecodeError 构造"2xx 响应体不是合法 JSON"错误，同样归为 Fatal 分类。
func DecodeError(err error, provider string) *llm.Error {
	return &llm.Error{
		Code:       llm.ErrMalformedResponse,
		Message:    fmt.Sprintf("decode response body: %v", err),
		HTTPStatus: http.StatusOK,
		Provider:   provider,
	}
}

// ReadErrorMessage 从错误响应体中提取消息。
// 先尝试解析通用 JSON 错误包裹，失败则回退到原始文本。
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil {
		if errResp.Error.Message != "" {
			if errResp.Error.Type != "" {
				return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
			}
			return errResp.Error.Message
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}
	return string(data)
}

// BearerTokenHeaders 标准 Bearer 认证请求头。key 为空时不设置
// Authorization（local 端点允许无凭证）。
func BearerTokenHeaders(r *http.Request, apiKey string) {
	r.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		r.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// ChooseModel 按请求覆盖 → 配置默认 → 内置兜底的顺序选择模型。
func ChooseModel(req *llm.Request, defaultModel, fallbackModel string) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	if defaultModel != "" {
		return defaultModel
	}
	return fallbackModel
}
