package llm

import (
	"fmt"
	"strings"
)

// 规范请求的默认值。
const (
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens   int     = 2048
)

// ImageData 是随请求内联上传的图片。
// Base64Data 不含 data: URI 前缀；剥离由上层入口负责（见 StripDataURI），
// 适配器只接受已规范化的载荷。
type ImageData struct {
	MimeType   string `json:"mime_type"`
	Base64Data string `json:"base64_data"`
}

// Request 是所有 Provider 适配器消费的规范请求。
// 一次调度期间归调用方所有，任何组件都不保留对它的引用。
type Request struct {
	TraceID     string     `json:"trace_id,omitempty"`
	Prompt      string     `json:"prompt"`
	Image       *ImageData `json:"image,omitempty"`
	Model       string     `json:"model,omitempty"` // 为空时使用适配器默认模型
	Temperature float32    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens"`
}

// Validate 校验规范请求的不变量。
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &Error{
			Code:    ErrInvalidRequest,
			Message: "prompt must not be empty",
		}
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return &Error{
			Code:    ErrInvalidRequest,
			Message: fmt.Sprintf("temperature %.2f out of range [0,2]", r.Temperature),
		}
	}
	if r.MaxTokens <= 0 {
		return &Error{
			Code:    ErrInvalidRequest,
			Message: fmt.Sprintf("max_tokens must be positive, got %d", r.MaxTokens),
		}
	}
	if r.Image != nil {
		if r.Image.Base64Data == "" {
			return &Error{
				Code:    ErrInvalidRequest,
				Message: "image payload must not be empty",
			}
		}
		if strings.HasPrefix(r.Image.Base64Data, "data:") {
			return &Error{
				Code:    ErrInvalidRequest,
				Message: "image payload must not carry a data: URI prefix",
			}
		}
	}
	return nil
}

// StripDataURI 将 "data:<mime>;base64,<payload>" 拆分为 MIME 类型与裸 base64
// 载荷。非 data: URI 输入原样返回，MIME 为空。
func StripDataURI(s string) (mime, data string) {
	if !strings.HasPrefix(s, "data:") {
		return "", s
	}
	rest := strings.TrimPrefix(s, "data:")
	idx := strings.Index(rest, ",")
	if idx < 0 {
		return "", s
	}
	meta := rest[:idx]
	data = rest[idx+1:]
	mime = strings.TrimSuffix(meta, ";base64")
	return mime, data
}
