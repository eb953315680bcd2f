// Package tokenizer 提供提示词 Token 估算：OpenAI 系模型走 tiktoken
// 精确计数，其余模型用区分 CJK 的字符估算器。调度层只用它产出日志里的
// token 预估，不做硬性预算裁剪。
package tokenizer

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter 统一的 token 计数接口。
type Counter interface {
	CountTokens(text string) (int, error)
	Name() string
}

// 模型名到 tiktoken 编码的映射。未命中的模型走估算器。
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// ForModel 返回该模型的计数器。OpenAI 系模型用 tiktoken，
// 其他模型（以及 tiktoken 初始化失败时）用估算器。
func ForModel(model string) Counter {
	enc := ""
	if e, ok := modelEncodings[model]; ok {
		enc = e
	} else {
		for prefix, e := range modelEncodings {
			if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
				enc = e
				break
			}
		}
	}
	if enc == "" {
		return NewEstimator(model)
	}
	return &tiktokenCounter{model: model, encoding: enc}
}

// Estimate 是便捷入口：估算失败时回退到字符估算，永不返回错误。
func Estimate(model, text string) int {
	n, err := ForModel(model).CountTokens(text)
	if err != nil {
		n, _ = NewEstimator(model).CountTokens(text)
	}
	return n
}

// tiktokenCounter 惰性初始化 tiktoken 编码（首次使用可能下载词表）。
type tiktokenCounter struct {
	model    string
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

func (t *tiktokenCounter) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *tiktokenCounter) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *tiktokenCounter) Name() string { return "tiktoken/" + t.encoding }

// Estimator 基于字符数的估算器，区分 CJK 与 ASCII 提高精度。
type Estimator struct {
	model string
}

// NewEstimator 创建通用估算器。
func NewEstimator(model string) *Estimator {
	return &Estimator{model: model}
}

func (e *Estimator) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	totalChars := utf8.RuneCountInString(text)
	cjkCount := 0
	for _, r := range text {
		if isCJK(r) {
			cjkCount++
		}
	}

	// CJK 约 1.5 字符/token，ASCII 约 4 字符/token。
	estimated := int(float64(cjkCount)/1.5 + float64(totalChars-cjkCount)/4.0)
	if estimated == 0 {
		estimated = 1
	}
	return estimated, nil
}

func (e *Estimator) Name() string { return "estimator" }

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x3000 && r <= 0x303F) ||
		(r >= 0xFF00 && r <= 0xFFEF)
}
