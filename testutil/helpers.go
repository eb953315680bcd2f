// Package testutil 提供调度层测试的共享工具：带清理的测试上下文、
// 固定响应/固定状态码的上游 HTTP 桩服务器。
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestContext 返回带超时的测试上下文，自动注册 Cleanup。
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout 返回带自定义超时的测试上下文。
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文。
func CancelledContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// UpstreamStub 记录最近一次请求的上游 HTTP 桩。
type UpstreamStub struct {
	Server *httptest.Server

	// LastPath / LastQuery / LastHeader / LastBody 最近一次请求的快照
	LastPath   string
	LastQuery  string
	LastHeader http.Header
	LastBody   []byte
}

// NewUpstreamStub 启动固定响应的上游桩服务器。status 为响应状态码，
// body 为原样返回的响应体。自动注册 Cleanup 关闭。
func NewUpstreamStub(t *testing.T, status int, body string) *UpstreamStub {
	t.Helper()
	stub := &UpstreamStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.LastPath = r.URL.Path
		stub.LastQuery = r.URL.RawQuery
		stub.LastHeader = r.Header.Clone()
		stub.LastBody = readAll(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(stub.Server.Close)
	return stub
}

// NewSequenceStub 启动按调用次数轮流返回响应的上游桩。responses 用尽后
// 重复最后一个。用于"先 500 再 200"之类的重试场景。
func NewSequenceStub(t *testing.T, responses []StubResponse) *UpstreamStub {
	t.Helper()
	stub := &UpstreamStub{}
	calls := 0
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.LastPath = r.URL.Path
		stub.LastQuery = r.URL.RawQuery
		stub.LastHeader = r.Header.Clone()
		stub.LastBody = readAll(r)

		resp := responses[len(responses)-1]
		if calls < len(responses) {
			resp = responses[calls]
		}
		calls++

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.Status)
		w.Write([]byte(resp.Body))
	}))
	t.Cleanup(stub.Server.Close)
	return stub
}

// StubResponse 桩服务器的单次响应。
type StubResponse struct {
	Status int
	Body   string
}

// DecodeBody 将最近一次请求体解码到 v。
func (s *UpstreamStub) DecodeBody(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(s.LastBody, v); err != nil {
		t.Fatalf("decode captured request body: %v", err)
	}
}

func readAll(r *http.Request) []byte {
	data, _ := io.ReadAll(r.Body)
	return data
}
