package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider 按调用序号返回预设结果，并记录每次收到的密钥。
type scriptedProvider struct {
	mu       sync.Mutex
	name     string
	needsKey bool
	script   []scriptStep
	keys     []string
}

type scriptStep struct {
	text string
	err  error
}

func (s *scriptedProvider) Generate(ctx context.Context, req *Request, apiKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, apiKey)
	idx := len(s.keys) - 1
	if idx >= len(s.script) {
		return "", &Error{Code: ErrUpstreamError, Retryable: true, Provider: s.name}
	}
	step := s.script[idx]
	return step.text, step.err
}

func (s *scriptedProvider) Name() string         { return s.name }
func (s *scriptedProvider) RequiresAPIKey() bool { return s.needsKey }

func (s *scriptedProvider) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func (s *scriptedProvider) keyAt(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[i]
}

func newTestDispatcher(p *scriptedProvider) *Dispatcher {
	reg := NewRegistry()
	reg.Register(p.name, p)
	return NewDispatcher(reg, DefaultDispatchPolicy(), nil, nil)
}

func testRequest() *Request {
	return &Request{
		Prompt:      "hello",
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// ---------------------------------------------------------------------------
// 基本路径
// ---------------------------------------------------------------------------

func TestDispatchSuccessFirstAttempt(t *testing.T) {
	p := &scriptedProvider{
		name:     "test",
		needsKey: true,
		script:   []scriptStep{{text: "Hi there"}},
	}
	d := newTestDispatcher(p)

	text, err := d.Dispatch(context.Background(), "test", []string{"k1", "k2"}, testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)
	assert.Equal(t, 1, p.calls())
	assert.Equal(t, "k1", p.keyAt(0))
}

func TestDispatchUnknownProvider(t *testing.T) {
	d := NewDispatcher(NewRegistry(), DefaultDispatchPolicy(), nil, nil)
	_, err := d.Dispatch(context.Background(), "nope", []string{"k"}, testRequest())
	assert.ErrorContains(t, err, "not registered")
}

func TestDispatchInvalidRequestRejectedBeforeCall(t *testing.T) {
	p := &scriptedProvider{name: "test", needsKey: true}
	d := newTestDispatcher(p)

	req := testRequest()
	req.Prompt = ""
	_, err := d.Dispatch(context.Background(), "test", []string{"k"}, req)

	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, ErrInvalidRequest, lerr.Code)
	assert.Equal(t, 0, p.calls())
}

// ---------------------------------------------------------------------------
// 错误分类驱动的重试/轮换/终止
// ---------------------------------------------------------------------------

func TestDispatchFatalAbortsRemainingKeys(t *testing.T) {
	p := &scriptedProvider{
		name:     "test",
		needsKey: true,
		script: []scriptStep{
			{err: &Error{Code: ErrInvalidRequest, HTTPStatus: 400, Provider: "test"}},
		},
	}
	d := newTestDispatcher(p)

	_, err := d.Dispatch(context.Background(), "test", []string{"k1", "k2", "k3"}, testRequest())
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, ErrInvalidRequest, lerr.Code)
	assert.Equal(t, 1, p.calls(), "fatal error must stop the whole dispatch")
}

func TestDispatchMalformedResponseIsFatal(t *testing.T) {
	p := &scriptedProvider{
		name:     "test",
		needsKey: true,
		script: []scriptStep{
			{err: &Error{Code: ErrMalformedResponse, HTTPStatus: 200, Provider: "test"}},
		},
	}
	d := newTestDispatcher(p)

	_, err := d.Dispatch(context.Background(), "test", []string{"k1", "k2"}, testRequest())
	require.Error(t, err)
	assert.Equal(t, 1, p.calls())
}

func TestDispatchInvalidCredentialRotatesImmediately(t *testing.T) {
	p := &scriptedProvider{
		name:     "test",
		needsKey: true,
		script: []scriptStep{
			{err: &Error{Code: ErrUnauthorized, HTTPStatus: 401, Provider: "test"}},
			{text: "recovered"},
		},
	}
	d := newTestDispatcher(p)

	start := time.Now()
	text, err := d.Dispatch(context.Background(), "test", []string{"bad", "good"}, testRequest())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 2, p.calls())
	assert.Equal(t, "bad", p.keyAt(0))
	assert.Equal(t, "good", p.keyAt(1))
	assert.Less(t, elapsed, 200*time.Millisecond, "credential rotation must not back off")
}

func TestDispatchTransientRetriesSameKeyWithBackoff(t *testing.T) {
	p := &scriptedProvider{
		name:     "test",
		needsKey: true,
		script: []scriptStep{
			{err: &Error{Code: ErrRateLimited, HTTPStatus: 429, Retryable: true, Provider: "test"}},
			{text: "ok"},
		},
	}
	d := newTestDispatcher(p)

	start := time.Now()
	text, err := d.Dispatch(context.Background(), "test", []string{"k1"}, testRequest())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, p.calls())
	assert.Equal(t, "k1", p.keyAt(0))
	assert.Equal(t, "k1", p.keyAt(1))
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond, "first retry backs off 300ms")
}

func TestDispatchTransientExhaustsBudgetThenRotates(t *testing.T) {
	p := &scriptedProvider{
		name:     "test",
		needsKey: true,
		script: []scriptStep{
			{err: &Error{Code: ErrUpstreamError, HTTPStatus: 503, Retryable: true, Provider: "test"}},
			{err: &Error{Code: ErrUpstreamError, HTTPStatus: 503, Retryable: true, Provider: "test"}},
			{text: "second key wins"},
		},
	}
	d := newTestDispatcher(p)

	text, err := d.Dispatch(context.Background(), "test", []string{"k1", "k2"}, testRequest())
	require.NoError(t, err)
	assert.Equal(t, "second key wins", text)
	assert.Equal(t, 3, p.calls())
	assert.Equal(t, "k1", p.keyAt(0))
	assert.Equal(t, "k1", p.keyAt(1))
	assert.Equal(t, "k2", p.keyAt(2))
}

func TestDispatchAllKeysExhaustedReturnsLastError(t *testing.T) {
	p := &scriptedProvider{
		name:     "test",
		needsKey: true,
		script: []scriptStep{
			{err: &Error{Code: ErrUnauthorized, HTTPStatus: 401, Provider: "test"}},
			{err: &Error{Code: ErrRateLimited, HTTPStatus: 429, Retryable: true, Provider: "test"}},
			{err: &Error{Code: ErrRateLimited, HTTPStatus: 429, Retryable: true, Provider: "test"}},
		},
	}
	d := newTestDispatcher(p)

	_, err := d.Dispatch(context.Background(), "test", []string{"k1", "k2"}, testRequest())
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, ErrRateLimited, lerr.Code, "last observed error is returned")
	assert.Equal(t, 3, p.calls())
}

// ---------------------------------------------------------------------------
// 免凭证分支
// ---------------------------------------------------------------------------

func TestDispatchKeylessSingleCallNoRetry(t *testing.T) {
	p := &scriptedProvider{
		name: "ollama",
		script: []scriptStep{
			{err: &Error{Code: ErrUpstreamError, HTTPStatus: 503, Retryable: true, Provider: "ollama"}},
		},
	}
	d := newTestDispatcher(p)

	_, err := d.Dispatch(context.Background(), "ollama", nil, testRequest())
	require.Error(t, err)
	assert.Equal(t, 1, p.calls(), "keyless path never retries")
}

func TestDispatchKeylessSuccess(t *testing.T) {
	p := &scriptedProvider{
		name:   "local",
		script: []scriptStep{{text: "local says hi"}},
	}
	d := newTestDispatcher(p)

	text, err := d.Dispatch(context.Background(), "local", nil, testRequest())
	require.NoError(t, err)
	assert.Equal(t, "local says hi", text)
	assert.Equal(t, "", p.keyAt(0))
}

func TestDispatchMissingKeyForKeyedProvider(t *testing.T) {
	p := &scriptedProvider{name: "openai", needsKey: true}
	d := newTestDispatcher(p)

	_, err := d.Dispatch(context.Background(), "openai", nil, testRequest())
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, ErrUnauthorized, lerr.Code)
	assert.Equal(t, 0, p.calls())
}

// ---------------------------------------------------------------------------
// 取消
// ---------------------------------------------------------------------------

func TestDispatchContextCancelledDuringBackoff(t *testing.T) {
	p := &scriptedProvider{
		name:     "test",
		needsKey: true,
		script: []scriptStep{
			{err: &Error{Code: ErrUpstreamError, HTTPStatus: 500, Retryable: true, Provider: "test"}},
		},
	}
	d := newTestDispatcher(p)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := d.Dispatch(ctx, "test", []string{"k1"}, testRequest())
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 250*time.Millisecond, "cancellation cuts the backoff short")
	assert.Equal(t, 1, p.calls())
}
