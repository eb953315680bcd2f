package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/llmdispatch/llm"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantCode      llm.ErrorCode
		wantRetryable bool
		wantClass     llm.ErrorClass
	}{
		{"401 unauthorized", 401, llm.ErrUnauthorized, false, llm.ClassInvalidCredential},
		{"403 forbidden", 403, llm.ErrForbidden, false, llm.ClassInvalidCredential},
		{"429 rate limited", 429, llm.ErrRateLimited, true, llm.ClassTransient},
		{"500 upstream", 500, llm.ErrUpstreamError, true, llm.ClassTransient},
		{"502 upstream", 502, llm.ErrUpstreamError, true, llm.ClassTransient},
		{"503 upstream", 503, llm.ErrUpstreamError, true, llm.ClassTransient},
		{"400 invalid request", 400, llm.ErrInvalidRequest, false, llm.ClassFatal},
		{"404 invalid request", 404, llm.ErrInvalidRequest, false, llm.ClassFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(tt.status, "boom", "test")
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.status, err.HTTPStatus)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
			assert.Equal(t, "test", err.Provider)
			assert.Equal(t, tt.wantClass, llm.Classify(err))
		})
	}
}

func TestTransportError(t *testing.T) {
	// 真正的超时：server 响应慢于 client 超时。
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 20 * time.Millisecond}
	_, doErr := client.Get(srv.URL)
	require.Error(t, doErr)

	err := TransportError(doErr, "test")
	assert.Equal(t, llm.ErrUpstreamTimeout, err.Code)
	assert.True(t, err.Retryable)
	assert.Equal(t, llm.ClassTransient, llm.Classify(err))
}

func TestTransportErrorNonTimeout(t *testing.T) {
	err := TransportError(errors.New("connection refused"), "test")
	assert.Equal(t, llm.ErrUpstreamError, err.Code)
	assert.True(t, err.Retryable)
}

func TestTransportErrorDeadline(t *testing.T) {
	err := TransportError(context.DeadlineExceeded, "test")
	assert.Equal(t, llm.ErrUpstreamTimeout, err.Code)
}

func TestMalformedResponse(t *testing.T) {
	err := MalformedResponse("cohere", "generations[0].text")
	assert.Equal(t, llm.ErrMalformedResponse, err.Code)
	assert.False(t, err.Retryable)
	assert.Contains(t, err.Message, "generations[0].text")
	assert.Equal(t, llm.ClassFatal, llm.Classify(err))
}

func TestReadErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "openai style error wrapper",
			body: `{"error":{"message":"bad key","type":"invalid_request_error"}}`,
			want: "bad key (type: invalid_request_error)",
		},
		{
			name: "message without type",
			body: `{"error":{"message":"quota exceeded"}}`,
			want: "quota exceeded",
		},
		{
			name: "flat message field",
			body: `{"message":"not found"}`,
			want: "not found",
		},
		{
			name: "plain text fallback",
			body: "internal server error",
			want: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReadErrorMessage(strings.NewReader(tt.body))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBearerTokenHeaders(t *testing.T) {
	r, _ := http.NewRequest(http.MethodPost, "http://example.com", nil)
	BearerTokenHeaders(r, "secret")
	assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

	r2, _ := http.NewRequest(http.MethodPost, "http://example.com", nil)
	BearerTokenHeaders(r2, "")
	assert.Empty(t, r2.Header.Get("Authorization"), "no auth header without a key")
}

func TestChooseModel(t *testing.T) {
	req := &llm.Request{Model: "override"}
	assert.Equal(t, "override", ChooseModel(req, "configured", "fallback"))
	assert.Equal(t, "configured", ChooseModel(&llm.Request{}, "configured", "fallback"))
	assert.Equal(t, "fallback", ChooseModel(&llm.Request{}, "", "fallback"))
	assert.Equal(t, "fallback", ChooseModel(nil, "", "fallback"))
}
