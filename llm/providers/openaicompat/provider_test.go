package openaicompat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/llmdispatch/llm"
	"github.com/BaSui01/llmdispatch/testutil"
)

func newTestProvider(baseURL string, requireKey bool) *Provider {
	return New(Config{
		ProviderName: "compat",
		BaseURL:      baseURL,
		DefaultModel: "test-model",
		RequireKey:   requireKey,
	}, nil)
}

func testRequest() *llm.Request {
	return &llm.Request{
		Prompt:      "Say hi",
		Temperature: 0.7,
		MaxTokens:   64,
	}
}

func TestNewDefaults(t *testing.T) {
	p := New(Config{ProviderName: "x"}, nil)
	assert.Equal(t, "/v1/chat/completions", p.cfg.EndpointPath)
	assert.Equal(t, DefaultTimeout, p.client.Timeout)
	assert.Equal(t, "x", p.Name())
	assert.False(t, p.RequiresAPIKey())
}

func TestGenerateSuccess(t *testing.T) {
	stub := testutil.NewUpstreamStub(t, 200,
		`{"choices":[{"message":{"content":"Hi there"}}]}`)
	p := newTestProvider(stub.Server.URL, true)

	text, err := p.Generate(testutil.TestContext(t), testRequest(), "sk-test")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)

	// 请求形状校验。
	assert.Equal(t, "/v1/chat/completions", stub.LastPath)
	assert.Equal(t, "Bearer sk-test", stub.LastHeader.Get("Authorization"))

	var sent chatRequest
	stub.DecodeBody(t, &sent)
	assert.Equal(t, "test-model", sent.Model)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "user", sent.Messages[0].Role)
	assert.Equal(t, "Say hi", sent.Messages[0].Content)
	assert.Equal(t, 64, sent.MaxTokens)
}

func TestGenerateModelOverride(t *testing.T) {
	stub := testutil.NewUpstreamStub(t, 200,
		`{"choices":[{"message":{"content":"ok"}}]}`)
	p := newTestProvider(stub.Server.URL, true)

	req := testRequest()
	req.Model = "other-model"
	_, err := p.Generate(testutil.TestContext(t), req, "k")
	require.NoError(t, err)

	var sent chatRequest
	stub.DecodeBody(t, &sent)
	assert.Equal(t, "other-model", sent.Model)
}

func TestGenerateUnauthorized(t *testing.T) {
	stub := testutil.NewUpstreamStub(t, 401,
		`{"error":{"message":"Incorrect API key provided"}}`)
	p := newTestProvider(stub.Server.URL, true)

	_, err := p.Generate(testutil.TestContext(t), testRequest(), "bad")
	var lerr *llm.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, llm.ErrUnauthorized, lerr.Code)
	assert.Equal(t, llm.ClassInvalidCredential, llm.Classify(err))
	assert.Contains(t, lerr.Message, "Incorrect API key")
}

func TestGenerateRateLimited(t *testing.T) {
	stub := testutil.NewUpstreamStub(t, 429, `{"error":{"message":"slow down"}}`)
	p := newTestProvider(stub.Server.URL, true)

	_, err := p.Generate(testutil.TestContext(t), testRequest(), "k")
	var lerr *llm.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, llm.ErrRateLimited, lerr.Code)
	assert.True(t, lerr.Retryable)
}

func TestGenerateEmptyChoices(t *testing.T) {
	stub := testutil.NewUpstreamStub(t, 200, `{"choices":[]}`)
	p := newTestProvider(stub.Server.URL, true)

	_, err := p.Generate(testutil.TestContext(t), testRequest(), "k")
	var lerr *llm.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, llm.ErrMalformedResponse, lerr.Code)
}

func TestGenerateInvalidJSON(t *testing.T) {
	stub := testutil.NewUpstreamStub(t, 200, `not json at all`)
	p := newTestProvider(stub.Server.URL, true)

	_, err := p.Generate(testutil.TestContext(t), testRequest(), "k")
	var lerr *llm.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, llm.ErrMalformedResponse, lerr.Code)
}

func TestGenerateKeylessOmitsAuthHeader(t *testing.T) {
	stub := testutil.NewUpstreamStub(t, 200,
		`{"choices":[{"message":{"content":"local hi"}}]}`)
	p := newTestProvider(stub.Server.URL, false)

	text, err := p.Generate(testutil.TestContext(t), testRequest(), "")
	require.NoError(t, err)
	assert.Equal(t, "local hi", text)
	assert.Empty(t, stub.LastHeader.Get("Authorization"))
}

func TestGenerateTransportError(t *testing.T) {
	p := New(Config{
		ProviderName: "compat",
		BaseURL:      "http://127.0.0.1:1",
		Timeout:      200 * time.Millisecond,
	}, nil)

	_, err := p.Generate(testutil.TestContext(t), testRequest(), "k")
	var lerr *llm.Error
	require.ErrorAs(t, err, &lerr)
	assert.True(t, lerr.Retryable)
	assert.Equal(t, llm.ClassTransient, llm.Classify(err))
}
