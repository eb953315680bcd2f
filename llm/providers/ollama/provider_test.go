package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/llmdispatch/llm"
	"github.com/BaSui01/llmdispatch/llm/providers"
	"github.com/BaSui01/llmdispatch/testutil"
)

func newTestProvider(baseURL string) *Provider {
	cfg := providers.OllamaConfig{}
	cfg.BaseURL = baseURL
	return New(cfg, nil)
}

func testRequest() *llm.Request {
	return &llm.Request{
		Prompt:      "Why is the sky blue?",
		Temperature: 0.7,
		MaxTokens:   512,
	}
}

func TestGenerateSuccess(t *testing.T) {
	stub := testutil.NewUpstreamStub(t, 200, `{"response":"Rayleigh scattering."}`)
	p := newTestProvider(stub.Server.URL)

	text, err := p.Generate(testutil.TestContext(t), testRequest(), "")
	require.NoError(t, err)
	assert.Equal(t, "Rayleigh scattering.", text)

	assert.Equal(t, "/api/generate", stub.LastPath)
	assert.Empty(t, stub.LastHeader.Get("Authorization"))

	var sent generateRequest
	stub.DecodeBody(t, &sent)
	assert.Equal(t, "llama3", sent.Model)
	assert.False(t, sent.Stream, "streaming must be disabled")
	assert.Equal(t, 512, sent.Options.NumPredict)
}

func TestGenerateEmptyStringResponseIsValid(t *testing.T) {
	// 空串与字段缺失不同：模型合法地生成了空输出。
	stub := testutil.NewUpstreamStub(t, 200, `{"response":""}`)
	p := newTestProvider(stub.Server.URL)

	text, err := p.Generate(testutil.TestContext(t), testRequest(), "")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestGenerateMissingResponseField(t *testing.T) {
	stub := testutil.NewUpstreamStub(t, 200, `{"model":"llama3"}`)
	p := newTestProvider(stub.Server.URL)

	_, err := p.Generate(testutil.TestContext(t), testRequest(), "")
	var lerr *llm.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, llm.ErrMalformedResponse, lerr.Code)
}

func TestGenerateUpstreamError(t *testing.T) {
	stub := testutil.NewUpstreamStub(t, 500, `model failed to load`)
	p := newTestProvider(stub.Server.URL)

	_, err := p.Generate(testutil.TestContext(t), testRequest(), "")
	var lerr *llm.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, llm.ErrUpstreamError, lerr.Code)
	assert.True(t, lerr.Retryable)
}

func TestProviderIdentity(t *testing.T) {
	p := newTestProvider("http://unused")
	assert.Equal(t, "ollama", p.Name())
	assert.False(t, p.RequiresAPIKey(), "ollama runs without credentials")
}
