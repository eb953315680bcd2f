package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name     string
	needsKey bool
}

func (s *stubProvider) Generate(ctx context.Context, req *Request, apiKey string) (string, error) {
	return "stub", nil
}
func (s *stubProvider) Name() string         { return s.name }
func (s *stubProvider) RequiresAPIKey() bool { return s.needsKey }

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, 0, reg.Len())

	reg.Register("google", &stubProvider{name: "google", needsKey: true})
	reg.Register("ollama", &stubProvider{name: "ollama"})

	p, ok := reg.Get("google")
	require.True(t, ok)
	assert.Equal(t, "google", p.Name())

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"google", "ollama"}, reg.List())
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryReplaceExisting(t *testing.T) {
	reg := NewRegistry()
	reg.Register("openai", &stubProvider{name: "first"})
	reg.Register("openai", &stubProvider{name: "second"})

	p, ok := reg.Get("openai")
	require.True(t, ok)
	assert.Equal(t, "second", p.Name())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryDefault(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.Default())

	reg.Register("groq", &stubProvider{name: "groq"})
	require.NoError(t, reg.SetDefault("groq"))
	assert.Equal(t, "groq", reg.Default())

	assert.Error(t, reg.SetDefault("unknown"))
	assert.Equal(t, "groq", reg.Default())
}
