package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	response string
	err      error
	calls    int
}

func (s *stubProvider) Generate(_ context.Context, _ string, _ GenerateOptions) (string, error) {
	s.calls++
	return s.response, s.err
}

func TestRouterRemoteByDefault(t *testing.T) {
	remote := &stubProvider{response: "remote"}
	local := &stubProvider{response: "local"}
	r := NewRouter(remote, local)

	out, err := r.Generate(context.Background(), "hi", GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "remote", out)
	assert.Equal(t, 0, local.calls)
}

func TestRouterPreferLocal(t *testing.T) {
	remote := &stubProvider{response: "remote"}
	local := &stubProvider{response: "local"}
	r := NewRouter(remote, local)

	out, err := r.Generate(context.Background(), "hi", GenerateOptions{PreferLocal: true})

	require.NoError(t, err)
	assert.Equal(t, "local", out)
	assert.Equal(t, 0, remote.calls)
}

func TestRouterLocalFailureFallsBackToRemote(t *testing.T) {
	remote := &stubProvider{response: "remote"}
	local := &stubProvider{err: errors.New("ollama not running")}
	r := NewRouter(remote, local)

	out, err := r.Generate(context.Background(), "hi", GenerateOptions{PreferLocal: true})

	require.NoError(t, err)
	assert.Equal(t, "remote", out)
	assert.Equal(t, 1, local.calls)
}

func TestRouterLocalOnly(t *testing.T) {
	local := &stubProvider{response: "local"}
	r := NewRouter(nil, local)

	out, err := r.Generate(context.Background(), "hi", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "local", out)

	local.err = errors.New("down")
	_, err = r.Generate(context.Background(), "hi", GenerateOptions{PreferLocal: true})
	assert.Error(t, err, "no remote to fall back to")
}

func TestRouterNoProviders(t *testing.T) {
	r := NewRouter(nil, nil)
	_, err := r.Generate(context.Background(), "hi", GenerateOptions{})
	assert.Error(t, err)
}
