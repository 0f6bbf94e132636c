package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"acm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModelServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"zeta"},{"id":"alpha"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestModelsCmd_Endpoint(t *testing.T) {
	setupCLI(t)
	srv, hits := newModelServer(t)

	out, err := run(t, "models", "--endpoint", srv.URL+"/v1", "--key", "k")
	require.NoError(t, err)
	assert.Equal(t, "alpha\nzeta\n", out)
	assert.Equal(t, int32(1), hits.Load())

	// Served from cache
	_, err = run(t, "models", "--endpoint", srv.URL+"/v1", "--key", "k")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	_, err = run(t, "models", "--endpoint", srv.URL+"/v1", "--key", "k", "--refresh")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestModelsCmd_ProfileJSON(t *testing.T) {
	setupCLI(t)
	srv, _ := newModelServer(t)

	_, err := run(t, "profile", "add", "work", "--endpoint", srv.URL+"/v1", "--key", "k")
	require.NoError(t, err)

	out, err := run(t, "models", "--profile", "work", "--json")
	require.NoError(t, err)

	var result modelsJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.Equal(t, "custom", result.Source)
	assert.Equal(t, srv.URL+"/v1", result.Endpoint)
	assert.Equal(t, []string{"alpha", "zeta"}, result.Models)
}

func TestModelsCmd_Errors(t *testing.T) {
	setupCLI(t)

	_, err := run(t, "models")
	assert.ErrorIs(t, err, domain.ErrModelList)

	_, err = run(t, "models", "--profile", "missing")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	_, err = run(t, "models", "--source", "openrouter", "--endpoint", "https://x.test")
	assert.ErrorIs(t, err, domain.ErrUnsupportedSource)
}
