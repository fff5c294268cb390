package main

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nerzhul/coa/internal/api"
	"github.com/nerzhul/coa/internal/config"
	"github.com/nerzhul/coa/internal/testutil"
)

func TestServer_ServesAndShutsDown(t *testing.T) {
	store := testutil.NewSQLiteDB(t)
	handler := api.NewRouter(api.Context{ClusterName: "test", Store: store})
	server := NewServer(ServerConfig{Addr: "127.0.0.1:0"}, handler, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	var addr string
	select {
	case addr = <-server.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/v1/health/readiness")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_RestartWithoutReadyReader(t *testing.T) {
	server := NewServer(ServerConfig{Addr: "127.0.0.1:0"}, http.NotFoundHandler(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			done <- err
			return
		}
		done <- server.Start(ctx)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("second start blocked")
	}
}

func TestServer_ListenError(t *testing.T) {
	server := NewServer(ServerConfig{Addr: "256.0.0.1:bad"}, http.NotFoundHandler(), zap.NewNop())
	assert.Error(t, server.Start(context.Background()))
}

func TestNewLogger_Level(t *testing.T) {
	logger, err := newLogger(config.Config{LogLevel: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestKubeConfig_MissingFile(t *testing.T) {
	_, err := kubeConfig("/nonexistent/kubeconfig")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load kubeconfig")
}
