package http

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/config"
)

func TestServer_StartAndShutdown(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "pong") })

	srv := NewServer(config.HTTPConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, mux, nil)
	require.NoError(t, srv.Listen())
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ListenError(t *testing.T) {
	t.Parallel()
	srv := NewServer(config.HTTPConfig{Addr: "256.0.0.1:99999"}, http.NewServeMux(), nil)
	assert.Error(t, srv.Start(context.Background()))
}
