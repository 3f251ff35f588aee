package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.UploadDir = t.TempDir()
	c.LogLevel = "error"
	return c
}

func TestNewApp_InMemory(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.Nil(t, app.db)
	assert.Nil(t, app.redis)
	assert.NotNil(t, app.server)
	assert.NotNil(t, app.gate)
}

func TestNewApp_Errors(t *testing.T) {
	c := testConfig(t)
	c.LogFormat = "xml"
	_, err := NewApp(context.Background(), c)
	assert.Error(t, err)

	c = testConfig(t)
	c.SecretKey = ""
	_, err = NewApp(context.Background(), c)
	assert.Error(t, err)

	c = testConfig(t)
	c.RedisAddr = "127.0.0.1:1"
	_, err = NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "redis init error")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
