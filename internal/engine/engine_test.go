package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-core/pkg/logger"
)

func newTestEngine(t *testing.T) (*Engine, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	e, err := New(Options{LogWriter: &buf, LogLevel: logger.DEBUG})
	require.NoError(t, err)
	t.Cleanup(func() { e.Stop() })
	return e, &buf
}

func TestNewWiresCollaboratorsWithoutAPI(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.NotNil(t, e.Bus)
	assert.NotNil(t, e.Portfolio)
	assert.NotNil(t, e.Manager)
	assert.NotNil(t, e.Exchange)
	assert.Nil(t, e.apiServer, "expected no api server when APIAddr is empty")
}

func TestStartStopLogsLifecycle(t *testing.T) {
	e, buf := newTestEngine(t)
	require.NoError(t, e.Start())
	assert.True(t, e.Exchange.IsRunning())

	require.NoError(t, e.Stop())
	assert.False(t, e.Exchange.IsRunning())

	output := buf.String()
	assert.Contains(t, output, "starting")
	assert.Contains(t, output, "stopped")
}

func TestAddStrategyIsPickedUpByStartAll(t *testing.T) {
	e, _ := newTestEngine(t)

	started := false
	e.AddStrategy(&fakeStrategy{name: "probe", onStart: func() { started = true }})

	require.NoError(t, e.Start())
	assert.True(t, started, "expected StartAll to start the registered strategy")
}

func TestNewFailsWhenAPIAddrSetWithoutSecret(t *testing.T) {
	var buf bytes.Buffer
	_, err := New(Options{LogWriter: &buf, APIAddr: ":0"})
	assert.Error(t, err)
}
