package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"plantdiag/internal/config"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureTransport 记录发送的事件
type captureTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *captureTransport) Configure(sentry.ClientOptions) {}
func (t *captureTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}
func (t *captureTransport) Flush(time.Duration) bool              { return true }
func (t *captureTransport) FlushWithContext(context.Context) bool { return true }
func (t *captureTransport) Close()                                {}

func TestNewReporter_DisabledWithoutDSN(t *testing.T) {
	r, err := NewReporter(&config.SentryConfig{}, logrus.New())
	require.NoError(t, err)
	assert.False(t, r.Enabled())
	assert.NotPanics(t, func() {
		r.CaptureError(errors.New("boom"), "pipeline", nil)
		r.Flush(time.Millisecond)
	})

	var nilReporter *Reporter
	assert.False(t, nilReporter.Enabled())
}

func TestReporter_CaptureError(t *testing.T) {
	transport := &captureTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:       "https://public@example.com/1",
		Transport: transport,
	})
	require.NoError(t, err)

	r := NewReporterWithHub(sentry.NewHub(client, sentry.NewScope()), logrus.New())
	require.True(t, r.Enabled())

	r.CaptureError(fmt.Errorf("classify: %w", errors.New("no label")), "pipeline", map[string]string{"stage": "classifying"})

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.events, 1)
	assert.Equal(t, "pipeline", transport.events[0].Tags["component"])
	assert.Equal(t, "classifying", transport.events[0].Tags["stage"])
}
