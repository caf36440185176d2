package monitoring

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremon "github.com/kilianp07/dispatchboard/core/monitoring"
)

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestSentryMonitorTags(t *testing.T) {
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://key@example.com/1",
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			events = append(events, e)
			return nil
		},
	})
	require.NoError(t, err)
	m := &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope()), tags: map[string]string{"tenant": "acme"}}

	m.CaptureException(nil, nil)
	m.CaptureException(errors.New("rejected"), map[string]string{"module": "dispatch"})
	require.Len(t, events, 1)
	assert.Equal(t, "acme", events[0].Tags["tenant"])
	assert.Equal(t, "dispatch", events[0].Tags["module"])

	m.CapturePanic("boom")
	assert.Len(t, events, 2)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{TracesSampleRate: 0.5}.Validate())
	assert.Error(t, Config{TracesSampleRate: 2}.Validate())
}
