package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchboard/core/dispatch"
	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
	coremon "github.com/kilianp07/dispatchboard/core/monitoring"
)

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

type recordMonitor struct {
	mu   sync.Mutex
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	r.err, r.tags = err, tags
	r.mu.Unlock()
}
func (r *recordMonitor) CapturePanic(any)    {}
func (r *recordMonitor) Flush(time.Duration) {}

type notificationSink struct {
	coremetrics.NopSink
	mu     sync.Mutex
	events []coremetrics.NotificationEvent
}

func (s *notificationSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return nil
}

func TestNotifierSubscribesToAcks(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	_, err := NewNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883", QoS: map[string]byte{"ack": 2}}, "acme")
	require.NoError(t, err)
	require.Len(t, mc.subscribed, 1)
	assert.Equal(t, "dispatch/acme/technicians/+/acks", mc.subscribed[0].topic)
	assert.Equal(t, byte(2), mc.subscribed[0].qos)
}

func TestNotifyPublishesPayload(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	n, err := NewNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883", TopicPrefix: "fsm", QoS: map[string]byte{"notification": 0}}, "acme")
	require.NoError(t, err)
	sink := &notificationSink{}
	n.SetMetricsSink(sink)

	id, err := n.Notify(context.Background(), "T1", ActionAssigned, "W2", "T1-2024-06-03")
	require.NoError(t, err)
	msgs := mc.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "fsm/acme/technicians/T1/assignments", msgs[0].topic)
	assert.Equal(t, byte(0), msgs[0].qos)

	var got Notification
	require.NoError(t, json.Unmarshal(msgs[0].payload, &got))
	assert.Equal(t, id, got.NotificationID)
	assert.Equal(t, "W2", got.WorkOrderID)
	assert.Equal(t, ActionAssigned, got.Action)
	assert.Equal(t, "T1-2024-06-03", got.Slot)
	require.Len(t, sink.events, 1)
	assert.True(t, sink.events[0].Delivered)
}

func TestNotifyRetriesThenSucceeds(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMock(t, mc)
	n, err := NewNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1}, "acme")
	require.NoError(t, err)
	_, err = n.Notify(context.Background(), "T1", ActionAssigned, "W1", "T1-2024-06-03")
	require.NoError(t, err)
	assert.Len(t, mc.messages(), 2)
}

func TestNotifyErrorCaptured(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail}}
	withMock(t, mc)
	mon := &recordMonitor{}
	prev := coremon.Init(mon)
	defer coremon.Init(prev)

	n, err := NewNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1}, "acme")
	require.NoError(t, err)
	_, err = n.Notify(context.Background(), "T2", ActionUnassigned, "W1", "unassigned-2024-06-03")
	require.Error(t, err)
	assert.ErrorIs(t, err, fail)
	mon.mu.Lock()
	defer mon.mu.Unlock()
	if mon.err == nil {
		t.Fatalf("error not captured")
	}
	if mon.tags["technician_id"] != "T2" || mon.tags["module"] != "mqtt" {
		t.Fatalf("tags not set: %v", mon.tags)
	}
}

func TestHandleNotifiesBothTechnicians(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	n, err := NewNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883"}, "acme")
	require.NoError(t, err)

	ctx := context.Background()
	n.Handle(ctx, dispatch.Event{Type: dispatch.EventGestureStarted, WorkOrderID: "W1"})
	n.Handle(ctx, dispatch.Event{Type: dispatch.EventAssignmentSucceeded, WorkOrderID: "W1", From: "T1", To: "T2", Target: "T2-2024-06-04"})
	n.Handle(ctx, dispatch.Event{Type: dispatch.EventAssignmentSucceeded, WorkOrderID: "W2", To: "T1", Target: "T1-2024-06-04"})

	msgs := mc.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "dispatch/acme/technicians/T2/assignments", msgs[0].topic)
	assert.Equal(t, "dispatch/acme/technicians/T1/assignments", msgs[1].topic)
	var unassigned Notification
	require.NoError(t, json.Unmarshal(msgs[1].payload, &unassigned))
	assert.Equal(t, ActionUnassigned, unassigned.Action)
	assert.Equal(t, "dispatch/acme/technicians/T1/assignments", msgs[2].topic)
}

func TestRunStopsOnClosedChannel(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	n, err := NewNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883"}, "acme")
	require.NoError(t, err)

	events := make(chan dispatch.Event, 1)
	events <- dispatch.Event{Type: dispatch.EventAssignmentSucceeded, WorkOrderID: "W1", To: "T1", Target: "T1-2024-06-03"}
	close(events)
	done := make(chan struct{})
	go func() {
		n.Run(context.Background(), events)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not return")
	}
	assert.Len(t, mc.messages(), 1)
}

func TestAssignmentFailedPublishesAsync(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	n, err := NewNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883"}, "acme")
	require.NoError(t, err)

	n.AssignmentFailed(context.Background(), dispatch.Failure{WorkOrderID: "W2", TechnicianID: "T1", Target: "T1-2024-06-03", Err: errors.New("slot full")})
	n.Disconnect()

	msgs := mc.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "dispatch/acme/dispatch/failures", msgs[0].topic)
	var got FailureMessage
	require.NoError(t, json.Unmarshal(msgs[0].payload, &got))
	assert.Equal(t, "slot full", got.Error)
}

func TestWaitForAck(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	n, err := NewNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883"}, "acme")
	require.NoError(t, err)

	id, err := n.notify(context.Background(), "T1", ActionAssigned, "W1", "T1-2024-06-03", true)
	require.NoError(t, err)
	n.onAck(nil, mockMessage{[]byte(fmt.Sprintf(`{"notification_id":"%s"}`, id))})
	ok, err := n.WaitForAck(context.Background(), id, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = n.WaitForAck(context.Background(), id, time.Millisecond)
	assert.Error(t, err, "ack channels are dropped after a wait")

	_, err = n.NotifyAndWait(context.Background(), "T1", ActionAssigned, "W1", "T1-2024-06-03", time.Millisecond)
	assert.ErrorIs(t, err, ErrAckTimeout)
}

// ackWhenPublished acks the n-th published notification once it appears.
func ackWhenPublished(t *testing.T, mc *mockClient, n *Notifier, count int) {
	t.Helper()
	go func() {
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if msgs := mc.messages(); len(msgs) >= count {
				var got Notification
				if err := json.Unmarshal(msgs[count-1].payload, &got); err != nil {
					t.Errorf("decode: %v", err)
					return
				}
				n.onAck(nil, mockMessage{[]byte(fmt.Sprintf(`{"notification_id":"%s"}`, got.NotificationID))})
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
}

func TestHandleAndWait(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	n, err := NewNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883"}, "acme")
	require.NoError(t, err)
	ctx := context.Background()

	moved := dispatch.Event{Type: dispatch.EventAssignmentSucceeded, WorkOrderID: "W1", From: "T1", To: "T2", Target: "T2-2024-06-04"}
	ackWhenPublished(t, mc, n, 2)
	require.NoError(t, n.HandleAndWait(ctx, moved, time.Second))

	msgs := mc.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "dispatch/acme/technicians/T1/assignments", msgs[0].topic)
	assert.Equal(t, "dispatch/acme/technicians/T2/assignments", msgs[1].topic)

	err = n.HandleAndWait(ctx, dispatch.Event{Type: dispatch.EventAssignmentSucceeded, WorkOrderID: "W2", To: "T1", Target: "T1-2024-06-04"}, 5*time.Millisecond)
	assert.ErrorIs(t, err, ErrAckTimeout)
	assert.Contains(t, err.Error(), "technician T1")

	assert.NoError(t, n.HandleAndWait(ctx, dispatch.Event{Type: dispatch.EventGestureStarted, WorkOrderID: "W1"}, time.Millisecond))
	assert.Len(t, mc.messages(), 3)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "dispatch", cfg.TopicPrefix)

	cfg.Enabled = true
	assert.Error(t, cfg.Validate())
	cfg.Broker = "tcp://localhost:1883"
	assert.NoError(t, cfg.Validate())
	cfg.QoS = map[string]byte{"notification": 3}
	assert.Error(t, cfg.Validate())
	cfg.QoS = nil
	cfg.TopicPrefix = "a/#"
	assert.Error(t, cfg.Validate())

	_, err := NewNotifier(Config{Enabled: true, Broker: "tcp://x:1"}, "")
	assert.Error(t, err)
}
