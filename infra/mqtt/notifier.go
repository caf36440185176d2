// Package mqtt tells technicians about assignment changes over MQTT and
// forwards failed assignments to the dispatch failures topic.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/dispatchboard/core/dispatch"
	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/core/monitoring"
	"github.com/kilianp07/dispatchboard/infra/logger"
)

const (
	ActionAssigned   = "assigned"
	ActionUnassigned = "unassigned"
)

// ErrAckTimeout is returned when a technician does not acknowledge in time.
var ErrAckTimeout = errors.New("ack timeout")

// Notification is the payload published to a technician.
type Notification struct {
	NotificationID string `json:"notification_id"`
	WorkOrderID    string `json:"work_order_id"`
	TechnicianID   string `json:"technician_id"`
	Action         string `json:"action"`
	Slot           string `json:"slot"`
	Timestamp      int64  `json:"timestamp"`
}

// FailureMessage is published when the backend rejects an assignment.
type FailureMessage struct {
	WorkOrderID  string `json:"work_order_id"`
	TechnicianID string `json:"technician_id,omitempty"`
	Slot         string `json:"slot"`
	Error        string `json:"error"`
	Timestamp    int64  `json:"timestamp"`
}

// AssignmentTopic is where a technician's device listens.
func AssignmentTopic(prefix, tenant, technicianID string) string {
	return fmt.Sprintf("%s/%s/technicians/%s/assignments", prefix, tenant, technicianID)
}

func ackTopic(prefix, tenant string) string {
	return fmt.Sprintf("%s/%s/technicians/+/acks", prefix, tenant)
}

func failureTopic(prefix, tenant string) string {
	return fmt.Sprintf("%s/%s/dispatch/failures", prefix, tenant)
}

// Notifier publishes technician notifications through Eclipse Paho.
type Notifier struct {
	cli     pahoClient
	cfg     Config
	tenant  string
	log     logger.Logger
	sink    coremetrics.MetricsSink
	backoff time.Duration
	now     func() time.Time

	mu   sync.Mutex
	acks map[string]chan struct{}
	wg   sync.WaitGroup
}

// NewNotifier connects to the broker and subscribes to technician acks.
func NewNotifier(cfg Config, tenant string) (*Notifier, error) {
	if tenant == "" {
		return nil, fmt.Errorf("tenant required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_notifier")
	n := &Notifier{
		cfg:     cfg,
		tenant:  tenant,
		log:     log,
		sink:    coremetrics.NopSink{},
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
		now:     time.Now,
		acks:    make(map[string]chan struct{}),
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(ackTopic(cfg.TopicPrefix, tenant), cfg.qos("ack"), n.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	n.cli = c
	return n, nil
}

// SetMetricsSink receives one NotificationEvent per publish when the sink
// implements NotificationRecorder.
func (n *Notifier) SetMetricsSink(s coremetrics.MetricsSink) {
	if s != nil {
		n.sink = s
	}
}

func (n *Notifier) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		NotificationID string `json:"notification_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		n.log.Errorf("failed to decode ack: %v", err)
		return
	}
	n.mu.Lock()
	ch, ok := n.acks[m.NotificationID]
	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	n.mu.Unlock()
	n.log.Debugf("received ack %s", m.NotificationID)
}

// Notify publishes one notification and returns its id.
func (n *Notifier) Notify(ctx context.Context, technicianID, action, workOrderID, slotKey string) (string, error) {
	return n.notify(ctx, technicianID, action, workOrderID, slotKey, false)
}

func (n *Notifier) notify(ctx context.Context, technicianID, action, workOrderID, slotKey string, track bool) (string, error) {
	if technicianID == "" {
		return "", fmt.Errorf("technician id required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msg := Notification{
		NotificationID: uuid.NewString(),
		WorkOrderID:    workOrderID,
		TechnicianID:   technicianID,
		Action:         action,
		Slot:           slotKey,
		Timestamp:      n.now().UnixMilli(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	if track {
		n.mu.Lock()
		n.acks[msg.NotificationID] = make(chan struct{}, 1)
		n.mu.Unlock()
	}
	topic := AssignmentTopic(n.cfg.TopicPrefix, n.tenant, technicianID)
	err = publish(n.cli, topic, n.cfg.qos("notification"), n.cfg.Retained, payload, n.cfg.MaxRetries, n.backoff)
	n.record(msg, err == nil)
	if err != nil {
		n.forget(msg.NotificationID)
		n.log.Errorf("publish %s to %s failed: %v", msg.NotificationID, topic, err)
		monitoring.CaptureException(err, map[string]string{"module": "mqtt", "technician_id": technicianID, "work_order": workOrderID})
		return "", fmt.Errorf("publish notification: %w", err)
	}
	n.log.Infof("sent %s notification %s to %s", action, msg.NotificationID, topic)
	return msg.NotificationID, nil
}

// NotifyAndWait publishes and blocks until the technician acknowledges or
// timeout expires.
func (n *Notifier) NotifyAndWait(ctx context.Context, technicianID, action, workOrderID, slotKey string, timeout time.Duration) (string, error) {
	id, err := n.notify(ctx, technicianID, action, workOrderID, slotKey, true)
	if err != nil {
		return "", err
	}
	ok, err := n.WaitForAck(ctx, id, timeout)
	if err != nil {
		return id, err
	}
	if !ok {
		return id, ErrAckTimeout
	}
	return id, nil
}

// WaitForAck blocks until an ack for id is received, timeout expires or ctx
// is done. Only ids published through NotifyAndWait are tracked.
func (n *Notifier) WaitForAck(ctx context.Context, id string, timeout time.Duration) (bool, error) {
	n.mu.Lock()
	ch := n.acks[id]
	n.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("unknown notification %s", id)
	}
	defer n.forget(id)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true, nil
	case <-timer.C:
		return false, fmt.Errorf("%w", ErrAckTimeout)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (n *Notifier) forget(id string) {
	n.mu.Lock()
	delete(n.acks, id)
	n.mu.Unlock()
}

func (n *Notifier) record(msg Notification, delivered bool) {
	rec, ok := n.sink.(coremetrics.NotificationRecorder)
	if !ok {
		return
	}
	if err := rec.RecordNotification(coremetrics.NotificationEvent{
		TechnicianID: msg.TechnicianID,
		WorkOrderID:  msg.WorkOrderID,
		Action:       msg.Action,
		Delivered:    delivered,
		Time:         n.now(),
	}); err != nil {
		n.log.Warnf("record notification: %v", err)
	}
}

// Handle turns a successful assignment into notifications for the new and
// the previous technician. Other events are ignored.
func (n *Notifier) Handle(ctx context.Context, e dispatch.Event) {
	if e.Type != dispatch.EventAssignmentSucceeded || e.From == e.To {
		return
	}
	if e.To != "" {
		_, _ = n.Notify(ctx, e.To, ActionAssigned, e.WorkOrderID, e.Target)
	}
	if e.From != "" {
		_, _ = n.Notify(ctx, e.From, ActionUnassigned, e.WorkOrderID, e.Target)
	}
}

// HandleAndWait notifies like Handle, then blocks until the newly assigned
// technician acknowledges or timeout expires. The previous technician is told
// first and never waited on.
func (n *Notifier) HandleAndWait(ctx context.Context, e dispatch.Event, timeout time.Duration) error {
	if e.Type != dispatch.EventAssignmentSucceeded || e.From == e.To {
		return nil
	}
	if e.From != "" {
		_, _ = n.Notify(ctx, e.From, ActionUnassigned, e.WorkOrderID, e.Target)
	}
	if e.To == "" {
		return nil
	}
	id, err := n.NotifyAndWait(ctx, e.To, ActionAssigned, e.WorkOrderID, e.Target, timeout)
	if err != nil {
		return fmt.Errorf("technician %s ack: %w", e.To, err)
	}
	n.log.Infof("technician %s acknowledged %s", e.To, id)
	return nil
}

// Run consumes coordinator events until ctx is done or events is closed.
func (n *Notifier) Run(ctx context.Context, events <-chan dispatch.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			n.Handle(ctx, e)
		}
	}
}

// AssignmentFailed publishes the failure without blocking the coordinator.
func (n *Notifier) AssignmentFailed(_ context.Context, f dispatch.Failure) {
	msg := FailureMessage{
		WorkOrderID:  f.WorkOrderID,
		TechnicianID: f.TechnicianID,
		Slot:         f.Target,
		Timestamp:    n.now().UnixMilli(),
	}
	if f.Err != nil {
		msg.Error = f.Err.Error()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		n.log.Errorf("encode failure: %v", err)
		return
	}
	topic := failureTopic(n.cfg.TopicPrefix, n.tenant)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := publish(n.cli, topic, n.cfg.qos("failure"), false, payload, n.cfg.MaxRetries, n.backoff); err != nil {
			n.log.Errorf("publish failure for %s: %v", msg.WorkOrderID, err)
		}
	}()
}

// Disconnect waits for pending failure messages and closes the connection.
func (n *Notifier) Disconnect() {
	n.wg.Wait()
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}

// Topic helpers exposed for subscribers in tests and tools.
func TechnicianWildcard(prefix, tenant string) string {
	return strings.Join([]string{prefix, tenant, "technicians", "+", "assignments"}, "/")
}
