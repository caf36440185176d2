package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/infra/logger"
)

// InfluxSink writes board events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// InfluxConfig locates the bucket receiving board events.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAssignment writes one assignment_event point per drop.
func (s *InfluxSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	p := write.NewPointWithMeasurement("assignment_event").
		AddTag("tenant", ev.Tenant).
		AddTag("work_order_id", ev.WorkOrderID).
		AddTag("outcome", ev.Outcome).
		AddTag("component", "dispatch").
		AddField("from_technician", ev.FromTechnician).
		AddField("to_technician", ev.ToTechnician).
		AddField("target", ev.Target).
		AddField("latency_ms", ev.Latency.Milliseconds())
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	return s.write(p.SetTime(ev.Time))
}

func (s *InfluxSink) RecordRefresh(ev coremetrics.RefreshEvent) error {
	p := write.NewPointWithMeasurement("board_refresh").
		AddTag("tenant", ev.Tenant).
		AddTag("success", boolTag(ev.Success)).
		AddTag("component", "board").
		AddField("version", int64(ev.Version)).
		AddField("technicians", ev.Technicians).
		AddField("work_orders", ev.WorkOrders).
		AddField("unassigned", ev.Unassigned).
		AddField("conflicts", ev.Conflicts).
		AddField("latency_ms", ev.Latency.Milliseconds())
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	return s.write(p.SetTime(ev.Time))
}

func (s *InfluxSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	p := write.NewPointWithMeasurement("technician_notification").
		AddTag("technician_id", ev.TechnicianID).
		AddTag("action", ev.Action).
		AddTag("component", "mqtt").
		AddField("work_order_id", ev.WorkOrderID).
		AddField("delivered", ev.Delivered).
		SetTime(ev.Time)
	return s.write(p)
}

// Close flushes and releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
