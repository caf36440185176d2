package metrics

import (
	"fmt"

	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/infra/logger"
)

// LogConfig selects the level structured metric lines are written at.
type LogConfig struct {
	Level string `json:"level"`
}

// LogSink writes every event as a structured log line. Useful when no
// metrics backend is reachable.
type LogSink struct {
	log   logger.Logger
	debug bool
}

func NewLogSink(cfg LogConfig, log logger.Logger) (*LogSink, error) {
	s := &LogSink{log: log}
	switch cfg.Level {
	case "", "info":
	case "debug":
		s.debug = true
	default:
		return nil, fmt.Errorf("log sink level %q unsupported", cfg.Level)
	}
	if s.log == nil {
		s.log = logger.New("metrics")
	}
	return s, nil
}

func (s *LogSink) write(msg string, fields map[string]any) {
	if s.debug {
		s.log.Debugw(msg, fields)
		return
	}
	s.log.Infow(msg, fields)
}

func (s *LogSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	fields := map[string]any{
		"tenant":     ev.Tenant,
		"work_order": ev.WorkOrderID,
		"from":       ev.FromTechnician,
		"to":         ev.ToTechnician,
		"target":     ev.Target,
		"outcome":    ev.Outcome,
		"latency_ms": ev.Latency.Milliseconds(),
	}
	if ev.Error != "" {
		fields["error"] = ev.Error
	}
	s.write("assignment", fields)
	return nil
}

func (s *LogSink) RecordRefresh(ev coremetrics.RefreshEvent) error {
	fields := map[string]any{
		"tenant":      ev.Tenant,
		"version":     ev.Version,
		"success":     ev.Success,
		"technicians": ev.Technicians,
		"work_orders": ev.WorkOrders,
		"unassigned":  ev.Unassigned,
		"conflicts":   ev.Conflicts,
		"latency_ms":  ev.Latency.Milliseconds(),
	}
	if ev.Error != "" {
		fields["error"] = ev.Error
	}
	s.write("refresh", fields)
	return nil
}

func (s *LogSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	s.write("notification", map[string]any{
		"technician": ev.TechnicianID,
		"work_order": ev.WorkOrderID,
		"action":     ev.Action,
		"delivered":  ev.Delivered,
	})
	return nil
}
