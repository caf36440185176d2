// Package httpapi is the schedule backend reached over HTTP.
//
//	GET {base}/tenants/{tenant}/schedule?from=YYYY-MM-DD&to=YYYY-MM-DD
//	PUT {base}/tenants/{tenant}/work-orders/{id}/assignment  {"technicianId": "T1"|null}
//
// Fetches are retried on transport errors and 5xx answers. Assignment
// requests are sent exactly once.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/kilianp07/dispatchboard/auth"
	"github.com/kilianp07/dispatchboard/core/factory"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/schedule"
	"github.com/kilianp07/dispatchboard/infra/logger"
)

const RequestIDHeader = "X-Request-ID"

// Config of the HTTP backend.
type Config struct {
	BaseURL        string    `json:"base_url"`
	Token          string    `json:"token"`
	OAuth          auth.Conf `json:"oauth"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	RetryCount     int       `json:"retry_count"`
	RetryWaitMS    int       `json:"retry_wait_ms"`
}

func (c *Config) SetDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
	if c.RetryCount == 0 {
		c.RetryCount = 2
	}
	if c.RetryWaitMS == 0 {
		c.RetryWaitMS = 200
	}
}

func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("backend base_url required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("backend base_url must be http(s): %q", c.BaseURL)
	}
	if c.TimeoutSeconds < 0 || c.RetryCount < 0 || c.RetryWaitMS < 0 {
		return fmt.Errorf("backend timeout and retry settings must be >= 0")
	}
	if c.Token != "" && c.OAuth.Enabled() {
		return fmt.Errorf("backend token and oauth are mutually exclusive")
	}
	return c.OAuth.Validate()
}

// Client implements schedule.Backend.
type Client struct {
	fetch  *resty.Client
	mutate *resty.Client
	log    logger.Logger
}

type scheduleResponse struct {
	Technicians []model.Technician `json:"technicians"`
	WorkOrders  []model.WorkOrder  `json:"workOrders"`
}

type assignmentRequest struct {
	TechnicianID *string `json:"technicianId"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) reason() string {
	if e == nil {
		return ""
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

func New(cfg Config) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	wait := time.Duration(cfg.RetryWaitMS) * time.Millisecond

	var creds *auth.ClientCred
	if cfg.OAuth.Enabled() {
		creds = auth.NewClientCred(cfg.OAuth)
	}

	fetch := newResty(base, timeout, cfg.Token, creds).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(8 * wait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	mutate := newResty(base, timeout, cfg.Token, creds).SetRetryCount(0)

	return &Client{fetch: fetch, mutate: mutate, log: logger.New("backend-http")}, nil
}

func newResty(base string, timeout time.Duration, token string, creds *auth.ClientCred) *resty.Client {
	c := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	c.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get(RequestIDHeader) == "" {
			r.SetHeader(RequestIDHeader, uuid.NewString())
		}
		if creds != nil {
			tok, err := creds.Token(r.Context())
			if err != nil {
				return fmt.Errorf("backend auth: %w", err)
			}
			r.SetAuthToken(tok)
		}
		return nil
	})
	return c
}

// FetchSchedule returns the full snapshot for r.
func (c *Client) FetchSchedule(ctx context.Context, tenant string, r model.DateRange) (model.Snapshot, error) {
	var out scheduleResponse
	var apiErr apiError
	resp, err := c.fetch.R().
		SetContext(ctx).
		SetPathParam("tenant", tenant).
		SetQueryParams(map[string]string{"from": r.From.String(), "to": r.To.String()}).
		SetResult(&out).
		SetError(&apiErr).
		Get("/tenants/{tenant}/schedule")
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("fetch schedule: %w", err)
	}
	if resp.IsError() {
		reason := apiErr.reason()
		if reason == "" {
			reason = http.StatusText(resp.StatusCode())
		}
		return model.Snapshot{}, fmt.Errorf("fetch schedule: status %d: %s", resp.StatusCode(), reason)
	}
	c.log.Debugf("fetched %d technicians and %d work orders for %s %s", len(out.Technicians), len(out.WorkOrders), tenant, r)
	return model.Snapshot{
		Tenant:      tenant,
		Range:       r,
		Technicians: out.Technicians,
		WorkOrders:  out.WorkOrders,
	}, nil
}

// SetAssignment sends one PUT. An empty technicianID is sent as null.
func (c *Client) SetAssignment(ctx context.Context, tenant, workOrderID, technicianID string) error {
	body := assignmentRequest{}
	if technicianID != "" {
		body.TechnicianID = &technicianID
	}
	var apiErr apiError
	resp, err := c.mutate.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"tenant": tenant, "id": workOrderID}).
		SetBody(body).
		SetError(&apiErr).
		Put("/tenants/{tenant}/work-orders/{id}/assignment")
	if err != nil {
		return &schedule.AssignmentError{WorkOrderID: workOrderID, TechnicianID: technicianID, Err: err}
	}
	if resp.IsError() {
		sentinel := schedule.ErrRejected
		if resp.StatusCode() == http.StatusNotFound {
			sentinel = schedule.ErrNotFound
		}
		reason := apiErr.reason()
		if reason == "" {
			reason = strings.TrimSpace(resp.String())
		}
		if reason == "" {
			reason = http.StatusText(resp.StatusCode())
		}
		return &schedule.AssignmentError{WorkOrderID: workOrderID, TechnicianID: technicianID, Reason: reason, Err: sentinel}
	}
	return nil
}

func init() {
	if err := schedule.RegisterBackend("http", func(conf map[string]any) (schedule.Backend, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, fmt.Errorf("http backend config: %w", err)
		}
		return New(c)
	}); err != nil {
		panic(err)
	}
}
