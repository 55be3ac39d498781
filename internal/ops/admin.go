package ops

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/muzhenpeng-1998/bluecone-console/internal/gateway"
)

// AdminService wraps the admin API behind the ops dashboard. The injected
// client attaches the bearer token when one is saved; without a token the
// calls still go out and the server's 401 surfaces as a panel error.
type AdminService struct {
	client *gateway.Client
}

func NewAdminService(client *gateway.Client) *AdminService {
	return &AdminService{client: client}
}

// OutboxRecord is one delivery attempt in the transactional outbox.
type OutboxRecord struct {
	ID           string `json:"id"`
	EventType    string `json:"eventType"`
	AggregateID  string `json:"aggregateId"`
	Status       string `json:"status"`
	RetryCount   int    `json:"retryCount"`
	LastError    string `json:"lastError"`
	CreatedAt    string `json:"createdAt"`
	NextRetryAt  string `json:"nextRetryAt"`
	DeliveredAt  string `json:"deliveredAt"`
	PayloadBrief string `json:"payloadBrief"`
}

// JobDefinition is one scheduled job as listed by the scheduler API.
type JobDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cron        string `json:"cron"`
	Status      string `json:"status"`
	LastRunAt   string `json:"lastRunAt"`
	LastResult  string `json:"lastResult"`
	NextRunAt   string `json:"nextRunAt"`
	Description string `json:"description"`
}

// ConfigProperty is one config-center entry for a tenant/env pair.
type ConfigProperty struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	TenantID  string `json:"tenantId"`
	Env       string `json:"env"`
	UpdatedAt string `json:"updatedAt"`
	UpdatedBy string `json:"updatedBy"`
}

// NotificationForm is the test-notification request. ScenarioCode and
// Title are required; blank Content is omitted from the payload.
type NotificationForm struct {
	ScenarioCode string `json:"scenarioCode"`
	Title        string `json:"title"`
	Content      string `json:"content,omitempty"`
	Priority     string `json:"priority"`
}

// ValidationError is a local guard failure; the request never left the
// console.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (s *AdminService) ListOutbox(ctx context.Context, page, pageSize int) ([]OutboxRecord, error) {
	path := fmt.Sprintf("/api/admin/outbox?page=%d&pageSize=%d", page, pageSize)
	payload, err := s.client.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return gateway.DecodeList[OutboxRecord](payload)
}

func (s *AdminService) RetryOutbox(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Reason: "outbox id required"}
	}
	_, err := s.client.Post(ctx, "/api/admin/outbox/"+url.PathEscape(id)+"/retry", nil)
	return err
}

func (s *AdminService) ListJobs(ctx context.Context) ([]JobDefinition, error) {
	payload, err := s.client.Get(ctx, "/api/admin/scheduler/jobs")
	if err != nil {
		return nil, err
	}
	return gateway.DecodeList[JobDefinition](payload)
}

func (s *AdminService) TriggerJob(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Reason: "job id required"}
	}
	_, err := s.client.Post(ctx, "/api/admin/scheduler/jobs/"+url.PathEscape(id)+"/trigger", nil)
	return err
}

func (s *AdminService) ListConfigProperties(ctx context.Context, tenantID, env string) ([]ConfigProperty, error) {
	tenantID = strings.TrimSpace(tenantID)
	env = strings.TrimSpace(env)
	if tenantID == "" || env == "" {
		return nil, &ValidationError{Reason: "请填写 tenantId 与 env"}
	}
	params := url.Values{}
	params.Set("tenantId", tenantID)
	params.Set("env", env)
	payload, err := s.client.Get(ctx, "/api/admin/config/properties?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return gateway.DecodeList[ConfigProperty](payload)
}

// SendTestNotification posts a debug notification and returns the server's
// result text. JSON responses collapse to a fixed success line.
func (s *AdminService) SendTestNotification(ctx context.Context, form NotificationForm) (string, error) {
	if strings.TrimSpace(form.ScenarioCode) == "" || strings.TrimSpace(form.Title) == "" {
		return "", &ValidationError{Reason: "ScenarioCode 与 Title 必填"}
	}
	if form.Priority == "" {
		form.Priority = "NORMAL"
	}
	form.Content = strings.TrimSpace(form.Content)
	payload, err := s.client.Post(ctx, "/api/admin/notify/test", form)
	if err != nil {
		return "", err
	}
	if payload.IsJSON() {
		return "调用成功，已发送通知", nil
	}
	return payload.Text(), nil
}
