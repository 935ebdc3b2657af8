package biz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"CampusLink/internal/conf"
	"CampusLink/pkg/httpclient"
	logx "CampusLink/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// asyncDispatchTimeout bounds a detached notification dispatch so a hung
// notification service cannot pile up goroutines.
const asyncDispatchTimeout = 30 * time.Second

// Notifier is the outbound notification capability used by the ticket
// usecase and the escalation sweep. Dispatch is best-effort: the boolean
// reports delivery, never an error the caller must handle.
type Notifier interface {
	Notify(ctx context.Context, userID, kind, message, token string) bool
	NotifyAdmins(ctx context.Context, action, message, actorName, actorID, token string) bool
	NotifyAdminsAsync(action, message, actorName, actorID, token string)
}

// NewResilientClient builds the shared outbound HTTP client from bootstrap
// configuration.
func NewResilientClient(bc *conf.Bootstrap, logger log.Logger) (*httpclient.Client, error) {
	cfg := httpclient.DefaultConfig()
	if bc.Client != nil {
		cfg = httpclient.Config{
			MaxRetries:       bc.Client.MaxRetries,
			BaseBackoff:      bc.Client.BaseBackoff,
			Timeout:          bc.Client.Timeout,
			FailureThreshold: bc.Client.CircuitFailureThreshold,
			OpenTimeout:      bc.Client.CircuitOpenTimeout,
			ProxyURL:         bc.Client.ProxyURL,
		}
	}
	return httpclient.New(cfg, logger)
}

// Dispatcher delivers notifications to the notification service over the
// resilient client. Every failure path is swallowed and logged: a dead
// notification service must never fail ticket creation or escalation.
type Dispatcher struct {
	client  *httpclient.Client
	baseURL string
	logger  *logx.LogHelper
}

// NewDispatcher creates a notification dispatcher targeting the configured
// notification service.
func NewDispatcher(bc *conf.Bootstrap, client *httpclient.Client, logger log.Logger) *Dispatcher {
	baseURL := ""
	if bc.Services != nil {
		baseURL = bc.Services.Notifications
	}
	return &Dispatcher{
		client:  client,
		baseURL: baseURL,
		logger:  logx.NewLogHelper(logger),
	}
}

// Notify delivers a single-user notification. The bearer token is passed
// through unchanged. Returns true only when the notification service
// acknowledged with 201 Created.
func (d *Dispatcher) Notify(ctx context.Context, userID, kind, message, token string) bool {
	payload := map[string]string{
		"user_id": userID,
		"type":    kind,
		"message": message,
	}
	return d.post(ctx, d.baseURL+"/notifications", payload, token)
}

// NotifyAdmins delivers a notification to the admin broadcast endpoint.
func (d *Dispatcher) NotifyAdmins(ctx context.Context, action, message, actorName, actorID, token string) bool {
	payload := map[string]string{
		"type":       action,
		"message":    message,
		"actor_name": actorName,
		"actor_id":   actorID,
	}
	return d.post(ctx, d.baseURL+"/notifications/admin", payload, token)
}

// NotifyAdminsAsync dispatches an admin notification on a detached
// goroutine. The caller's context is deliberately not used: the dispatch
// should survive the request that triggered it, and failures stay visible
// through the dispatcher's own logging.
func (d *Dispatcher) NotifyAdminsAsync(action, message, actorName, actorID, token string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncDispatchTimeout)
		defer cancel()
		d.NotifyAdmins(ctx, action, message, actorName, actorID, token)
	}()
}

func (d *Dispatcher) post(ctx context.Context, url string, payload map[string]string, token string) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Warnw("msg", "failed to encode notification payload", "url", url, "error", err)
		return false
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.client.Post(ctx, url, body, header)
	if err != nil {
		var open *httpclient.CircuitOpenError
		if errors.As(err, &open) {
			d.logger.Circuit("notification service circuit open, dropping notification",
				"destination", open.Destination,
				"retry_after", open.RetryAfter.String())
			return false
		}
		d.logger.Dispatch("notification dispatch failed",
			"url", url,
			"error", err.Error())
		return false
	}

	if resp.StatusCode != http.StatusCreated {
		d.logger.Dispatch("notification service rejected dispatch",
			"url", url,
			"status", resp.StatusCode)
		return false
	}

	d.logger.Dispatch("notification dispatched", "url", url)
	return true
}
