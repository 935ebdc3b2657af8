package biz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CampusLink/internal/conf"
	"CampusLink/pkg/httpclient"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, baseURL string) *Dispatcher {
	bc := &conf.Bootstrap{
		Client: &conf.Client{
			MaxRetries:              2,
			BaseBackoff:             time.Millisecond,
			Timeout:                 time.Second,
			CircuitFailureThreshold: 5,
			CircuitOpenTimeout:      time.Minute,
		},
		Services: &conf.Services{
			Notifications: baseURL,
		},
	}

	client, err := NewResilientClient(bc, log.DefaultLogger)
	require.NoError(t, err)

	return NewDispatcher(bc, client, log.DefaultLogger)
}

func TestDispatcher_Notify_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	d := newTestDispatcher(t, srv.URL)

	ok := d.Notify(context.Background(), "user-42", "maintenance", "Ticket resolved", "tok-1")

	assert.True(t, ok)
	assert.Equal(t, "/notifications", gotPath)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "user-42", gotBody["user_id"])
	assert.Equal(t, "maintenance", gotBody["type"])
	assert.Equal(t, "Ticket resolved", gotBody["message"])
}

func TestDispatcher_NotifyAdmins_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	d := newTestDispatcher(t, srv.URL)

	ok := d.NotifyAdmins(context.Background(), "sla_breach", "Ticket REQ-3 overdue", "escalation-sweep", "REQ-3", "svc-tok")

	assert.True(t, ok)
	assert.Equal(t, "/notifications/admin", gotPath)
	assert.Equal(t, "sla_breach", gotBody["type"])
	assert.Equal(t, "escalation-sweep", gotBody["actor_name"])
	assert.Equal(t, "REQ-3", gotBody["actor_id"])
}

func TestDispatcher_Notify_ServerErrorSwallowed(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := newTestDispatcher(t, srv.URL)

	ok := d.Notify(context.Background(), "user-42", "maintenance", "msg", "tok")

	assert.False(t, ok, "server failures must not surface as errors")
	assert.Equal(t, 2, hits, "client should exhaust its retry budget")
}

func TestDispatcher_Notify_RejectionSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := newTestDispatcher(t, srv.URL)

	ok := d.Notify(context.Background(), "user-42", "maintenance", "msg", "bad-token")

	assert.False(t, ok)
}

func TestDispatcher_Notify_NonCreatedStatusIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // acknowledged but not created
	}))
	defer srv.Close()

	d := newTestDispatcher(t, srv.URL)

	ok := d.Notify(context.Background(), "user-42", "maintenance", "msg", "tok")

	assert.False(t, ok)
}

func TestDispatcher_Notify_CircuitOpenSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	bc := &conf.Bootstrap{
		Client: &conf.Client{
			MaxRetries:              1,
			BaseBackoff:             time.Millisecond,
			Timeout:                 time.Second,
			CircuitFailureThreshold: 2,
			CircuitOpenTimeout:      time.Minute,
		},
		Services: &conf.Services{Notifications: srv.URL},
	}
	client, err := NewResilientClient(bc, log.DefaultLogger)
	require.NoError(t, err)
	d := NewDispatcher(bc, client, log.DefaultLogger)

	ctx := context.Background()

	// Two failed dispatches open the circuit
	assert.False(t, d.Notify(ctx, "u", "k", "m", ""))
	assert.False(t, d.Notify(ctx, "u", "k", "m", ""))
	assert.Equal(t, httpclient.StateOpen, client.BreakerState(srv.URL))

	// Third dispatch is rejected fast and still just returns false
	assert.False(t, d.Notify(ctx, "u", "k", "m", ""))
}
