package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"garagem/internal/config"
	"garagem/internal/garagem"
	"garagem/internal/testutil"
)

type captured struct {
	mu       sync.Mutex
	requests []sendRequest
}

func (c *captured) last(t *testing.T) sendRequest {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		t.Fatal("no request received")
	}
	return c.requests[len(c.requests)-1]
}

func newTestServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		c.mu.Lock()
		c.requests = append(c.requests, req)
		c.mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte("OK"))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func validOptions(endpoint string) EmailJSOptions {
	return EmailJSOptions{
		ServiceID:  "service_9whkq7j",
		TemplateID: "template_6qrvxpv",
		PublicKey:  "lAqb6B3bzGcEnul-W",
		Endpoint:   endpoint,
	}
}

func sampleRecord() *garagem.MaintenanceRecord {
	return &garagem.MaintenanceRecord{
		ID:          "m-1",
		Title:       "Revisão dos 30 mil",
		VehicleName: "Honda Civic",
		DueDate:     time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		Items: []garagem.MaintenanceItem{
			{Description: "Óleo", Cost: decimal.RequireFromString("120.5")},
			{Description: "Filtro", Cost: decimal.RequireFromString("30")},
		},
		TotalCost: decimal.RequireFromString("150.5"),
	}
}

func TestEmailJSDispatcher_IsConfigured(t *testing.T) {
	tests := []struct {
		name string
		opts EmailJSOptions
		want bool
	}{
		{name: "valid", opts: validOptions(""), want: true},
		{name: "bad service prefix", opts: EmailJSOptions{ServiceID: "svc_1", TemplateID: "template_1", PublicKey: "0123456789abcdef"}},
		{name: "bad template prefix", opts: EmailJSOptions{ServiceID: "service_1", TemplateID: "tpl_1", PublicKey: "0123456789abcdef"}},
		{name: "short public key", opts: EmailJSOptions{ServiceID: "service_1", TemplateID: "template_1", PublicKey: "0123456789abcde"}},
		{name: "empty", opts: EmailJSOptions{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewEmailJSDispatcher(tt.opts, testutil.FixedClock(), garagem.NewNopLogger())
			if got := d.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmailJSDispatcher_SendReminder(t *testing.T) {
	srv, c := newTestServer(t, http.StatusOK)
	opts := validOptions(srv.URL)
	opts.PrivateKey = "private-token"
	d := NewEmailJSDispatcher(opts, testutil.FixedClock(), garagem.NewNopLogger())

	if err := d.SendReminder(context.Background(), sampleRecord(), "ana@example.com", "Ana"); err != nil {
		t.Fatalf("SendReminder() error = %v", err)
	}

	req := c.last(t)
	if req.ServiceID != "service_9whkq7j" || req.TemplateID != "template_6qrvxpv" || req.UserID != "lAqb6B3bzGcEnul-W" {
		t.Errorf("account fields = %+v", req)
	}
	if req.AccessToken != "private-token" {
		t.Errorf("AccessToken = %q, want %q", req.AccessToken, "private-token")
	}

	want := map[string]string{
		"to_email":          "ana@example.com",
		"to_name":           "Ana",
		"maintenance_title": "Revisão dos 30 mil",
		"vehicle_name":      "Honda Civic",
		"maintenance_date":  "10/06/2025",
		"total_cost":        "150.50",
		"items_list":        "• Óleo - R$ 120.50\n• Filtro - R$ 30.00",
		"notes":             "Nenhuma observação especial",
		"current_year":      "2025",
	}
	for k, v := range want {
		if got := req.TemplateParams[k]; got != v {
			t.Errorf("template_params[%s] = %q, want %q", k, got, v)
		}
	}
}

func TestEmailJSDispatcher_NonOKStatus(t *testing.T) {
	for _, status := range []int{http.StatusAccepted, http.StatusBadRequest, http.StatusInternalServerError} {
		srv, _ := newTestServer(t, status)
		d := NewEmailJSDispatcher(validOptions(srv.URL), testutil.FixedClock(), garagem.NewNopLogger())
		if err := d.SendReminder(context.Background(), sampleRecord(), "ana@example.com", "Ana"); err == nil {
			t.Errorf("SendReminder() with status %d returned nil error", status)
		}
	}
}

func TestEmailJSDispatcher_NotConfigured(t *testing.T) {
	srv, c := newTestServer(t, http.StatusOK)
	d := NewEmailJSDispatcher(EmailJSOptions{Endpoint: srv.URL}, testutil.FixedClock(), garagem.NewNopLogger())

	if err := d.SendReminder(context.Background(), sampleRecord(), "ana@example.com", "Ana"); err != garagem.ErrEmailNotConfigured {
		t.Errorf("SendReminder() error = %v, want ErrEmailNotConfigured", err)
	}
	if len(c.requests) != 0 {
		t.Errorf("sent %d requests, want 0", len(c.requests))
	}
}

func TestEmailJSDispatcher_CancelledContext(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK)
	d := NewEmailJSDispatcher(validOptions(srv.URL), testutil.FixedClock(), garagem.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.SendReminder(ctx, sampleRecord(), "ana@example.com", "Ana"); err == nil {
		t.Error("SendReminder() with cancelled context returned nil error")
	}
}

func TestTemplateParams_Defaults(t *testing.T) {
	rec := &garagem.MaintenanceRecord{
		Title:     "Troca de óleo",
		DueDate:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		TotalCost: decimal.NewFromInt(80),
		Notes:     "  ",
	}
	p := TemplateParams(rec, "a@b.c", "A", time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC))

	if p["items_list"] != "Nenhum item especificado" {
		t.Errorf("items_list = %q", p["items_list"])
	}
	if p["notes"] != "Nenhuma observação especial" {
		t.Errorf("notes = %q", p["notes"])
	}
	if p["maintenance_date"] != "02/01/2026" {
		t.Errorf("maintenance_date = %q", p["maintenance_date"])
	}
	if p["total_cost"] != "80.00" {
		t.Errorf("total_cost = %q", p["total_cost"])
	}
	if p["current_year"] != "2025" {
		t.Errorf("current_year = %q", p["current_year"])
	}
}

func TestNewDispatcherFromConfig(t *testing.T) {
	clock := testutil.FixedClock()
	logger := garagem.NewNopLogger()

	t.Run("emailjs loads private key", func(t *testing.T) {
		srv, c := newTestServer(t, http.StatusOK)
		secrets := testutil.NewMemorySecrets()
		secrets.Put("emailjs_private_key", "tok")

		d, err := NewDispatcherFromConfig(config.EmailConfig{
			Type:             "emailjs",
			ServiceID:        "service_abc",
			TemplateID:       "template_abc",
			PublicKey:        "0123456789abcdefg",
			Endpoint:         srv.URL,
			PrivateKeySecret: "emailjs_private_key",
		}, secrets, clock, logger)
		if err != nil {
			t.Fatalf("NewDispatcherFromConfig() error = %v", err)
		}
		if !d.IsConfigured() {
			t.Fatal("IsConfigured() = false, want true")
		}
		if err := d.SendReminder(context.Background(), sampleRecord(), "a@b.c", "A"); err != nil {
			t.Fatalf("SendReminder() error = %v", err)
		}
		if got := c.last(t).AccessToken; got != "tok" {
			t.Errorf("AccessToken = %q, want %q", got, "tok")
		}
	})

	tests := []struct {
		typ        string
		configured bool
		wantErr    bool
	}{
		{typ: "log", configured: true},
		{typ: "none", configured: false},
		{typ: "smtp", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			d, err := NewDispatcherFromConfig(config.EmailConfig{Type: tt.typ}, nil, clock, logger)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewDispatcherFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if d.IsConfigured() != tt.configured {
				t.Errorf("IsConfigured() = %v, want %v", d.IsConfigured(), tt.configured)
			}
		})
	}
}

func TestLogDispatcher(t *testing.T) {
	d := NewLogDispatcher(testutil.FixedClock(), garagem.NewNopLogger())
	if err := d.SendReminder(context.Background(), sampleRecord(), "a@b.c", "A"); err != nil {
		t.Errorf("SendReminder() error = %v", err)
	}
}
