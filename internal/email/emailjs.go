package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"garagem/internal/garagem"
)

// DefaultEndpoint is the EmailJS REST send endpoint.
const DefaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

const (
	noItemsText = "Nenhum item especificado"
	noNotesText = "Nenhuma observação especial"
)

// EmailJSDispatcher sends reminders through the EmailJS REST API.
type EmailJSDispatcher struct {
	serviceID  string
	templateID string
	publicKey  string
	privateKey string
	endpoint   string
	client     *http.Client
	clock      garagem.Clock
	logger     garagem.Logger
}

var _ garagem.EmailDispatcher = (*EmailJSDispatcher)(nil)

// EmailJSOptions holds the EmailJS account identifiers. PrivateKey is the
// optional access token required when the account enforces it.
type EmailJSOptions struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	Endpoint   string
	Client     *http.Client
}

// NewEmailJSDispatcher creates a dispatcher. An empty endpoint uses
// DefaultEndpoint; a nil client gets a 15 second timeout.
func NewEmailJSDispatcher(opts EmailJSOptions, clock garagem.Clock, logger garagem.Logger) *EmailJSDispatcher {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return &EmailJSDispatcher{
		serviceID:  opts.ServiceID,
		templateID: opts.TemplateID,
		publicKey:  opts.PublicKey,
		privateKey: opts.PrivateKey,
		endpoint:   opts.Endpoint,
		client:     opts.Client,
		clock:      clock,
		logger:     logger,
	}
}

// IsConfigured checks the shape of the account identifiers. It does not
// contact EmailJS.
func (d *EmailJSDispatcher) IsConfigured() bool {
	return strings.HasPrefix(d.serviceID, "service_") &&
		strings.HasPrefix(d.templateID, "template_") &&
		len(d.publicKey) > 15
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// SendReminder posts one reminder. Only an HTTP 200 answer counts as
// accepted.
func (d *EmailJSDispatcher) SendReminder(ctx context.Context, record *garagem.MaintenanceRecord, toEmail, toName string) error {
	if !d.IsConfigured() {
		return garagem.ErrEmailNotConfigured
	}

	body, err := json.Marshal(sendRequest{
		ServiceID:      d.serviceID,
		TemplateID:     d.templateID,
		UserID:         d.publicKey,
		AccessToken:    d.privateKey,
		TemplateParams: TemplateParams(record, toEmail, toName, d.clock.Now()),
	})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("emailjs returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	io.Copy(io.Discard, resp.Body)

	d.logger.Debug("reminder email accepted", "maintenance", record.ID, "to", toEmail)
	return nil
}

// TemplateParams builds the variables the reminder template expects.
func TemplateParams(record *garagem.MaintenanceRecord, toEmail, toName string, now time.Time) map[string]string {
	notes := strings.TrimSpace(record.Notes)
	if notes == "" {
		notes = noNotesText
	}
	return map[string]string{
		"to_email":          toEmail,
		"to_name":           toName,
		"maintenance_title": record.Title,
		"vehicle_name":      record.VehicleName,
		"maintenance_date":  record.DueDate.Format("02/01/2006"),
		"total_cost":        record.TotalCost.StringFixed(2),
		"items_list":        itemsList(record.Items),
		"notes":             notes,
		"current_year":      fmt.Sprint(now.Year()),
	}
}

func itemsList(items []garagem.MaintenanceItem) string {
	if len(items) == 0 {
		return noItemsText
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("• %s - R$ %s", it.Description, it.Cost.StringFixed(2))
	}
	return strings.Join(lines, "\n")
}
