package ledgerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/providers"
)

// Client implements the LedgerProvider interface against the clinic's
// secondary REST ledger. Callers wrap every write in the dispatcher's retry
// envelope; the client itself makes exactly one attempt per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a ledger API client. baseURL points at the API root,
// e.g. http://ledger:9090/api.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// RecordFinishedVisit posts the FINISHED projection of a queue entry.
func (c *Client) RecordFinishedVisit(ctx context.Context, record *entities.FinishedVisitRecord) error {
	endpoint := fmt.Sprintf("%s/patients", c.baseURL)
	return c.doJSON(ctx, http.MethodPost, endpoint, record, nil)
}

// RecordConsultationPayment posts a settled consultation payment.
func (c *Client) RecordConsultationPayment(ctx context.Context, record *providers.ConsultationPaymentRecord) error {
	endpoint := fmt.Sprintf("%s/billing/consultation", c.baseURL)
	return c.doJSON(ctx, http.MethodPost, endpoint, record, nil)
}

// SettleBill marks a doctor-issued bill settled in the ledger.
func (c *Client) SettleBill(ctx context.Context, doctorID, billingID string, settlement *providers.BillSettlement) error {
	endpoint := fmt.Sprintf("%s/billing/doctor/%s/%s",
		c.baseURL, url.PathEscape(doctorID), url.PathEscape(billingID))
	return c.doJSON(ctx, http.MethodPut, endpoint, settlement, nil)
}

// GetDoctorSettings fetches a doctor's fee schedule.
func (c *Client) GetDoctorSettings(ctx context.Context, doctorID string) (*entities.DoctorSettings, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, fmt.Errorf("doctor id is required")
	}
	endpoint := fmt.Sprintf("%s/doctors/%s/settings", c.baseURL, url.PathEscape(doctorID))
	out := &entities.DoctorSettings{}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ledger api returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
