// Package midtrans is the outbound adapter for the Midtrans Snap hosted
// payment API and the authenticity check for its notifications.
package midtrans

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/anditama/go-shop-backend/internal/domain/order"
)

// Config holds the Snap client settings.
type Config struct {
	// ServerKey is the merchant server key, used both for API authentication
	// and for webhook signature validation.
	ServerKey string
	// BaseURL is the Snap API origin, e.g. https://app.sandbox.midtrans.com.
	BaseURL string
	// Timeout bounds each CreateSession call.
	Timeout time.Duration
}

var _ order.PaymentGateway = (*Client)(nil)

// Client calls the Snap API to open hosted payment sessions.
type Client struct {
	http    *http.Client
	baseURL string
	auth    string
}

// NewClient creates a Snap client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		// Snap uses HTTP basic auth with the server key as username and an
		// empty password.
		auth: "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.ServerKey+":")),
	}
}

type snapTransactionDetails struct {
	OrderID     string  `json:"order_id"`
	GrossAmount float64 `json:"gross_amount"`
}

type snapCustomerDetails struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
}

type snapItemDetail struct {
	ID       string  `json:"id"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Name     string  `json:"name"`
}

type snapRequest struct {
	TransactionDetails snapTransactionDetails `json:"transaction_details"`
	CustomerDetails    snapCustomerDetails    `json:"customer_details"`
	ItemDetails        []snapItemDetail       `json:"item_details"`
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// CreateSession opens a Snap transaction for one checkout attempt and returns
// the session token and redirect URL.
func (c *Client) CreateSession(ctx context.Context, req order.SessionRequest) (*order.PaymentSession, error) {
	items := make([]snapItemDetail, len(req.Items))
	for i, it := range req.Items {
		items[i] = snapItemDetail{
			ID:       fmt.Sprintf("%d", it.ID),
			Price:    it.Price.InexactFloat64(),
			Quantity: it.Quantity,
			Name:     it.Name,
		}
	}

	body, err := json.Marshal(snapRequest{
		TransactionDetails: snapTransactionDetails{
			OrderID:     req.OrderRef,
			GrossAmount: req.GrossAmount.InexactFloat64(),
		},
		CustomerDetails: snapCustomerDetails{
			FirstName: req.CustomerName,
			Email:     req.CustomerEmail,
		},
		ItemDetails: items,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal snap request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/snap/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build snap request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", c.auth)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "snap request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read snap response")
	}

	var sr snapResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, errors.Wrapf(err, "decode snap response (status %d)", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(sr.ErrorMessages) > 0 {
			return nil, errors.Errorf("snap returned %d: %s", resp.StatusCode, strings.Join(sr.ErrorMessages, "; "))
		}
		return nil, errors.Errorf("snap returned %d", resp.StatusCode)
	}
	if sr.Token == "" {
		return nil, errors.New("snap response missing token")
	}

	return &order.PaymentSession{
		Token:       sr.Token,
		RedirectURL: sr.RedirectURL,
	}, nil
}
