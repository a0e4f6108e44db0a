package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/polkiloo/growthmart/internal/domain/model"
)

const maxErrorMessageLen = 255

// TooManyRequestsError represents rate limiting signal from the provider.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// Gateway submits orders to an external fulfillment provider.
type Gateway interface {
	Submit(ctx context.Context, req model.FulfillmentRequest) (model.FulfillmentResult, error)
}

// HTTPClient implements Gateway via the provider's JSON API.
type HTTPClient struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type submitRequest struct {
	Reference string `json:"reference"`
	ServiceID string `json:"serviceId"`
	TargetURL string `json:"targetUrl"`
	Quantity  int    `json:"quantity"`
}

// submitResponse mirrors JSON payload returned by the provider.
type submitResponse struct {
	OrderID string `json:"orderId"`
	Error   string `json:"error,omitempty"`
}

// NewHTTPClient creates provider client. The timeout bounds a whole request.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("provider url must be absolute")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Submit places order with the provider.
func (c *HTTPClient) Submit(ctx context.Context, req model.FulfillmentRequest) (model.FulfillmentResult, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/orders")

	payload, err := json.Marshal(submitRequest{
		Reference: req.OrderID,
		ServiceID: req.ServiceID,
		TargetURL: req.TargetURL,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return model.FulfillmentResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return model.FulfillmentResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return model.FulfillmentResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return model.FulfillmentResult{}, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var data submitResponse
		if err := json.Unmarshal(body, &data); err != nil {
			return model.FulfillmentResult{}, fmt.Errorf("decode provider response: %w", err)
		}
		if data.OrderID == "" {
			return model.FulfillmentResult{Success: false, ErrorMessage: truncate(data.Error)}, nil
		}
		return model.FulfillmentResult{Success: true, ExternalOrderID: data.OrderID}, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return model.FulfillmentResult{}, TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var data submitResponse
		_ = json.Unmarshal(body, &data)
		msg := data.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return model.FulfillmentResult{Success: false, ErrorMessage: truncate(msg)}, nil
	default:
		c.logger.Error("provider request failed",
			slog.String("order", req.OrderID),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
		return model.FulfillmentResult{}, fmt.Errorf("provider error: %s", resp.Status)
	}
}

// truncate caps msg at maxErrorMessageLen bytes without splitting a rune.
// Invalid UTF-8 from the provider is replaced so the message is always storable.
func truncate(msg string) string {
	msg = strings.ToValidUTF8(msg, "?")
	if len(msg) <= maxErrorMessageLen {
		return msg
	}
	msg = msg[:maxErrorMessageLen]
	for !utf8.ValidString(msg) {
		msg = msg[:len(msg)-1]
	}
	return msg
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
