package order

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go-ordersync/internal/config"

	"go.uber.org/zap"
)

// SourceAPIError covers transport failures, non-2xx responses and malformed
// payloads from the storefront
type SourceAPIError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *SourceAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("storefront %s failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("storefront %s failed: %v", e.Op, e.Err)
}

func (e *SourceAPIError) Unwrap() error {
	return e.Err
}

type OrderService interface {
	// FetchOrdersSince returns orders created strictly after the given instant,
	// limited to a single page
	FetchOrdersSince(ctx context.Context, since time.Time) ([]Order, error)
}

type OrderServiceImpl struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	pageSize       int
	client         *http.Client
	logger         *zap.Logger
}

func NewOrderService(cfg *config.Config, logger *zap.Logger) OrderService {
	return &OrderServiceImpl{
		baseURL:        cfg.WooBaseURL,
		consumerKey:    cfg.WooConsumerKey,
		consumerSecret: cfg.WooConsumerSecret,
		pageSize:       cfg.OrdersPageSize,
		client:         &http.Client{Timeout: 30 * time.Second},
		logger:         logger,
	}
}

func (s *OrderServiceImpl) FetchOrdersSince(ctx context.Context, since time.Time) ([]Order, error) {
	params := url.Values{}
	params.Set("after", since.UTC().Format("2006-01-02T15:04:05"))
	params.Set("per_page", fmt.Sprintf("%d", s.pageSize))

	reqURL := fmt.Sprintf("%s/orders?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &SourceAPIError{Op: "fetch orders", Err: err}
	}
	// WooCommerce uses Basic auth with consumer key/secret
	req.SetBasicAuth(s.consumerKey, s.consumerSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &SourceAPIError{Op: "fetch orders", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &SourceAPIError{Op: "fetch orders", StatusCode: resp.StatusCode}
	}

	var orders []Order
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, &SourceAPIError{Op: "decode orders", Err: err}
	}

	s.logger.Debug("Fetched orders from storefront",
		zap.Int("count", len(orders)),
		zap.Time("since", since))

	return orders, nil
}
