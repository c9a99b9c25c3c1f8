package geocoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"GeoAuthPlatform/pkg/connection"
	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/pkg/logger"
)

// Geocoder интерфейс для обращения к внешнему провайдеру геокодирования
type Geocoder interface {
	Lookup(ctx context.Context, query string) ([]byte, error)
}

// Config конфигурация клиента геокодирования
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout ограничивает каждую попытку запроса к провайдеру
	Timeout time.Duration
	// RetryAttempts количество повторов после первой неудачной попытки
	RetryAttempts int
}

// Client HTTP клиент провайдера геокодирования.
// HTTP клиент инжектируется для подмены в тестах
type Client struct {
	config     Config
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient создает новый клиент геокодирования
func NewClient(config Config, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     log,
	}
}

// Lookup выполняет запрос к провайдеру с ограниченным таймаутом.
// Неудачная попытка повторяется RetryAttempts раз, после чего таймаут
// отдается как UPSTREAM_TIMEOUT, остальные сбои как UPSTREAM_ERROR
func (c *Client) Lookup(ctx context.Context, query string) ([]byte, error) {
	requestURL, err := c.buildURL(query)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocoder url: %w", err)
	}

	retryConfig := connection.RetryConfig{
		MaxAttempts:  c.config.RetryAttempts + 1,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}

	var payload []byte
	err = connection.WithRetry(ctx, retryConfig, func(ctx context.Context) error {
		body, attemptErr := c.doRequest(ctx, requestURL)
		if attemptErr != nil {
			c.logger.Warn("geocoder request failed",
				logger.String("query", query),
				logger.Error(attemptErr))
			return attemptErr
		}
		payload = body
		return nil
	})

	if err != nil {
		if isTimeout(err) {
			return nil, apperrors.Wrap(err, apperrors.ErrUpstreamTimeout, "geocoding provider timed out")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrUpstream, "geocoding provider request failed")
	}

	return payload, nil
}

// doRequest выполняет одну попытку запроса с собственным таймаутом
func (c *Client) doRequest(ctx context.Context, requestURL string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoder request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call geocoder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read geocoder response: %w", err)
	}

	return body, nil
}

func (c *Client) buildURL(query string) (string, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", err
	}

	values := u.Query()
	values.Set("address", query)
	values.Set("key", c.config.APIKey)
	u.RawQuery = values.Encode()

	return u.String(), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
