package carly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/example/parklite/internal/parking/domain"
)

// Car is a vehicle record returned by the partner rental service.
type Car struct {
	ID       string   `json:"id"`
	Model    Model    `json:"model"`
	Location Location `json:"location"`
}

// Model describes the vehicle model.
type Model struct {
	ID             string  `json:"id"`
	BrandName      string  `json:"brandName"`
	Name           string  `json:"name"`
	ProductionYear int     `json:"productionYear"`
	FuelType       string  `json:"fuelType"`
	SeatCount      int64   `json:"seatCount"`
	DoorCount      int64   `json:"doorCount"`
	DailyRate      float64 `json:"dailyRate"`
}

// Location carries the vehicle coordinate.
type Location struct {
	ID          string  `json:"id"`
	FullAddress string  `json:"fullAddress"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type carsPage struct {
	Content []Car `json:"content"`
}

// Config holds the partner endpoint settings. The hostname is injected at
// construction; nothing reads ambient process state.
type Config struct {
	BaseURL     string
	MaxAttempts int
	Timeout     time.Duration
}

// Client talks to the partner rental HTTP service. The car search path is
// retried on transport faults; the write path is not.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// FetchCars retrieves the partner's complete car list. The partner is asked
// for an effectively unbounded page so ranking and pagination happen locally
// over the full set. Transport faults are logged and retried immediately up
// to the attempt budget.
func (c *Client) FetchCars(ctx context.Context) ([]Car, error) {
	endpoint := fmt.Sprintf("%s/cars?page=1&size=%d&sort=asc", c.cfg.BaseURL, math.MaxInt32)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		cars, err := c.fetchCarsOnce(ctx, endpoint)
		if err == nil {
			return cars, nil
		}
		lastErr = err
		c.logger.Warn("partner car search failed", zap.Error(err), zap.Int("attempt", attempt))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: car search failed after %d attempts: %v", domain.ErrUpstream, c.cfg.MaxAttempts, lastErr)
}

func (c *Client) fetchCarsOnce(ctx context.Context, endpoint string) ([]Car, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("partner request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("partner returned status %d", resp.StatusCode)
	}
	var page carsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode partner response: %w", err)
	}
	return page.Content, nil
}

// EnsureCustomer creates the customer on the partner side, treating an
// already-exists conflict as success. Not retried.
func (c *Client) EnsureCustomer(ctx context.Context, email string) error {
	status, err := c.postJSON(ctx, c.cfg.BaseURL+"/customers/external", map[string]string{"email": email}, "")
	if err != nil {
		return fmt.Errorf("%w: create partner customer: %v", domain.ErrUpstream, err)
	}
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusConflict:
		return nil
	default:
		return fmt.Errorf("%w: create partner customer returned status %d", domain.ErrUpstream, status)
	}
}

// CreateRental books the car on the partner side, authenticated by the
// customer identity header. Not retried; a fault surfaces immediately.
func (c *Client) CreateRental(ctx context.Context, email, carID string, startAt, endAt time.Time) error {
	body := map[string]string{
		"carId":   carID,
		"startAt": startAt.Format(time.RFC3339),
		"endAt":   endAt.Format(time.RFC3339),
	}
	status, err := c.postJSON(ctx, c.cfg.BaseURL+"/rentals", body, email)
	if err != nil {
		return fmt.Errorf("%w: create partner rental: %v", domain.ErrUpstream, err)
	}
	switch status {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		return fmt.Errorf("%w: partner rental conflict", domain.ErrAlreadyExists)
	default:
		return fmt.Errorf("%w: create partner rental returned status %d", domain.ErrUpstream, status)
	}
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body any, bearer string) (int, error) {
	if _, err := url.Parse(endpoint); err != nil {
		return 0, fmt.Errorf("bad endpoint: %w", err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("partner request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
