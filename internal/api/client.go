package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"imsenvista/internal/config"
	"imsenvista/internal/models"
)

// Client is a client for the IMS Envista API. It is safe for concurrent
// use as long as the configured *http.Client is.
type Client struct {
	transport *Transport
	now       func() time.Time
}

// Option configures a Client
type Option func(*Client) error

// WithBaseURL overrides the API root, e.g. for a mock server
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if strings.TrimSpace(baseURL) == "" {
			return errors.New("base URL cannot be empty")
		}
		c.transport.baseURL = strings.TrimRight(baseURL, "/")
		return nil
	}
}

// WithHTTPClient sets the HTTP client; timeouts and cancellation are its concern
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		if httpClient == nil {
			return errors.New("http client cannot be nil")
		}
		c.transport.httpClient = httpClient
		return nil
	}
}

// WithLanguage selects the language of station and region names
func WithLanguage(lang string) Option {
	return func(c *Client) error {
		l, err := ParseLanguage(lang)
		if err != nil {
			return err
		}
		c.transport.language = l
		return nil
	}
}

// WithAuthScheme sets the Authorization scheme, "Bearer" by default.
// The live service expects "ApiToken".
func WithAuthScheme(scheme string) Option {
	return func(c *Client) error {
		if strings.TrimSpace(scheme) == "" {
			return errors.New("auth scheme cannot be empty")
		}
		c.transport.authScheme = strings.TrimSpace(scheme)
		return nil
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.transport.logger = logger
		}
		return nil
	}
}

// NewClient creates a new Envista API client. An empty token is rejected
// with an AuthenticationError.
func NewClient(token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &AuthenticationError{Reason: "missing API token"}
	}

	c := &Client{
		transport: &Transport{
			httpClient: &http.Client{Timeout: defaultTimeout},
			baseURL:    DefaultBaseURL,
			token:      token,
			authScheme: defaultAuthScheme,
			logger:     slog.Default(),
		},
		now: time.Now,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// NewClientFromConfig builds a client from the envista config section
func NewClientFromConfig(cfg config.EnvistaConfig, logger *slog.Logger) (*Client, error) {
	opts := []Option{WithLogger(logger)}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.AuthScheme != "" {
		opts = append(opts, WithAuthScheme(cfg.AuthScheme))
	}
	if cfg.Language != "" {
		opts = append(opts, WithLanguage(cfg.Language))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return NewClient(cfg.Token, opts...)
}

// GetLatestStationData fetches the most recent readings of a station
func (c *Client) GetLatestStationData(ctx context.Context, stationID int, opts ChannelOptions) (*models.StationMeteorologicalReadings, error) {
	req, err := LatestRequest(stationID, opts)
	if err != nil {
		return nil, err
	}
	return c.fetchReadings(ctx, stationID, req)
}

// GetEarliestStationData fetches the earliest available readings of a station
func (c *Client) GetEarliestStationData(ctx context.Context, stationID int, opts ChannelOptions) (*models.StationMeteorologicalReadings, error) {
	req, err := EarliestRequest(stationID, opts)
	if err != nil {
		return nil, err
	}
	return c.fetchReadings(ctx, stationID, req)
}

// GetStationDataFromDate fetches the readings of the calendar day of date
func (c *Client) GetStationDataFromDate(ctx context.Context, stationID int, date time.Time, opts ChannelOptions) (*models.StationMeteorologicalReadings, error) {
	req, err := FromDateRequest(stationID, date, opts)
	if err != nil {
		return nil, err
	}
	return c.fetchReadings(ctx, stationID, req)
}

// GetStationDataByDateRange fetches readings between two days, inclusive
func (c *Client) GetStationDataByDateRange(ctx context.Context, stationID int, from, to time.Time, opts ChannelOptions) (*models.StationMeteorologicalReadings, error) {
	req, err := RangeRequest(stationID, from, to, opts)
	if err != nil {
		return nil, err
	}
	return c.fetchReadings(ctx, stationID, req)
}

// GetDailyStationData fetches the current day's readings
func (c *Client) GetDailyStationData(ctx context.Context, stationID int, opts ChannelOptions) (*models.StationMeteorologicalReadings, error) {
	req, err := DailyRequest(stationID, opts)
	if err != nil {
		return nil, err
	}
	return c.fetchReadings(ctx, stationID, req)
}

// GetMonthlyStationData fetches a month of readings, the current month by default
func (c *Client) GetMonthlyStationData(ctx context.Context, stationID int, opts MonthlyOptions) (*models.StationMeteorologicalReadings, error) {
	req, err := MonthlyRequest(stationID, opts, c.now())
	if err != nil {
		return nil, err
	}
	return c.fetchReadings(ctx, stationID, req)
}

// GetAllStationsInfo fetches metadata for every station
func (c *Client) GetAllStationsInfo(ctx context.Context) ([]models.Station, error) {
	req := StationsRequest()
	body, err := c.get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stations: %w", err)
	}
	stations, err := models.ParseStations(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stations: %w", err)
	}
	return stations, nil
}

// GetStationInfo fetches metadata for a single station
func (c *Client) GetStationInfo(ctx context.Context, stationID int) (*models.Station, error) {
	req, err := StationRequest(stationID)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch station %d: %w", stationID, err)
	}
	station, err := models.ParseStation(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode station %d: %w", stationID, err)
	}
	c.warnIDMismatch("station", stationID, station.ID)
	return station, nil
}

// GetAllRegionsInfo fetches every region with its stations
func (c *Client) GetAllRegionsInfo(ctx context.Context) ([]models.Region, error) {
	req := RegionsRequest()
	body, err := c.get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch regions: %w", err)
	}
	regions, err := models.ParseRegions(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode regions: %w", err)
	}
	return regions, nil
}

// GetRegionInfo fetches a single region with its stations
func (c *Client) GetRegionInfo(ctx context.Context, regionID int) (*models.Region, error) {
	req, err := RegionRequest(regionID)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch region %d: %w", regionID, err)
	}
	region, err := models.ParseRegion(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode region %d: %w", regionID, err)
	}
	c.warnIDMismatch("region", regionID, region.ID)
	return region, nil
}

// GetMetricDescriptions returns the catalogue of measured variables. The
// catalogue is static, so no request is made.
func (c *Client) GetMetricDescriptions() []models.IMSVariable {
	return models.Variables()
}

// get performs req for a metadata endpoint, where 204 is a ServiceError
func (c *Client) get(ctx context.Context, req Request) ([]byte, error) {
	body, err := c.transport.Get(ctx, req)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, &ServiceError{StatusCode: http.StatusNoContent, URL: req.URL(c.transport.baseURL)}
	}
	return body, nil
}

func (c *Client) fetchReadings(ctx context.Context, stationID int, req Request) (*models.StationMeteorologicalReadings, error) {
	body, err := c.transport.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s data for station %d: %w", req.Op, stationID, err)
	}
	if body == nil {
		return models.EmptyReadings(stationID), nil
	}

	readings, err := models.ParseStationReadings(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s data for station %d: %w", req.Op, stationID, err)
	}
	c.warnIDMismatch("station", stationID, readings.StationID)
	return readings, nil
}

// warnIDMismatch logs a response describing a different record than requested.
// The parsed id is kept.
func (c *Client) warnIDMismatch(kind string, requested, got int) {
	if requested != got {
		c.transport.logger.Warn(kind+" id mismatch in response", "requested", requested, "got", got)
	}
}
