package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/utils/ptr"

	"imsenvista/internal/api"
	"imsenvista/internal/models"
)

// Service is the subset of *api.Client the gateway serves
type Service interface {
	GetLatestStationData(ctx context.Context, stationID int, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error)
	GetEarliestStationData(ctx context.Context, stationID int, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error)
	GetDailyStationData(ctx context.Context, stationID int, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error)
	GetStationDataFromDate(ctx context.Context, stationID int, date time.Time, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error)
	GetStationDataByDateRange(ctx context.Context, stationID int, from, to time.Time, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error)
	GetMonthlyStationData(ctx context.Context, stationID int, opts api.MonthlyOptions) (*models.StationMeteorologicalReadings, error)
	GetAllStationsInfo(ctx context.Context) ([]models.Station, error)
	GetStationInfo(ctx context.Context, stationID int) (*models.Station, error)
	GetAllRegionsInfo(ctx context.Context) ([]models.Region, error)
	GetRegionInfo(ctx context.Context, regionID int) (*models.Region, error)
	GetMetricDescriptions() []models.IMSVariable
}

// Server represents the HTTP server
type Server struct {
	svc    Service
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer creates a new HTTP server
func NewServer(svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	// Register routes
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /variables", s.handleVariables)
	s.mux.HandleFunc("GET /stations", s.handleStations)
	s.mux.HandleFunc("GET /stations/{id}", s.handleStation)
	s.mux.HandleFunc("GET /stations/{id}/latest", s.handleLatest)
	s.mux.HandleFunc("GET /stations/{id}/earliest", s.handleEarliest)
	s.mux.HandleFunc("GET /stations/{id}/daily", s.handleDaily)
	s.mux.HandleFunc("GET /stations/{id}/range", s.handleRange)
	s.mux.HandleFunc("GET /stations/{id}/monthly", s.handleMonthly)
	s.mux.HandleFunc("GET /regions", s.handleRegions)
	s.mux.HandleFunc("GET /regions/{id}", s.handleRegion)

	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// handleHealth returns the server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().String(),
	})
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	vars := s.svc.GetMetricDescriptions()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(vars),
		"variables": vars,
	})
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := s.svc.GetAllStationsInfo(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(stations),
		"stations": stations,
	})
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	station, err := s.svc.GetStationInfo(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, station)
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.svc.GetAllRegionsInfo(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(regions),
		"regions": regions,
	})
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	region, err := s.svc.GetRegionInfo(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, region)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.serveReadings(w, r, func(ctx context.Context, id int, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error) {
		return s.svc.GetLatestStationData(ctx, id, opts)
	})
}

func (s *Server) handleEarliest(w http.ResponseWriter, r *http.Request) {
	s.serveReadings(w, r, func(ctx context.Context, id int, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error) {
		return s.svc.GetEarliestStationData(ctx, id, opts)
	})
}

// handleDaily serves the current day, or the day given by ?date=YYYY-MM-DD
func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		s.serveReadings(w, r, func(ctx context.Context, id int, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error) {
			return s.svc.GetDailyStationData(ctx, id, opts)
		})
		return
	}

	date, err := parseDate(dateStr)
	if err != nil {
		http.Error(w, "Invalid date: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.serveReadings(w, r, func(ctx context.Context, id int, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error) {
		return s.svc.GetStationDataFromDate(ctx, id, date, opts)
	})
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "Invalid from: "+err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "Invalid to: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.serveReadings(w, r, func(ctx context.Context, id int, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error) {
		return s.svc.GetStationDataByDateRange(ctx, id, from, to, opts)
	})
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var monthly api.MonthlyOptions
	if v := q.Get("month"); v != "" {
		monthly.Month = ptr.To(v)
	}
	if v := q.Get("year"); v != "" {
		monthly.Year = ptr.To(v)
	}
	s.serveReadings(w, r, func(ctx context.Context, id int, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error) {
		monthly.ChannelID = opts.ChannelID
		return s.svc.GetMonthlyStationData(ctx, id, monthly)
	})
}

type readingsFunc func(ctx context.Context, stationID int, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error)

// serveReadings resolves the station id and ?channel= and writes the readings
func (s *Server) serveReadings(w http.ResponseWriter, r *http.Request, fetch readingsFunc) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var opts api.ChannelOptions
	if ch := r.URL.Query().Get("channel"); ch != "" {
		channelID, err := strconv.Atoi(ch)
		if err != nil {
			http.Error(w, "Invalid channel: "+ch, http.StatusBadRequest)
			return
		}
		opts.ChannelID = ptr.To(channelID)
	}

	readings, err := fetch(r.Context(), id, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"station_id": readings.StationID,
		"count":      len(readings.Data),
		"data":       readings.Data,
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "Invalid id: "+raw, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}
	return time.ParseInLocation(time.DateOnly, s, models.ServiceLocation)
}

// statusFor maps client errors onto gateway responses
func statusFor(err error) int {
	var (
		paramErr    *api.InvalidParameterError
		rangeErr    *api.InvalidRangeError
		langErr     *api.UnsupportedLanguageError
		notFoundErr *api.NotFoundError
	)
	switch {
	case errors.As(err, &paramErr), errors.As(err, &rangeErr), errors.As(err, &langErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusBadGateway {
		s.logger.Error("upstream request failed", "path", r.URL.Path, "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeJSON encodes v fully before any header is sent
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", "err", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		s.logger.Debug("failed to write response", "err", err)
	}
}
