package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"imsenvista/internal/api"
	"imsenvista/internal/config"
	"imsenvista/internal/logging"
	"imsenvista/internal/metrics"
	"imsenvista/internal/models"
)

const (
	appName  = "envista-collect"
	dataType = "latest"
)

var version = "dev"

// readingsFetcher is the part of *api.Client the collector uses
type readingsFetcher interface {
	GetLatestStationData(ctx context.Context, stationID int, opts api.ChannelOptions) (*models.StationMeteorologicalReadings, error)
}

// streamWriter is the part of *redis.Client the collector uses
type streamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the YAML config file")
	once := flag.Bool("once", false, "collect a single round and exit")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log, appName, version)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logger)
	metrics.SetAppInfo(appName, version)

	if len(cfg.Collector.Stations) == 0 {
		logger.Error("no stations configured under collector.stations")
		os.Exit(1)
	}

	client, err := api.NewClientFromConfig(cfg.Envista, logger)
	if err != nil {
		logger.Error("failed to create Envista client", "err", err)
		os.Exit(1)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &collector{
		fetcher: client,
		writer:  redisClient,
		stream:  cfg.Redis.Stream,
		targets: cfg.Collector.Stations,
		logger:  logger,
		now:     time.Now,
	}

	if *once || cfg.Collector.Interval == 0 {
		published := c.collect(ctx)
		logger.Info("data collection completed", "published", published, "stations", len(c.targets))
		return
	}

	c.run(ctx, cfg.Collector.Interval)
	logger.Info("collector stopped")
}

type collector struct {
	fetcher readingsFetcher
	writer  streamWriter
	stream  string
	targets []config.StationTarget
	logger  *slog.Logger
	now     func() time.Time
}

// run collects immediately and then on every tick until ctx is done
func (c *collector) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		published := c.collect(ctx)
		c.logger.Info("collection round completed", "published", published, "stations", len(c.targets))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// collect fetches the latest readings of every target concurrently and
// returns how many were published
func (c *collector) collect(ctx context.Context) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		published int
	)

	for _, target := range c.targets {
		wg.Add(1)
		go func(target config.StationTarget) {
			defer wg.Done()

			c.logger.Debug("fetching latest readings", "station", target.ID)
			readings, err := c.fetcher.GetLatestStationData(ctx, target.ID, api.ChannelOptions{ChannelID: target.ChannelID})
			if err != nil {
				c.logger.Error("failed to fetch latest readings", "station", target.ID, "err", err)
				return
			}
			if len(readings.Data) == 0 {
				c.logger.Info("no readings available", "station", target.ID)
				return
			}

			if err := c.sendToRedis(ctx, readings, target); err != nil {
				c.logger.Error("failed to publish readings", "station", target.ID, "err", err)
				return
			}

			mu.Lock()
			published++
			mu.Unlock()
		}(target)
	}

	wg.Wait()
	return published
}

// sendToRedis serializes the readings and publishes them to the Redis stream
func (c *collector) sendToRedis(ctx context.Context, readings *models.StationMeteorologicalReadings, target config.StationTarget) error {
	stationID := strconv.Itoa(readings.StationID)

	data, err := json.Marshal(map[string]interface{}{
		"station_id":   readings.StationID,
		"channel_id":   target.ChannelID,
		"readings":     readings.Data,
		"type":         dataType,
		"collected_at": c.now().UTC(),
	})
	if err != nil {
		metrics.RecordPublish(stationID, err)
		return fmt.Errorf("failed to serialize readings for station %d: %w", readings.StationID, err)
	}

	err = c.writer.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		Values: map[string]interface{}{
			"station_id": stationID,
			"data":       string(data),
		},
	}).Err()
	metrics.RecordPublish(stationID, err)
	if err != nil {
		return fmt.Errorf("failed to publish to Redis for station %d: %w", readings.StationID, err)
	}

	c.logger.Info("published readings", "station", readings.StationID, "count", len(readings.Data), "stream", c.stream)
	return nil
}
