package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/response-map-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Operating region. Coordinates outside RegionBounds are rejected only
	// when RegionEnforced is set.
	RegionBounds   domain.BoundingBox
	RegionEnforced bool
	DefaultCenter  domain.Coordinate
}

// Region returns the bounding box to enforce, or nil when enforcement is off.
func (c *Config) Region() *domain.BoundingBox {
	if !c.RegionEnforced {
		return nil
	}
	b := c.RegionBounds
	return &b
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeoutStr := sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s")
	mapboxTimeout, err2 := time.ParseDuration(mapboxTimeoutStr)
	if err2 != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	region := domain.TaitaTavetaRegion
	if s := os.Getenv("REGION_BOUNDS"); s != "" {
		if region, err = ParseRegion(s); err != nil {
			return nil, fmt.Errorf("invalid REGION_BOUNDS: %w", err)
		}
	}

	center := domain.TaitaTavetaCentroid
	if s := os.Getenv("DEFAULT_CENTER"); s != "" {
		if center, err = domain.ParseCoordinate(s, nil); err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_CENTER: %w", err)
		}
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		KafkaEnabled:       envBool("KAFKA_ENABLED", true),
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "dispatch-snapshots"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "map-models"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "response-map"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		RegionBounds:   region,
		RegionEnforced: envBool("REGION_ENFORCED", false),
		DefaultCenter:  center,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// ParseRegion reads "lngMin,latMin,lngMax,latMax". Each corner goes through
// the coordinate codec, so the same number rules apply.
func ParseRegion(s string) (domain.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.BoundingBox{}, fmt.Errorf("want lngMin,latMin,lngMax,latMax, got %d values", len(parts))
	}

	sw, err := domain.ParseCoordinate(parts[0]+","+parts[1], nil)
	if err != nil {
		return domain.BoundingBox{}, fmt.Errorf("south-west corner: %w", err)
	}
	ne, err := domain.ParseCoordinate(parts[2]+","+parts[3], nil)
	if err != nil {
		return domain.BoundingBox{}, fmt.Errorf("north-east corner: %w", err)
	}
	if sw.Lon > ne.Lon || sw.Lat > ne.Lat {
		return domain.BoundingBox{}, errors.New("south-west corner must not exceed north-east corner")
	}

	return domain.BoundingBox{LatMin: sw.Lat, LatMax: ne.Lat, LngMin: sw.Lon, LngMax: ne.Lon}, nil
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return def
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
