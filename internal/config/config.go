package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// SettingsSource is the persisted settings overlay. SettingsRepository
// implements it over the settings table.
type SettingsSource interface {
	All() (map[string]string, error)
}

type Config struct {
	DatabaseURL      string
	RedisAddr        string
	FFprobePath      string
	CacheDir         string
	LibraryDir       string
	RecycleDir       string
	ProbeTimeout     time.Duration
	ProbeWorkers     int
	JobConcurrency   int
	RetentionWindow  time.Duration
	MaxAssetBytes    int64
	GCSchedule       string
	VerifySchedule   string
	PhashMaxDistance int
}

func Load() *Config {
	return &Config{
		DatabaseURL:      env("DATABASE_URL", "postgres://mediakeep:mediakeep@db:5432/mediakeep?sslmode=disable"),
		RedisAddr:        env("REDIS_ADDR", "redis:6379"),
		FFprobePath:      env("FFPROBE_PATH", "ffprobe"),
		CacheDir:         env("CACHE_DIR", "/data/cache"),
		LibraryDir:       env("LIBRARY_DIR", "/data/library"),
		RecycleDir:       env("RECYCLE_DIR", "/data/recycle"),
		ProbeTimeout:     envDuration("PROBE_TIMEOUT", 30*time.Second),
		ProbeWorkers:     envInt("PROBE_WORKERS", 4),
		JobConcurrency:   envInt("JOB_CONCURRENCY", 2),
		RetentionWindow:  envDuration("GC_RETENTION_WINDOW", 30*24*time.Hour),
		MaxAssetBytes:    envInt64("MAX_ASSET_BYTES", 512<<20),
		GCSchedule:       env("GC_SCHEDULE", "0 4 * * *"),
		VerifySchedule:   env("VERIFY_SCHEDULE", "0 5 * * 0"),
		PhashMaxDistance: envInt("PHASH_MAX_DISTANCE", 10),
	}
}

// MergeFromDB overrides config values with rows from the settings table.
// A missing table or key is not an error; env/defaults stay in effect.
// Unparsable values are ignored the same way.
func (c *Config) MergeFromDB(settings SettingsSource) {
	values, err := settings.All()
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}

	for key, value := range values {
		switch key {
		case "gc_retention_window":
			if d, err := time.ParseDuration(value); err == nil {
				c.RetentionWindow = d
			}
		case "gc_schedule":
			c.GCSchedule = value
		case "verify_schedule":
			c.VerifySchedule = value
		case "phash_max_distance":
			if v, err := strconv.Atoi(value); err == nil {
				c.PhashMaxDistance = v
			}
		case "probe_workers":
			if v, err := strconv.Atoi(value); err == nil && v > 0 {
				c.ProbeWorkers = v
			}
		case "job_concurrency":
			if v, err := strconv.Atoi(value); err == nil && v > 0 {
				c.JobConcurrency = v
			}
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
