package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"roomcal/internal/model"
)

// RoomConfig describes one bookable room.
type RoomConfig struct {
	ID   int    `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// StoreConfig selects and configures the event/user store.
type StoreConfig struct {
	// Driver is "mongo" (default) or "memory".
	Driver string `yaml:"driver" json:"driver"`

	// URI is the MongoDB connection string. MONGO_URI overrides it.
	URI string `yaml:"uri" json:"uri"`

	// Database is the MongoDB database name.
	Database string `yaml:"database" json:"database"`

	// ConnectTimeoutSec bounds the initial connect + ping.
	ConnectTimeoutSec int `yaml:"connect_timeout_sec" json:"connect_timeout_sec"`

	// OpTimeoutSec bounds every individual store operation.
	OpTimeoutSec int `yaml:"op_timeout_sec" json:"op_timeout_sec"`
}

// GoogleConfig configures the Google userinfo lookup used at sign-in.
type GoogleConfig struct {
	// Endpoint overrides the Google API base URL (tests, proxies).
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// Config is the top-level server configuration.
type Config struct {
	// Listen is the HTTP listen address for the REST API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used to decide "today" and to
	// interpret imported ICS timestamps.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday starts a week view. Supported values:
	//   - "sunday" (default)
	//   - "monday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// DefaultColor is applied to events created without a color.
	DefaultColor string `yaml:"default_color" json:"default_color"`

	// Rooms is the fixed room enumeration.
	Rooms []RoomConfig `yaml:"rooms" json:"rooms"`

	// AllowedOrigins is the CORS allow-list for browser clients.
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`

	// AllowUnfilteredList makes GET /api/events without roomId return
	// every room's events, as early room-unaware deployments did.
	AllowUnfilteredList bool `yaml:"allow_unfiltered_list" json:"allow_unfiltered_list"`

	// StoreCheck is a cron-style schedule for the store connectivity check.
	StoreCheck string `yaml:"store_check" json:"store_check"`

	// ICSCacheDir holds ETag/Last-Modified metadata for ICS imports.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir"`

	Store  StoreConfig  `yaml:"store" json:"store"`
	Google GoogleConfig `yaml:"google" json:"google"`
}

const (
	defaultListen     = ":3000"
	defaultTimezone   = "UTC"
	defaultStoreCheck = "@every 1m"
	defaultDatabase   = "roomcal"
	defaultMongoURI   = "mongodb://localhost:27017"
)

func defaultRooms() []RoomConfig {
	return []RoomConfig{
		{ID: 1, Name: "Room A"},
		{ID: 2, Name: "Room B"},
		{ID: 3, Name: "Room C"},
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "sunday", "monday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		// Unknown value; fall back to sunday to avoid surprising layouts.
		c.WeekStart = "sunday"
	}
	if c.DefaultColor == "" || !model.ValidColor(c.DefaultColor) {
		c.DefaultColor = model.DefaultColor
	}
	if len(c.Rooms) == 0 {
		c.Rooms = defaultRooms()
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.StoreCheck == "" {
		c.StoreCheck = defaultStoreCheck
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = "./cache/ics"
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = "mongo"
	}
	if c.Store.URI == "" {
		c.Store.URI = defaultMongoURI
	}
	if c.Store.Database == "" {
		c.Store.Database = defaultDatabase
	}
	if c.Store.ConnectTimeoutSec <= 0 {
		c.Store.ConnectTimeoutSec = 10
	}
	if c.Store.OpTimeoutSec <= 0 {
		c.Store.OpTimeoutSec = 10
	}
}

// Validate rejects configurations that cannot be served.
func (c *Config) Validate() error {
	seen := make(map[int]bool, len(c.Rooms))
	for i, r := range c.Rooms {
		if r.ID <= 0 {
			return fmt.Errorf("rooms[%d]: id must be positive, got %d", i, r.ID)
		}
		if seen[r.ID] {
			return fmt.Errorf("rooms[%d]: duplicate id %d", i, r.ID)
		}
		seen[r.ID] = true
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	switch c.Store.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("store driver %q: want mongo or memory", c.Store.Driver)
	}
	return nil
}

// ApplyEnv overrides file values with environment variables:
// MONGO_URI, ROOMCAL_LISTEN, ROOMCAL_STORE.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Store.URI = v
	}
	if v := os.Getenv("ROOMCAL_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("ROOMCAL_STORE"); v != "" {
		c.Store.Driver = v
	}
	c.Normalize()
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeekStartDay maps WeekStart to a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// ModelRooms converts the room list for the domain packages.
func (c *Config) ModelRooms() []model.Room {
	out := make([]model.Room, 0, len(c.Rooms))
	for _, r := range c.Rooms {
		out = append(out, model.Room{ID: r.ID, Name: r.Name})
	}
	return out
}

// Load reads the YAML file at path. On first run, when the file does not
// exist yet, the defaults are written there and returned; a failure to
// write them is returned alongside the usable defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg := DefaultConfig()
		return cfg, Save(path, cfg)
	case err != nil:
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save normalizes cfg and writes it to path as YAML, readable only by the
// owner.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return WriteFileAtomic(path, append([]byte(yamlHeader), data...))
}

const yamlHeader = "# roomcal server configuration\n"

// WriteFileAtomic replaces path with data via a temp file in the same
// directory. The result has mode 0600 and its directory 0700. Config and
// the client session both go through here.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermMode); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".roomcal-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o600); err != nil {
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
