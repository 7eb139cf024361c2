package config

import "time"

// Config holds runtime settings for the LoanKeeper client.
//
// Fields:
//   - ServerURL: base URL of the hosted data API.
//   - APIKey: project API key sent with every request.
//   - DatabasePath: path to the local SQLite cache file.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - SyncInterval: period of the background sync loop while online.
//   - AutoSync: enables the periodic background sync loop.
type Config struct {
	ServerURL           string
	APIKey              string
	DatabasePath        string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	AutoSync            bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.DatabasePath = "loankeeper.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 5 * time.Minute
	c.AutoSync = true
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
