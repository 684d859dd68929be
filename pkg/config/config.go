package config

import (
	"fmt"
	"time"
)

// YearRange is the inclusive range of years to enumerate listing pages for
type YearRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// AppConfig holds the global application configuration
type AppConfig struct {
	// BaseURLTemplate is the listing page URL with a single %d verb for the year,
	// e.g. "https://ncrb.gov.in/adsi-table-content.html?year=%d&category="
	BaseURLTemplate string    `yaml:"base_url_template"`
	Years           YearRange `yaml:"years"`

	OutputDir string `yaml:"output_dir"` // Root of the year/category/filename tree
	StateDir  string `yaml:"state_dir"`  // Manifest database location

	NumWorkers         int           `yaml:"num_workers"` // Max in-flight document transfers
	RequestTimeout     time.Duration `yaml:"request_timeout,omitempty"`
	MaxRetries         int           `yaml:"max_retries,omitempty"`
	InitialRetryDelay  time.Duration `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay      time.Duration `yaml:"max_retry_delay,omitempty"`
	DelayPerHost       time.Duration `yaml:"delay_per_host,omitempty"` // Politeness delay between requests to a host
	UserAgent          string        `yaml:"user_agent,omitempty"`
	CheckRobots        bool          `yaml:"check_robots,omitempty"` // Consult robots.txt for the base host before running
	HeadingSelector    string        `yaml:"heading_selector,omitempty"`
	DocumentExtensions []string      `yaml:"document_extensions,omitempty"` // Link targets to treat as documents

	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"`
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"`
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"` // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`
}

// ListingURL returns the listing page URL for one year
func (c *AppConfig) ListingURL(year int) string {
	return fmt.Sprintf(c.BaseURLTemplate, year)
}
