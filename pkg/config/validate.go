package config

import (
	"fmt"
	"strings"
	"time"

	"records-scraper/pkg/utils"
)

// Defaults mirror the public-records site this tool was built against:
// reports exist from 1950 onward and requests are slow, hence the generous
// per-request timeout.
const (
	defaultYearFrom       = 1950
	defaultYearTo         = 2022
	defaultRequestTimeout = 60 * time.Second
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// BaseURLTemplate must carry exactly one year placeholder
	if c.BaseURLTemplate == "" {
		return warnings, fmt.Errorf("%w: base_url_template is required", utils.ErrConfigValidation)
	}
	if strings.Count(c.BaseURLTemplate, "%d") != 1 {
		return warnings, fmt.Errorf("%w: base_url_template must contain exactly one %%d year placeholder, got '%s'",
			utils.ErrConfigValidation, c.BaseURLTemplate)
	}

	// Years
	if c.Years.From == 0 && c.Years.To == 0 {
		warnings = append(warnings, fmt.Sprintf("years not specified, defaulting to %d-%d", defaultYearFrom, defaultYearTo))
		c.Years = YearRange{From: defaultYearFrom, To: defaultYearTo}
	}
	if c.Years.From > c.Years.To {
		return warnings, fmt.Errorf("%w: years.from (%d) > years.to (%d)",
			utils.ErrConfigValidation, c.Years.From, c.Years.To)
	}

	// OutputDir
	if c.OutputDir == "" {
		warnings = append(warnings, "output_dir is empty, defaulting to './records'")
		c.OutputDir = "./records"
	}

	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './scraper_state'")
		c.StateDir = "./scraper_state"
	}

	// NumWorkers
	if c.NumWorkers <= 0 {
		warnings = append(warnings, "num_workers should be > 0, defaulting to 4")
		c.NumWorkers = 4
	}

	// RequestTimeout
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}

	// MaxRetries
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = 3
	}

	// Retry delays (only if retries enabled)
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	// UserAgent
	if c.UserAgent == "" {
		c.UserAgent = "records-scraper/1.0 (+public records archival)"
	}

	// Extraction settings
	if c.HeadingSelector == "" {
		c.HeadingSelector = "h2"
	}
	if len(c.DocumentExtensions) == 0 {
		c.DocumentExtensions = []string{".pdf"}
	}
	for i, ext := range c.DocumentExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.DocumentExtensions[i] = ext
	}

	// HTTP client settings
	h := &c.HTTPClientSettings
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 4
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}

	return warnings, nil
}
