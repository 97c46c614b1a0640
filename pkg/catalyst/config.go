package catalyst

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default timing parameters for task polling.
const (
	// DefaultTaskTimeout bounds one task future poll loop.
	DefaultTaskTimeout = 1200 * time.Second

	// DefaultLanTaskTimeout bounds a LAN automation session poll loop.
	DefaultLanTaskTimeout = 604800 * time.Second

	// DefaultPollInterval is the delay between task status polls.
	DefaultPollInterval = 2 * time.Second

	// DefaultLanPollInterval is the delay between LAN automation session
	// polls.
	DefaultLanPollInterval = 30 * time.Second

	// PageSize is the controller's maximum page size for paginated GETs.
	PageSize = 500
)

// Config holds the controller connection and timing parameters supplied by
// the harness.
type Config struct {
	// Host is the controller address.
	Host string `json:"host" validate:"required,hostname|ip"`

	// Port is the HTTPS port.
	Port int `json:"port" validate:"min=1,max=65535"`

	// Username authenticates the controller session.
	Username string `json:"username" validate:"required"`

	// Password authenticates the controller session.
	Password string `json:"-" validate:"required"`

	// Verify enables TLS certificate verification.
	Verify bool `json:"verify"`

	// Version is the controller version used for feature gating
	// (for example "2.3.7.6").
	Version string `json:"version" validate:"required"`

	// TaskTimeout bounds each task future poll loop.
	TaskTimeout time.Duration `json:"task_timeout"`

	// LanTaskTimeout bounds LAN automation session poll loops.
	LanTaskTimeout time.Duration `json:"lan_task_timeout"`

	// PollInterval is the delay between task status polls.
	PollInterval time.Duration `json:"poll_interval"`

	// LanPollInterval is the delay between LAN automation session polls.
	LanPollInterval time.Duration `json:"lan_poll_interval"`
}

var configValidator = validator.New()

// Normalize fills defaults and validates the configuration.
func (c *Config) Normalize() error {
	if c.Port == 0 {
		c.Port = 443
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = DefaultTaskTimeout
	}
	if c.LanTaskTimeout <= 0 {
		c.LanTaskTimeout = DefaultLanTaskTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.LanPollInterval <= 0 {
		c.LanPollInterval = DefaultLanPollInterval
	}
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid controller config: %w", err)
	}
	return nil
}

// BaseURL returns the controller API root.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("https://%s:%d", c.Host, c.Port)
}
