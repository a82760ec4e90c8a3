package xcache

import "time"

const (
	ModeMemory = "memory"
	ModeNone   = ""
)

type Config struct {
	Mode string `conf:"mode" yaml:"mode" json:"mode"`

	// Expiration is the default entry lifetime.
	Expiration time.Duration `conf:"expiration" yaml:"expiration" json:"expiration"`

	// CleanupInterval controls how often expired entries are purged.
	CleanupInterval time.Duration `conf:"cleanup_interval" yaml:"cleanup_interval" json:"cleanup_interval"`
}
