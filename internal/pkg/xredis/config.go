package xredis

// Config locates the redis instance used for cross-process push fan-out.
// URL (redis:// or rediss://) takes precedence over Addr.
type Config struct {
	Addr     string `conf:"addr" yaml:"addr" json:"addr"`
	URL      string `conf:"url" yaml:"url" json:"url"`
	Username string `conf:"username" yaml:"username" json:"username"`
	Password string `conf:"password" yaml:"password" json:"password"`
	DB       *int   `conf:"db" yaml:"db" json:"db"`
	TLS      bool   `conf:"tls" yaml:"tls" json:"tls"`

	// ChannelPrefix namespaces pub/sub channels, e.g. "firelive:".
	ChannelPrefix string `conf:"channel_prefix" yaml:"channel_prefix" json:"channel_prefix"`
}

// Channel returns name under the configured prefix.
func (c Config) Channel(name string) string {
	return c.ChannelPrefix + name
}
