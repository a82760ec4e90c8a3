// Package conf loads the firelive configuration from config.yml and
// FIRELIVE_* environment variables.
package conf

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/looplj/firelive/auth/fbauth"
	"github.com/looplj/firelive/firebase"
	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/metrics"
	"github.com/looplj/firelive/internal/pkg/watcher"
	"github.com/looplj/firelive/realtime/fbdb"
	"github.com/looplj/firelive/remoteconfig/fbrc"
	"github.com/looplj/firelive/state"
)

type Config struct {
	Log          log.Config             `conf:"log" yaml:"log" json:"log"`
	Firebase     firebase.Config        `conf:"firebase" yaml:"firebase" json:"firebase"`
	State        state.Config           `conf:"state" yaml:"state" json:"state"`
	Realtime     fbdb.Config            `conf:"realtime" yaml:"realtime" json:"realtime"`
	Storage      firebase.StorageConfig `conf:"storage" yaml:"storage" json:"storage"`
	RemoteConfig fbrc.Config            `conf:"remote_config" yaml:"remote_config" json:"remote_config"`
	Auth         fbauth.Config          `conf:"auth" yaml:"auth" json:"auth"`
	Watcher      watcher.Config         `conf:"watcher" yaml:"watcher" json:"watcher"`
	Metrics      metrics.Config         `conf:"metrics" yaml:"metrics" json:"metrics"`
}

func DefaultConfig() Config {
	return Config{
		Log:      log.DefaultConfig(),
		Firebase: firebase.DefaultConfig(),
		State:    state.DefaultConfig(),
		Realtime: fbdb.DefaultConfig(),
		Storage:  firebase.DefaultStorageConfig(),
		Watcher:  watcher.Config{Mode: watcher.ModeMemory, Buffer: 16},
		Metrics:  metrics.DefaultConfig(),
	}
}

// DefaultPaths are searched in order for config.yml.
var DefaultPaths = []string{".", "./conf", "/etc/firelive"}

// Load reads the configuration from the default paths.
func Load() (Config, error) {
	return LoadFrom(DefaultPaths...)
}

// LoadFrom reads config.yml from the first of paths that has one. A missing
// file is not an error; defaults and environment variables still apply.
func LoadFrom(paths ...string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")

	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("FIRELIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, "", reflect.ValueOf(DefaultConfig()))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "conf"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every leaf of def so that environment variables can
// override keys absent from the file.
func setDefaults(v *viper.Viper, prefix string, def reflect.Value) {
	t := def.Type()

	for i := range t.NumField() {
		f := t.Field(i)

		name, _, _ := strings.Cut(f.Tag.Get("conf"), ",")
		if name == "" || name == "-" {
			continue
		}

		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		fv := def.Field(i)

		switch fv.Kind() {
		case reflect.Struct:
			setDefaults(v, key, fv)
		case reflect.Pointer, reflect.Map, reflect.Slice:
			if !fv.IsNil() {
				v.SetDefault(key, fv.Interface())
			}
		default:
			v.SetDefault(key, fv.Interface())
		}
	}
}

// Sections provides each configuration section to fx separately.
type Sections struct {
	fx.Out

	Log          log.Config
	Firebase     firebase.Config
	State        state.Config
	Realtime     fbdb.Config
	Storage      firebase.StorageConfig
	RemoteConfig fbrc.Config
	Auth         fbauth.Config
	Watcher      watcher.Config
	Metrics      metrics.Config
}

func (c Config) Sections() Sections {
	return Sections{
		Log:          c.Log,
		Firebase:     c.Firebase,
		State:        c.State,
		Realtime:     c.Realtime,
		Storage:      c.Storage,
		RemoteConfig: c.RemoteConfig,
		Auth:         c.Auth,
		Watcher:      c.Watcher,
		Metrics:      c.Metrics,
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() []string {
	var errs []string

	if c.Log.Name == "" {
		errs = append(errs, "log.name cannot be empty")
	}

	if _, err := state.ParseErrorPolicy(c.State.ErrorPolicy); err != nil {
		errs = append(errs, "state.error_policy: "+err.Error())
	}

	if _, err := state.ParseWarnMode(c.State.MissingHandleWarnings); err != nil {
		errs = append(errs, "state.missing_handle_warnings: "+err.Error())
	}

	if c.Realtime.PollInterval < 0 || c.Realtime.Debounce < 0 {
		errs = append(errs, "realtime.poll_interval and realtime.debounce cannot be negative")
	}

	switch c.Storage.Mode {
	case firebase.StorageModeGCS, "":
		if c.Firebase.Services.Storage && c.Firebase.StorageBucket == "" {
			errs = append(errs, "firebase.storage_bucket cannot be empty when storage.mode is gcs")
		}
	case firebase.StorageModeAFS:
	default:
		errs = append(errs, "storage.mode must be gcs or afs")
	}

	switch c.Watcher.Mode {
	case watcher.ModeMemory, "":
	case watcher.ModeRedis:
		if c.Watcher.Redis.Addr == "" && c.Watcher.Redis.URL == "" {
			errs = append(errs, "watcher.redis.addr or watcher.redis.url is required in redis mode")
		}
	default:
		errs = append(errs, "watcher.mode must be memory or redis")
	}

	return errs
}

// Module provides Config and its sections.
var Module = fx.Module("conf",
	fx.Provide(Load),
	fx.Provide(Config.Sections),
)
