package firebase

import (
	"github.com/looplj/firelive/internal/pkg/xcache"
	"github.com/looplj/firelive/storage/afs"
	"github.com/looplj/firelive/storage/gcs"
)

// Config is the firebase section of the configuration file.
type Config struct {
	ProjectID       string `conf:"project_id" yaml:"project_id" json:"project_id"`
	CredentialsFile string `conf:"credentials_file" yaml:"credentials_file" json:"credentials_file"`
	DatabaseURL     string `conf:"database_url" yaml:"database_url" json:"database_url"`
	StorageBucket   string `conf:"storage_bucket" yaml:"storage_bucket" json:"storage_bucket"`

	Services Services `conf:"services" yaml:"services" json:"services"`
}

// Services switches individual handles off. The realtime database also
// needs a DatabaseURL.
type Services struct {
	Auth         bool `conf:"auth" yaml:"auth" json:"auth"`
	Firestore    bool `conf:"firestore" yaml:"firestore" json:"firestore"`
	Database     bool `conf:"database" yaml:"database" json:"database"`
	Storage      bool `conf:"storage" yaml:"storage" json:"storage"`
	RemoteConfig bool `conf:"remote_config" yaml:"remote_config" json:"remote_config"`
}

func DefaultConfig() Config {
	return Config{
		Services: Services{
			Auth:         true,
			Firestore:    true,
			Database:     true,
			Storage:      true,
			RemoteConfig: true,
		},
	}
}

const (
	StorageModeGCS = "gcs"
	StorageModeAFS = "afs"
)

// StorageConfig is the storage section of the configuration file.
type StorageConfig struct {
	// Mode is gcs (the firebase bucket) or afs (an afero filesystem).
	Mode string `conf:"mode" yaml:"mode" json:"mode"`

	GCS gcs.Config `conf:"gcs" yaml:"gcs" json:"gcs"`
	AFS afs.Config `conf:"afs" yaml:"afs" json:"afs"`

	// Cache holds signed download URLs.
	Cache xcache.Config `conf:"cache" yaml:"cache" json:"cache"`
}

func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Mode: StorageModeGCS,
		AFS:  afs.Config{Mode: afs.ModeMemory},
		Cache: xcache.Config{
			Mode: xcache.ModeMemory,
		},
	}
}
