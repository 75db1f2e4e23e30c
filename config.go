package taskstore

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "90s".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config carries store-wide defaults, attachable to the facade via
// WithConfig or loaded from a TOML file. The zero value means "all
// defaults".
type Config struct {
	// Namespace isolates this store's keys in the backend. "" => "tasks".
	Namespace string `toml:"namespace"`

	// DefaultTTL is attached to every written record. 0 => never expire.
	DefaultTTL Duration `toml:"default_ttl"`

	// PollInterval is how often the background sweep removes expired
	// records. 0 => 1m; negative disables the sweeper.
	PollInterval Duration `toml:"poll_interval"`

	// MaxUpdateRetries bounds CAS attempts inside Update. 0 => 8.
	MaxUpdateRetries int `toml:"max_update_retries"`

	// Shards is the lock-stripe count of the in-memory backend. 0 => 32.
	Shards int `toml:"shards"`
}

// LoadConfig reads a Config from a TOML file. Unknown keys are rejected so
// a typo in an ops file fails loudly instead of silently using a default.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("taskstore: load config %q: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("taskstore: load config %q: unknown key %q", path, undec[0].String())
	}
	return &cfg, nil
}
