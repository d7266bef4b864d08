package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/openpass-dev/openpass/internal/flagx"
	"github.com/openpass-dev/openpass/internal/token"
)

// Duration wraps time.Duration for JSON unmarshalling, accepting both
// string values such as "15m" and integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration: %s", string(b))
	}
	return nil
}

// jsonLimitRule mirrors LimitRule for JSON files.
type jsonLimitRule struct {
	Limit  int      `json:"limit"`
	Window Duration `json:"window"`
}

// JsonConfig is the intermediate DTO used only for reading JSON config
// files. After unmarshalling, set fields are copied into the runtime
// Config.
type JsonConfig struct {
	DatabaseDSN       string                   `json:"database_dsn"`
	MasterSecretHex   string                   `json:"master_secret"`
	EmailIndexSaltHex string                   `json:"email_index_salt"`
	TokenTTLs         map[string]Duration      `json:"token_ttls"`
	RateLimits        map[string]jsonLimitRule `json:"rate_limits"`
	S3RootUser        string                   `json:"s3_root_user"`
	S3RootPassword    string                   `json:"s3_root_password"`
	S3Bucket          string                   `json:"s3_bucket"`
	S3Region          string                   `json:"s3_region"`
	S3BaseEndpoint    string                   `json:"s3_base_endpoint"`
	DatabaseTimeout   Duration                 `json:"database_timeout"`
	StorageTimeout    Duration                 `json:"storage_timeout"`
	LogLevel          string                   `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. When no file is given, the
// Config is left untouched. Unknown purpose or operation names in the
// TTL/limit tables are rejected rather than silently dropped.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return nil
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.MasterSecretHex != "" {
		config.MasterSecretHex = c.MasterSecretHex
	}
	if c.EmailIndexSaltHex != "" {
		config.EmailIndexSaltHex = c.EmailIndexSaltHex
	}
	for name, ttl := range c.TokenTTLs {
		p, err := token.ParsePurpose(name)
		if err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		config.TokenTTLs[p] = ttl.Duration
	}
	for name, rule := range c.RateLimits {
		op := Operation(name)
		switch op {
		case OpEmailLogin, OpPhotoUpload, OpQrShare:
			config.RateLimits[op] = LimitRule{Limit: rule.Limit, Window: rule.Window.Duration}
		default:
			return fmt.Errorf("config file: unknown operation %q", name)
		}
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.DatabaseTimeout.Duration > 0 {
		config.DatabaseTimeout = c.DatabaseTimeout.Duration
	}
	if c.StorageTimeout.Duration > 0 {
		config.StorageTimeout = c.StorageTimeout.Duration
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
	return nil
}
