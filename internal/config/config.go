package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the daemon configuration loaded from environment variables.
// Secrets (VAPID keys, backup passphrase, S3 credentials) are optional; the
// features they power stay disabled until they are set.
type Config struct {
	Host   string `env:"PAWKEEP_HOST"`
	Port   int    `env:"PAWKEEP_PORT" envDefault:"8080"`
	DBPath string `env:"PAWKEEP_DB_PATH" envDefault:"./data/pawkeep.db"`

	LogLevel  string `env:"PAWKEEP_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"PAWKEEP_LOG_FORMAT" envDefault:"text"`

	// Reminder notifier
	ReminderSlice time.Duration `env:"PAWKEEP_REMINDER_SLICE" envDefault:"1h"`

	// Web push (VAPID)
	VAPIDPublicKey  string `env:"PAWKEEP_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"PAWKEEP_VAPID_PRIVATE_KEY"`
	PushContact     string `env:"PAWKEEP_PUSH_CONTACT" envDefault:"mailto:pawkeep@localhost"`

	// Encrypted backups to S3-compatible storage
	BackupSchedule      string `env:"PAWKEEP_BACKUP_SCHEDULE" envDefault:"0 3 * * *"` // cron expression
	BackupPassphrase    string `env:"PAWKEEP_BACKUP_PASSPHRASE"`
	BackupSalt          string `env:"PAWKEEP_BACKUP_SALT"` // hex-encoded, 16 bytes
	BackupRetentionDays int    `env:"PAWKEEP_BACKUP_RETENTION_DAYS" envDefault:"30"`
	S3Endpoint          string `env:"PAWKEEP_S3_ENDPOINT"`
	S3Region            string `env:"PAWKEEP_S3_REGION" envDefault:"auto"`
	S3Bucket            string `env:"PAWKEEP_S3_BUCKET"`
	S3AccessKey         string `env:"PAWKEEP_S3_ACCESS_KEY"`
	S3SecretKey         string `env:"PAWKEEP_S3_SECRET_KEY"`
}

// ServerAddr returns the listen address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PushEnabled returns true if a VAPID key pair is configured.
func (c Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// BackupEnabled returns true if backups are fully configured.
func (c Config) BackupEnabled() bool {
	return c.BackupPassphrase != "" && c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// BackupSaltBytes decodes the configured salt.
func (c Config) BackupSaltBytes() ([]byte, error) {
	if c.BackupSalt == "" {
		return nil, nil
	}
	salt, err := hex.DecodeString(c.BackupSalt)
	if err != nil {
		return nil, fmt.Errorf("decode backup salt: %w", err)
	}
	return salt, nil
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PAWKEEP_PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.ReminderSlice <= 0 {
		return nil, fmt.Errorf("PAWKEEP_REMINDER_SLICE must be positive, got %s", cfg.ReminderSlice)
	}
	if cfg.BackupRetentionDays < 1 {
		return nil, fmt.Errorf("PAWKEEP_BACKUP_RETENTION_DAYS must be at least 1, got %d", cfg.BackupRetentionDays)
	}

	// A half-configured feature is a deployment mistake, not a disabled one.
	if (cfg.VAPIDPublicKey == "") != (cfg.VAPIDPrivateKey == "") {
		return nil, fmt.Errorf("PAWKEEP_VAPID_PUBLIC_KEY and PAWKEEP_VAPID_PRIVATE_KEY must be set together")
	}
	if cfg.BackupPassphrase != "" && (cfg.S3Bucket == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "") {
		return nil, fmt.Errorf("PAWKEEP_BACKUP_PASSPHRASE is set but the S3 bucket or credentials are missing")
	}

	salt, err := cfg.BackupSaltBytes()
	if err != nil {
		return nil, err
	}
	// The backup file header carries the salt in a fixed-width field.
	if cfg.BackupSalt != "" && len(salt) != 16 {
		return nil, fmt.Errorf("PAWKEEP_BACKUP_SALT must decode to 16 bytes, got %d", len(salt))
	}

	return cfg, nil
}
