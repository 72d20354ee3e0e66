package config

import "time"

// AppConfig is the process configuration. The directory connection itself is
// not here: administrators edit it at runtime and it lives in the settings store.
type AppConfig struct {
	ListenAddr string        `yaml:"listen_addr" env:"CONECTSEAS_LISTEN_ADDR" env-default:":3001"`
	DBPath     string        `yaml:"db_path" env:"CONECTSEAS_DB_PATH" env-default:"data/conectseas.db"`
	AppEnv     string        `yaml:"app_env" env:"CONECTSEAS_APP_ENV" env-default:"prod"`
	Pepper     string        `yaml:"pepper" env:"CONECTSEAS_PEPPER"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"CONECTSEAS_SESSION_TTL" env-default:"12h"`

	Log       LogConfig       `yaml:"log"`
	Directory DirectoryConfig `yaml:"directory"`
	Throttle  ThrottleConfig  `yaml:"throttle"`
	Admin     AdminConfig     `yaml:"admin"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Jobs      JobsConfig      `yaml:"jobs"`
}

func (c *AppConfig) IsDev() bool {
	return c != nil && c.AppEnv == "dev"
}

type LogConfig struct {
	Level  string `yaml:"level" env:"CONECTSEAS_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"CONECTSEAS_LOG_FORMAT" env-default:"text"`
}

// DirectoryConfig holds the bridge timeouts.
type DirectoryConfig struct {
	ConnectTimeout   time.Duration `yaml:"connect_timeout" env:"CONECTSEAS_LDAP_CONNECT_TIMEOUT" env-default:"10s"`
	OperationTimeout time.Duration `yaml:"operation_timeout" env:"CONECTSEAS_LDAP_OPERATION_TIMEOUT" env-default:"10s"`
	// TLSInsecureSkipVerify disables certificate checks for ldaps://. Only honored in dev.
	TLSInsecureSkipVerify bool   `yaml:"tls_insecure_skip_verify" env:"CONECTSEAS_LDAP_TLS_INSECURE"`
	TLSCAFile             string `yaml:"tls_ca_file" env:"CONECTSEAS_LDAP_TLS_CA_FILE"`
}

type ThrottleConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" env:"CONECTSEAS_THROTTLE_MAX_ATTEMPTS" env-default:"5"`
	Window          time.Duration `yaml:"window" env:"CONECTSEAS_THROTTLE_WINDOW" env-default:"15m"`
	LockoutDuration time.Duration `yaml:"lockout" env:"CONECTSEAS_THROTTLE_LOCKOUT" env-default:"15m"`
	MaxLockout      time.Duration `yaml:"max_lockout" env:"CONECTSEAS_THROTTLE_MAX_LOCKOUT" env-default:"24h"`
}

// AdminConfig seeds the local administrator on startup when Username is set.
type AdminConfig struct {
	Username string `yaml:"username" env:"CONECTSEAS_ADMIN_USERNAME"`
	Password string `yaml:"password" env:"CONECTSEAS_ADMIN_PASSWORD"`
	Name     string `yaml:"name" env:"CONECTSEAS_ADMIN_NAME" env-default:"Administrador"`
	Email    string `yaml:"email" env:"CONECTSEAS_ADMIN_EMAIL"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"CONECTSEAS_METRICS_ENABLED" env-default:"true"`
	Namespace string `yaml:"namespace" env:"CONECTSEAS_METRICS_NAMESPACE" env-default:"conectseas"`
}

type JobsConfig struct {
	Enabled         bool   `yaml:"enabled" env:"CONECTSEAS_JOBS_ENABLED" env-default:"true"`
	CleanupSchedule string `yaml:"cleanup_schedule" env:"CONECTSEAS_JOBS_CLEANUP_SCHEDULE" env-default:"@every 10m"`
}
