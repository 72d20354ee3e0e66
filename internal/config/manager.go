package config

import (
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	defaultConfigPath = "config/app.yaml"
	envPrefix         = "CONECTSEAS_"
)

// Load reads the optional YAML file, then the environment, then normalizes
// and validates the result.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	cfgPath := resolveConfigPath()
	if st, err := os.Stat(cfgPath); err == nil && !st.IsDir() {
		if err := cleanenv.ReadConfig(cfgPath, cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	applyEnvAliases(cfg)
	normalizeConfig(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvAliases(cfg *AppConfig) {
	if cfg == nil {
		return
	}
	if v := getEnv("PORT"); v != "" {
		cfg.ListenAddr = listenAddrWithPort(cfg.ListenAddr, v)
	}
	if v := getEnv("PEPPER"); v != "" {
		cfg.Pepper = strings.TrimSpace(v)
	}
	if v := getEnv("ENV", "APP_ENV"); v != "" {
		cfg.AppEnv = strings.TrimSpace(v)
	}
}

func normalizeConfig(cfg *AppConfig) {
	if cfg == nil {
		return
	}
	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	cfg.DBPath = strings.TrimSpace(cfg.DBPath)
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.Pepper = strings.TrimSpace(cfg.Pepper)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Admin.Username = strings.TrimSpace(cfg.Admin.Username)
	cfg.Admin.Email = strings.TrimSpace(cfg.Admin.Email)
	cfg.Directory.TLSCAFile = strings.TrimSpace(cfg.Directory.TLSCAFile)
	cfg.Metrics.Namespace = strings.TrimSpace(cfg.Metrics.Namespace)
	cfg.Jobs.CleanupSchedule = strings.TrimSpace(cfg.Jobs.CleanupSchedule)
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Jobs.CleanupSchedule == "" {
		cfg.Jobs.CleanupSchedule = "@every 10m"
	}
	if !cfg.IsDev() {
		cfg.Directory.TLSInsecureSkipVerify = false
	}
}

func getEnv(keys ...string) string {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func resolveConfigPath() string {
	if v := getEnv("APP_CONFIG", envPrefix+"APP_CONFIG"); v != "" {
		return strings.TrimSpace(v)
	}
	return defaultConfigPath
}

func listenAddrWithPort(currentAddr, port string) string {
	port = strings.TrimSpace(port)
	for _, r := range port {
		if r < '0' || r > '9' {
			return currentAddr
		}
	}
	host := currentAddr
	if i := strings.LastIndex(currentAddr, ":"); i >= 0 {
		host = currentAddr[:i]
	}
	return host + ":" + port
}
