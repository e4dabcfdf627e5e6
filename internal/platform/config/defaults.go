package config

import "time"

// DefaultConfig returns the configuration used when no file overrides exist.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:    "0.0.0.0",
			Port:  8080,
			Token: "",
			Auth: AuthConfig{
				Enabled:  false,
				TokenTTL: Duration(time.Hour),
			},
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled:   false,
			StaticDir: "./web",
		},
		Runtime: RuntimeConfig{
			BaseURL:   "http://127.0.0.1:9100",
			Model:     "microsoft/Florence-2-base",
			Timeout:   Duration(120 * time.Second),
			Serialize: true,
		},
		Security: SecurityConfig{
			MaxFileSize:    5 * 1024 * 1024,
			MaxWidth:       8192,
			MaxHeight:      8192,
			MaxPixels:      64 * 1024 * 1024,
			AllowedFormats: []string{"jpeg", "jpg", "png", "gif", "bmp", "webp"},
			EnableDeepScan: true,
		},
	}
}
