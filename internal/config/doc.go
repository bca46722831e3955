// Package config handles configuration loading for the deflink server.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Keys missing from the file keep the values from Default, so a
// file only needs to list what differs.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from DEFLINK_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/deflink/deflink.yaml
//  3. ~/.config/deflink/deflink.yaml
//
// Files ending in .toml are parsed as TOML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  session_secret: "${DEFLINK_SESSION_SECRET}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//	  read_timeout: "15s"
//	  write_timeout: "30s"
//	  max_body_bytes: 1048576
//	  trust_proxy: false        # use X-Forwarded-For for the client IP
//	  cors_origins: ["http://localhost:5173"]
//
//	database:
//	  driver: "sqlite"          # sqlite, postgres, memory
//	  path: "/var/lib/deflink/deflink.db"
//	  dsn: "postgres://deflink@localhost/deflink"
//
//	auth:
//	  session_secret: "${DEFLINK_SESSION_SECRET}"
//	  session_ttl: "24h"
//	  cookie_secure: true
//	  default_password: "oem123"
//	  login_rate_per_minute: 10
//	  login_burst: 5
//
//	directory:
//	  provider_default_status: "draft"   # draft, freigeschaltet
//	  seed: true
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Usage
//
//	cfg, err := config.Load(config.Path())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
