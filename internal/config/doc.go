// Package config handles configuration loading for sportzone.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file (chosen by the .toml
// extension) on top of Default(). Missing sections keep their defaults.
//
// # Configuration File
//
// Locations checked by FindPath (in order):
//
//  1. Path from SPORTZONE_CONFIG environment variable
//  2. ./sportzone.yaml or ./sportzone.toml
//  3. <user config dir>/sportzone/config.yaml or config.toml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	ai:
//	  api_key: "${GEMINI_API_KEY}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	messenger:
//	  reply_delay: "1.5s"
//	  edit_window: "60s"
//
// # Configuration Sections
//
//	store:
//	  driver: "sqlite"        # memory, sqlite, sqlite3, pebble, dynamodb
//	  path: "./sportzone.db"
//	  dynamodb:
//	    table: "sportzone"
//	    region: "eu-central-1"
//	    endpoint: ""          # set for DynamoDB Local
//
//	auth:
//	  jwt_secret: "${SPORTZONE_JWT_SECRET}"
//	  session_ttl: "720h"     # 0 keeps sessions until logout
//
//	messenger:
//	  reply_delay: "1.5s"
//	  edit_window: "60s"
//	  auto_reply_text: ""     # empty uses the built-in reply
//
//	ai:
//	  api_key: "${GEMINI_API_KEY}"
//	  model: "gemini-2.5-flash"
//	  timeout: "30s"
//	  requests_per_minute: 15
//	  cache_ttl: "10m"
//
//	logging:
//	  level: "info"           # debug, info, warn, error
//	  format: "text"          # text, json
package config
