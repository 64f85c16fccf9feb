// Package config loads configuration structs from environment variables.
//
// Structs declare their sources with `env` tags (see caarlos0/env), optionally
// marking fields required or providing defaults. Load transparently reads a
// local .env file once per process, which keeps development setups simple
// without affecting deployed environments.
package config
