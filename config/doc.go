// Package config loads service configuration with viper.
//
// Sources are layered in this order, later ones winning:
// YAML config file, then variables from a .env file, then the process
// environment. Environment variables use the service prefix and
// underscores for nesting, so SCRIBE_DATABASE_DSN sets database.dsn.
package config
