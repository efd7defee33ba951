// Package config provides configuration management for the course importer.
//
// It uses Viper for loading configuration from environment variables and an
// optional .env file. Defaults come from the `default` struct tags of each
// section.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, body limit, read timeout)
//   - Database: driver (mysql, sqlite) and connection details
//   - Storage: S3/MinIO credentials, bucket and archive prefix
//   - Log: Logging level and format
//   - Progress: progress store backend (memory, redis)
//   - Importer: default adapter, temp directory, progress update interval
//
// Environment variables map to nested keys by replacing dots with
// underscores, e.g. DATABASE_DRIVER sets database.driver.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Importer.DefaultAdapter)
package config
