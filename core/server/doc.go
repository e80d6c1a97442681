// Package server holds the HTTP server configuration and constants.
//
// While the serve command handles the server startup, this package defines the
// configuration structures and valid values for server settings.
//
// # Configuration
//
// The Config struct defines the HTTP port, API key, the CORS origins allowed to
// call the map API, and the data source the map endpoints read from
// (PostGIS or the Redis feature cache).
//
// # Usage
//
// This package is primarily used by the core/config package to embed server settings
// and by the geo feature to pick its read path.
package server
