// Package logger builds the zap logger used across the service.
//
// Format "json" selects the production encoder and "console" the development
// one. WithRayID tags a logger with the request's RayID so API logs and cache
// warnings emitted while serving one request can be correlated.
//
//	log, _ := logger.New(&cfg.Log)
//	l := logger.WithRayID(log, c)
//	l.Warn("Skipping malformed cache record", zap.String("key", key))
package logger
