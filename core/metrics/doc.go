// Package metrics exposes Prometheus collectors for the cache, the ETL pipeline,
// the geocoder and the HTTP API.
//
// Collectors live on a dedicated registry so tests can build independent
// instances. Methods accept a nil receiver, letting services run without metrics.
//
//	m := metrics.New()
//	app.Use(m.Middleware())
//	app.Get("/metrics", m.Handler())
package metrics
