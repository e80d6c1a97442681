// Package loader registers HTTP features on the fiber app.
//
// A feature reports whether it is enabled and mounts its routes in Load. The
// serve command registers the geo feature; the manager skips disabled features
// and stops at the first Load error.
package loader
