// Package database handles database connections and schema inspection.
//
// It wraps GORM to configure PostGIS (postgres driver) connections from the
// application's configuration. The sqlite driver is accepted so tests can run
// against an in-memory database.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns let the geo store verify at startup that
// the feature tables carry the columns it reads and writes.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, "locations_works", []string{"geom", "properties"})
package database
