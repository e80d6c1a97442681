package geostore

import (
	"context"
	"fmt"

	"experts-geo/core/database"
	"experts-geo/core/errs"
)

const (
	// TableWorks holds one row per location referenced by works.
	TableWorks = "locations_works"
	// TableGrants holds one row per location referenced by grants.
	TableGrants = "locations_grants"
	// ViewCombined unions both tables with a source_type discriminator.
	ViewCombined = "locations_combined"
)

// Source selects a location table.
type Source string

const (
	SourceWorks    Source = "works"
	SourceGrants   Source = "grants"
	SourceCombined Source = "combined"
)

// Table returns the relation that backs the source.
func (s Source) Table() (string, error) {
	switch s {
	case SourceWorks:
		return TableWorks, nil
	case SourceGrants:
		return TableGrants, nil
	case SourceCombined, "":
		return ViewCombined, nil
	default:
		return "", errs.E(errs.KindValidationFailed, "geostore.table", fmt.Errorf("unknown source %q", s))
	}
}

var expectedColumns = []string{"id", "name", "geom", "properties"}

func tableDDL(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	geom geometry(Geometry,4326) NOT NULL,
	properties JSONB NOT NULL DEFAULT '{}'::jsonb
)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_geom_idx ON %s USING GIST (geom)`, table, table),
	}
}

const combinedViewDDL = `CREATE OR REPLACE VIEW locations_combined AS
SELECT id, name, geom, properties, 'works' AS source_type FROM locations_works
UNION ALL
SELECT id, name, geom, properties, 'grants' AS source_type FROM locations_grants`

// Migrate creates the PostGIS extension, both location tables and the combined view.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{`CREATE EXTENSION IF NOT EXISTS postgis`}
	stmts = append(stmts, tableDDL(TableWorks)...)
	stmts = append(stmts, tableDDL(TableGrants)...)
	stmts = append(stmts, combinedViewDDL)

	db := s.db.WithContext(ctx)
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return errs.E(errs.KindStoreUnavailable, "geostore.migrate", err)
		}
	}
	s.logger.Info("Geo schema migrated")
	return nil
}

// VerifySchema checks that both location tables carry the expected columns.
func (s *Store) VerifySchema(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, table := range []string{TableWorks, TableGrants} {
		missing, err := database.MissingColumns(db, table, expectedColumns)
		if err != nil {
			return errs.E(errs.KindStoreUnavailable, "geostore.verify", err)
		}
		if len(missing) > 0 {
			return errs.E(errs.KindValidationFailed, "geostore.verify",
				fmt.Errorf("table %s is missing columns %v", table, missing))
		}
	}
	return nil
}
