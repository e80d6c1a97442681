package geostore

import (
	"context"
	"fmt"

	"experts-geo/core/errs"
	"experts-geo/core/kv"
	"experts-geo/core/utils"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store reads and writes location features in PostGIS and mirrors single
// writes into the key-value cache.
type Store struct {
	db     *gorm.DB
	kv     kv.Connector
	logger *zap.Logger
}

// New creates a Store. conn may be nil when write-through is not needed.
func New(db *gorm.DB, conn kv.Connector, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, kv: conn, logger: logger}
}

// row is the scan target for feature reads.
type row struct {
	ID         int64
	Name       string
	Geometry   string
	Properties datatypes.JSON
	SourceType string
}

// Features returns every feature of the source as a FeatureCollection.
// Rows with unreadable geometry are skipped with a warning.
func (s *Store) Features(ctx context.Context, src Source) (*geojson.FeatureCollection, error) {
	table, err := src.Table()
	if err != nil {
		return nil, err
	}

	sourceCol := fmt.Sprintf("'%s'", src)
	if table == ViewCombined {
		sourceCol = "source_type"
	}
	query := fmt.Sprintf(
		"SELECT id, name, ST_AsGeoJSON(geom) AS geometry, properties, %s AS source_type FROM %s ORDER BY id",
		sourceCol, table)

	var rows []row
	if err := s.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, errs.E(errs.KindStoreUnavailable, "geostore.features", err)
	}

	fc := geojson.NewFeatureCollection()
	for _, r := range rows {
		f, err := r.feature()
		if err != nil {
			s.logger.Warn("Skipping unreadable location row",
				zap.String("table", table), zap.Int64("id", r.ID), zap.Error(err))
			continue
		}
		fc.Append(f)
	}
	return fc, nil
}

func (r row) feature() (*geojson.Feature, error) {
	geom, err := geojson.UnmarshalGeometry([]byte(r.Geometry))
	if err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	f := geojson.NewFeature(geom.Geometry())
	f.ID = r.ID
	if len(r.Properties) > 0 {
		if err := json.Unmarshal(r.Properties, &f.Properties); err != nil {
			return nil, fmt.Errorf("properties: %w", err)
		}
	}
	if f.Properties == nil {
		f.Properties = geojson.Properties{}
	}
	if _, ok := f.Properties["name"]; !ok {
		f.Properties["name"] = r.Name
	}
	if r.SourceType != "" {
		f.Properties["source_type"] = r.SourceType
	}
	return f, nil
}

// encoded is a feature ready for insertion.
type encoded struct {
	name       string
	geometry   string
	properties string
}

func encodeFeature(f *geojson.Feature) (encoded, error) {
	if f == nil || f.Geometry == nil {
		return encoded{}, fmt.Errorf("feature has no geometry")
	}
	name := utils.ToString(f.Properties["name"])
	if name == "" {
		return encoded{}, fmt.Errorf("feature has no name")
	}
	geom, err := json.Marshal(geojson.NewGeometry(f.Geometry))
	if err != nil {
		return encoded{}, fmt.Errorf("geometry of %s: %w", name, err)
	}
	props := f.Properties
	if props == nil {
		props = geojson.Properties{}
	}
	body, err := json.Marshal(props)
	if err != nil {
		return encoded{}, fmt.Errorf("properties of %s: %w", name, err)
	}
	return encoded{name: name, geometry: string(geom), properties: string(body)}, nil
}

func upsertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (name, geom, properties) VALUES (?, ST_SetSRID(ST_GeomFromGeoJSON(?), 4326), ?::jsonb)
ON CONFLICT (name) DO UPDATE SET geom = EXCLUDED.geom, properties = EXCLUDED.properties`, table)
}

// Replace swaps the whole content of a location table for fc in one transaction.
func (s *Store) Replace(ctx context.Context, src Source, fc *geojson.FeatureCollection) (int, error) {
	if src != SourceWorks && src != SourceGrants {
		return 0, errs.E(errs.KindValidationFailed, "geostore.replace", fmt.Errorf("cannot replace %q", src))
	}
	table, _ := src.Table()

	rows := make([]encoded, 0, len(fc.Features))
	for i, f := range fc.Features {
		enc, err := encodeFeature(f)
		if err != nil {
			return 0, errs.E(errs.KindValidationFailed, "geostore.replace", fmt.Errorf("feature %d: %w", i, err))
		}
		rows = append(rows, enc)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return err
		}
		stmt := upsertSQL(table)
		for _, r := range rows {
			if err := tx.Exec(stmt, r.name, r.geometry, r.properties).Error; err != nil {
				return fmt.Errorf("insert %s: %w", r.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, errs.E(errs.KindStoreUnavailable, "geostore.replace", err)
	}

	s.logger.Info("Location table replaced", zap.String("table", table), zap.Int("rows", len(rows)))
	return len(rows), nil
}

// CacheKey returns the key-value key mirroring a single location row.
func CacheKey(src Source, name string) string {
	return fmt.Sprintf("geo:%s:%s", src, name)
}

// Upsert writes one feature to PostGIS and mirrors it into the cache.
func (s *Store) Upsert(ctx context.Context, src Source, f *geojson.Feature) error {
	if src != SourceWorks && src != SourceGrants {
		return errs.E(errs.KindValidationFailed, "geostore.upsert", fmt.Errorf("cannot upsert into %q", src))
	}
	table, _ := src.Table()
	enc, err := encodeFeature(f)
	if err != nil {
		return errs.E(errs.KindValidationFailed, "geostore.upsert", err)
	}

	data := map[string]string{
		"name":       enc.name,
		"geometry":   enc.geometry,
		"properties": enc.properties,
	}
	return s.WriteThroughCache(ctx, CacheKey(src, enc.name), data, upsertSQL(table), enc.name, enc.geometry, enc.properties)
}

// WriteThroughCache runs query inside a transaction and writes data to the
// cache hash at key before committing. A failure on either side rolls the
// transaction back; a cache write that succeeded before a failed commit is not undone.
func (s *Store) WriteThroughCache(ctx context.Context, key string, data map[string]string, query string, params ...any) error {
	if s.kv == nil {
		return errs.E(errs.KindStoreUnavailable, "geostore.write_through", fmt.Errorf("no cache configured"))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(query, params...).Error; err != nil {
			return fmt.Errorf("sql: %w", err)
		}

		store, err := s.kv.Connect(ctx)
		if err != nil {
			return fmt.Errorf("cache connect: %w", err)
		}
		defer store.Close()

		if err := store.HSet(ctx, key, data); err != nil {
			return fmt.Errorf("cache write %s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Write-through failed", zap.String("key", key), zap.Error(err))
		return errs.E(errs.KindStoreUnavailable, "geostore.write_through", err)
	}
	return nil
}
