package server_test

import (
	"testing"

	"experts-geo/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_IsValidDataSource(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   bool
	}{
		{"PostGIS", server.DataSourcePostGIS, true},
		{"Redis", server.DataSourceRedis, true},
		{"Invalid", "mongo", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := server.Config{DataSource: tt.source}
			assert.Equal(t, tt.want, c.IsValidDataSource())
		})
	}
}
