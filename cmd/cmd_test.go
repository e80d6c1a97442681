package cmd

import (
	"testing"

	"experts-geo/core/config"
	"experts-geo/feature/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "etl", "cache", "index"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestSchedule(t *testing.T) {
	a := &app{logger: zap.NewNop()}

	c, err := schedule("@every 1h", a)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = schedule("not a schedule", a)
	assert.Error(t, err)
}

func TestETLFlags(t *testing.T) {
	for _, name := range []string{"from-cache", "merge", "batch-results", "write-batch", "migrate", "json"} {
		assert.NotNil(t, etlCmd.Flags().Lookup(name), name)
	}
}

func TestPublishOptions(t *testing.T) {
	a := &app{cfg: &config.Config{}, logger: zap.NewNop()}
	assert.Empty(t, a.publishOptions(etlOptions{}))
	assert.Len(t, a.publishOptions(etlOptions{Merge: true}), 1)

	a.cfg.Experts.MaxPages = 2
	opts := a.publishOptions(etlOptions{})
	require.Len(t, opts, 1)
	assert.IsType(t, geo.PublishOption(nil), opts[0])
}
