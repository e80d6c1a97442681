package utils_test

import (
	"testing"

	"experts-geo/core/utils"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "sao paulo", utils.Fold("São Paulo"))
	assert.Equal(t, "zurich", utils.Fold("ZÜRICH"))
	assert.Equal(t, "plain", utils.Fold("plain"))
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "New York City", utils.CollapseSpace("  New \t York\n City "))
	assert.Equal(t, "", utils.CollapseSpace("   "))
}

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "Sao Paulo", utils.StripAccents("São Paulo"))
	assert.Equal(t, "Muller and Cote", utils.StripAccents("Müller and Côté"))
}
