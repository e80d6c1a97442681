package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"experts-geo/core/errs"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("write batch: %w", errs.E(errs.KindStoreUnavailable, "cache.Write", cause))

	assert.True(t, errors.Is(err, errs.ErrStoreUnavailable))
	assert.False(t, errors.Is(err, errs.ErrNotFound))
	assert.True(t, errors.Is(err, cause), "cause stays reachable")
	assert.Equal(t, errs.KindStoreUnavailable, errs.KindOf(err))
	assert.Equal(t, errs.KindUnknown, errs.KindOf(cause))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind errs.Kind
		want string
	}{
		{errs.KindNotFound, "not_found"},
		{errs.KindStoreUnavailable, "store_unavailable"},
		{errs.KindValidationFailed, "validation_failed"},
		{errs.KindPartialFailure, "partial_failure"},
		{errs.KindUnknown, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}
