package fault_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/floodwatch/floodwatch/internal/fault"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want fault.Kind
	}{
		{"nil", nil, fault.KindNone},
		{"denied", fmt.Errorf("locate: %w", fault.ErrDenied), fault.KindDenied},
		{"stale", fmt.Errorf("reading: %w", fault.ErrStale), fault.KindStale},
		{"malformed", fault.Malformed("decode", errors.New("bad json")), fault.KindMalformed},
		{"unavailable", fault.Unavailable("fetch", nil), fault.KindUnavailable},
		{"deadline", context.DeadlineExceeded, fault.KindUnavailable},
		{"unknown", errors.New("boom"), fault.KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fault.KindOf(tt.err))
		})
	}
}

func TestWrappersKeepCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fault.Unavailable("reverse geocode", cause)

	assert.ErrorIs(t, err, fault.ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "reverse geocode")
}
