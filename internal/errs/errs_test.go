package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cyphera/sett-deployer/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     errs.Kind
		message  string
	}{
		{
			name:     "config",
			err:      errs.Config("registry.keeper", "resolved to the zero address"),
			sentinel: errs.ErrConfig,
			kind:     errs.KindConfig,
			message:  "config registry.keeper: resolved to the zero address",
		},
		{
			name:     "mismatch",
			err:      errs.Mismatch("controller.vaults", "0x1", "0x0"),
			sentinel: errs.ErrChainStateMismatch,
			kind:     errs.KindChainStateMismatch,
			message:  "controller.vaults: want 0x1, got 0x0",
		},
		{
			name:     "event shape",
			err:      errs.EventShape("Harvest", "expected exactly 1 event, got %d", 2),
			sentinel: errs.ErrEventShape,
			kind:     errs.KindEventShape,
			message:  "event Harvest: expected exactly 1 event, got 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("pipeline: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.kind, errs.KindOf(wrapped))
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestErrorsAs(t *testing.T) {
	err := fmt.Errorf("wire: %w", errs.Mismatch("controller.strategies", "a", "b"))

	var mismatch *errs.ChainStateMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "controller.strategies", mismatch.Check)
	assert.NotErrorIs(t, err, errs.ErrConfig)
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, errs.Kind(""), errs.KindOf(errors.New("boom")))
}
