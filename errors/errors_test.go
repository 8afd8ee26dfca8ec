package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapFormatsContext(t *testing.T) {
	base := stderrors.New("socket closed")
	err := Wrap(base, "bridge", "Quote", "fetch EURUSD")

	require.Error(t, err)
	assert.Equal(t, "bridge.Quote: fetch EURUSD failed: socket closed", err.Error())
	assert.ErrorIs(t, err, base)

	assert.NoError(t, Wrap(nil, "bridge", "Quote", "fetch"))
	assert.NoError(t, WrapTransient(nil, "bridge", "Quote", "fetch"))
	assert.NoError(t, WrapInvalid(nil, "bridge", "Quote", "fetch"))
	assert.NoError(t, WrapFatal(nil, "bridge", "Quote", "fetch"))
}

func TestClassifiedWrappersSetClass(t *testing.T) {
	base := stderrors.New("some failure")

	tests := []struct {
		name      string
		err       error
		wantClass ErrorClass
	}{
		{name: "transient", err: WrapTransient(base, "c", "M", "a"), wantClass: ErrorTransient},
		{name: "invalid", err: WrapInvalid(base, "c", "M", "a"), wantClass: ErrorInvalid},
		{name: "fatal", err: WrapFatal(base, "c", "M", "a"), wantClass: ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ce *ClassifiedError
			require.ErrorAs(t, tt.err, &ce)
			assert.Equal(t, tt.wantClass, ce.Class)
			assert.Equal(t, "c", ce.Component)
			assert.Equal(t, "M", ce.Operation)
			assert.ErrorIs(t, tt.err, base)
			assert.Equal(t, tt.wantClass, Classify(tt.err))
		})
	}
}

func TestClassificationOfSentinels(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
		wantInvalid   bool
		wantFatal     bool
	}{
		{name: "not connected", err: ErrNotConnected, wantTransient: true},
		{name: "connection lost", err: ErrConnectionLost, wantTransient: true},
		{name: "request timeout", err: ErrConnectionTimeout, wantTransient: true},
		{name: "storage unavailable", err: ErrStorageUnavailable, wantTransient: true},
		{name: "node type not found", err: ErrNodeTypeNotFound, wantInvalid: true},
		{name: "duplicate node type", err: ErrDuplicateNodeType, wantInvalid: true},
		{name: "port out of range", err: ErrPortOutOfRange, wantInvalid: true},
		{name: "input occupied", err: ErrInputOccupied, wantInvalid: true},
		{name: "invalid config", err: ErrInvalidConfig, wantFatal: true},
		{name: "missing config", err: ErrMissingConfig, wantFatal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTransient, IsTransient(tt.err))
			assert.Equal(t, tt.wantInvalid, IsInvalid(tt.err))
			assert.Equal(t, tt.wantFatal, IsFatal(tt.err))
		})
	}
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	// fmt.Errorf wrapping keeps the sentinel reachable through Is.
	err := fmt.Errorf("during startup: %w", ErrConnectionLost)
	assert.True(t, IsTransient(err))

	// The classified wrapper wins over sentinel-based inference.
	err = WrapInvalid(ErrConnectionLost, "c", "M", "a")
	assert.False(t, IsTransient(err))
	assert.True(t, IsInvalid(err))
}

func TestTransientMessagePatterns(t *testing.T) {
	// Errors relayed as strings from the bridge process classify by message.
	assert.True(t, IsTransient(stderrors.New("request timeout exceeded")))
	assert.True(t, IsTransient(stderrors.New("broker requote")))
	assert.True(t, IsTransient(stderrors.New("server busy")))
	assert.False(t, IsTransient(stderrors.New("division by zero")))
}

func TestClassifyDefaults(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(nil))
	assert.Equal(t, ErrorTransient, Classify(stderrors.New("mystery")),
		"unknown errors default to transient so retry gets a chance")
}

func TestNilChecks(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsFatal(nil))
}

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}
