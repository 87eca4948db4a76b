package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKPromotesNilResult(t *testing.T) {
	resp := OK("r1", nil)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, map[string]any{}, resp.Result)
	assert.Empty(t, resp.Message)
}

func TestFailAndErrRoundTrip(t *testing.T) {
	resp := Fail("r1", Errorf(KindHostState, "track index 9 out of range"))
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, KindHostState, resp.Kind)

	err := resp.Err()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindHostState))
	assert.Contains(t, err.Error(), "out of range")
}

func TestFailCoercesForeignError(t *testing.T) {
	resp := Fail("r1", errors.New("boom"))
	assert.Equal(t, KindInternal, resp.Kind)
	assert.Equal(t, "boom", resp.Message)
}

func TestErrDefaultsMissingKind(t *testing.T) {
	resp := Response{Status: StatusError, Message: "legacy host"}
	err := resp.Err()
	assert.True(t, IsKind(err, KindInternal))
}

func TestInvalidParamNamesField(t *testing.T) {
	err := InvalidParam("tempo", "expected a number, got %T", "fast")
	assert.True(t, IsKind(err, KindInvalidParams))
	assert.Contains(t, err.Error(), `param "tempo"`)

	// The offending field survives the envelope round trip.
	resp := Fail("r1", err)
	assert.Equal(t, "tempo", resp.Field)
	back := Coerce(resp.Err())
	assert.Equal(t, "tempo", back.Field)
}
