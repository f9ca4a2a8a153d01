package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBase = stderrors.New("base failure")

func TestConfigError_Message(t *testing.T) {
	err := NewConfigError("tolerance must be positive").AddComponent("similarity").AddField("age").AddIndex(2)
	assert.Equal(t, "similarity -> field 'age' -> index 2: tolerance must be positive", err.Error())

	assert.Equal(t, "bare", NewConfigError("bare").Error())
}

func TestConfigError_Wrapping(t *testing.T) {
	err := NewConfigErrorf("metric %q: %w", "levenshtein", errBase)
	assert.ErrorIs(t, err, errBase)
	assert.Contains(t, err.Error(), "levenshtein")

	wrapped := fmt.Errorf("building linker: %w", err)
	assert.True(t, IsConfigError(wrapped))
	assert.Same(t, err, WrapConfigError(wrapped))

	plain := WrapConfigError(errBase)
	assert.ErrorIs(t, plain, errBase)
	assert.Nil(t, WrapConfigError(nil))
	assert.False(t, IsConfigError(errBase))
}

func TestConfigError_ToHTTPError(t *testing.T) {
	err := NewConfigError("unknown rule").AddComponent("fusion").AddField("name")
	httpErr := err.ToHTTPError()
	require.NotNil(t, httpErr)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(httpErr))
	assert.Equal(t, "fusion", httpErr.Meta["component"])
}
