package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_JSON(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(Duration(1500 * time.Microsecond))
	require.NoError(t, err)
	assert.Equal(t, `"1.5ms"`, string(data))

	var d Duration
	require.NoError(t, json.Unmarshal(data, &d))
	assert.Equal(t, 1500*time.Microsecond, time.Duration(d))
}

func TestDuration_UnmarshalInvalid(t *testing.T) {
	t.Parallel()
	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`12`), &d))
}

func TestErrorResponse_Error(t *testing.T) {
	t.Parallel()
	e := &ErrorResponse{Code: "HELM_001", Message: "malformed HELM notation"}
	assert.Equal(t, "[HELM_001] malformed HELM notation", e.Error())
	e.Detail = "unexpected '$'"
	assert.Equal(t, "[HELM_001] malformed HELM notation: unexpected '$'", e.Error())
}

func TestNewListResponse(t *testing.T) {
	t.Parallel()
	empty := NewListResponse[string](nil)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.Total)

	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"total":0}`, string(data))

	assert.Equal(t, 2, NewListResponse([]int{1, 2}).Total)
}
