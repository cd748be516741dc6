package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblem_MarshalJSON(t *testing.T) {
	p := ValidationError(map[string]string{"email": "email is a required field"})

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, "Validation Error", out["title"])
	assert.EqualValues(t, http.StatusBadRequest, out["status"])
	assert.Equal(t, "/problems/validation", out["type"])
	assert.Equal(t, map[string]any{"email": "email is a required field"}, out["errors"])
}

func TestProblem_LogIsPrivate(t *testing.T) {
	cause := errors.New("disk on fire")
	p := InternalError("Could not save chat", cause)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "disk on fire")
	assert.ErrorIs(t, p, cause)
	assert.Equal(t, "[500] Internal Server Error: Could not save chat", p.Error())
}
