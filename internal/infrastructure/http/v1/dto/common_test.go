package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	var body struct {
		A Date `json:"a"`
		B Date `json:"b"`
		C Date `json:"c"`
		D Date `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a":"2025-01-31","b":"2025-02-01T10:00:00+07:00","c":"","d":null}`), &body)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), body.A.Time)
	assert.Equal(t, time.Date(2025, time.February, 1, 3, 0, 0, 0, time.UTC), body.B.Time)
	assert.True(t, body.C.IsZero())
	assert.True(t, body.D.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"a":"31/01/2025"}`), &body))
	assert.Error(t, json.Unmarshal([]byte(`{"a":20250131}`), &body))
}

func TestDate_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Date{Time: time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-10"`, string(b))

	b, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}
