package values

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewRunID(t *testing.T) {
	id1 := NewRunID()
	id2 := NewRunID()

	assert.False(t, id1.IsZero(), "new ID should not be zero")
	assert.False(t, id1.Equals(id2), "two new IDs should be different")
}

func Test_ParseRunID(t *testing.T) {
	valid := "123e4567-e89b-12d3-a456-426614174000"

	id, err := ParseRunID(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, id.String())

	for _, bad := range []string{"", "invalid", "123"} {
		t.Run(bad, func(t *testing.T) {
			_, err := ParseRunID(bad)
			assert.Error(t, err)
		})
	}
}

func Test_RunID_JSON(t *testing.T) {
	id := MustParseRunID("123e4567-e89b-12d3-a456-426614174000")

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"123e4567-e89b-12d3-a456-426614174000"`, string(data))

	var decoded RunID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, id.Equals(decoded))
}
