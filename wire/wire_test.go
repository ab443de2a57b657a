package wire_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/mctl/wire"
)

func TestBuilder_Fields(t *testing.T) {
	b := wire.NewBuilder().
		Str("name", `has "quotes"`).
		Int("size", 42).
		Bool("dir", false)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b.Bytes(), &got))
	assert.Equal(t, `has "quotes"`, got["name"])
	assert.Equal(t, float64(42), got["size"])
	assert.Equal(t, false, got["dir"])
}

func TestBuilder_Raw(t *testing.T) {
	b := wire.NewBuilder().Raw("files", wire.StringArray([]string{"a.gcode", "b.gcode"}))

	var got struct {
		Files []string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(b.Bytes(), &got))
	assert.Equal(t, []string{"a.gcode", "b.gcode"}, got.Files)
}

func TestStringArray_Empty(t *testing.T) {
	assert.Equal(t, []byte("[]"), wire.StringArray(nil))
}

func TestBuilder_EmptyObject(t *testing.T) {
	assert.Equal(t, "{}", string(wire.NewBuilder().Bytes()))
}
