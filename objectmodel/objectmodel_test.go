package objectmodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeycumines/mctl/objectmodel"
)

func TestStore_SetGetSnapshot(t *testing.T) {
	s := objectmodel.New()
	s.Set("state", map[string]any{"temp": 60})

	v, ok := s.Get("state")
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"temp": 60}, v)

	_, ok = s.Get("missing")
	assert.False(t, ok)

	snap := s.Snapshot()
	assert.Equal(t, map[string]any{"temp": 60}, snap["state"])
}
