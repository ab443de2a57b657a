package mlog_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/mctl/channel"
	"github.com/joeycumines/mctl/code"
	"github.com/joeycumines/mctl/mlog"
)

func TestLogExecuted_Success(t *testing.T) {
	var buf bytes.Buffer
	l := mlog.New(&buf)

	c, err := code.Parse("G28", channel.USB)
	require.NoError(t, err)

	mlog.LogExecuted(l, c, code.NewResult().Add(code.Success, "ok"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "G28", line["code"])
	assert.Equal(t, "code executed", line["msg"])
}

func TestLogExecuted_Failure(t *testing.T) {
	var buf bytes.Buffer
	l := mlog.New(&buf)

	c, err := code.Parse("G28", channel.USB)
	require.NoError(t, err)

	mlog.LogExecuted(l, c, code.NewResult().Add(code.Error, "bad"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "code failed", line["msg"])
}
