// Package wire renders handler responses as JSON using
// github.com/joeycumines/go-utilpkg/jsonenc, the allocation-light string
// encoder the rest of the corpus uses for its own log/wire encoding. It
// backs the JSON bodies of M20 (file listing), M36 (file info), and M122
// (diagnostics).
package wire

import (
	"strconv"

	"github.com/joeycumines/go-utilpkg/jsonenc"
)

// Builder accumulates a JSON object body into an internal buffer.
// Zero value is not usable; use NewBuilder.
type Builder struct {
	buf    []byte
	fields int
}

func NewBuilder() *Builder {
	b := &Builder{}
	b.buf = append(b.buf, '{')
	return b
}

func (b *Builder) comma() {
	if b.fields > 0 {
		b.buf = append(b.buf, ',')
	}
	b.fields++
}

// Str writes a "key":"value" member, JSON-escaping value via jsonenc.
func (b *Builder) Str(key, value string) *Builder {
	b.comma()
	b.buf = jsonenc.AppendString(b.buf, key)
	b.buf = append(b.buf, ':')
	b.buf = jsonenc.AppendString(b.buf, value)
	return b
}

// Int writes a "key":123 member.
func (b *Builder) Int(key string, value int64) *Builder {
	b.comma()
	b.buf = jsonenc.AppendString(b.buf, key)
	b.buf = append(b.buf, ':')
	b.buf = strconv.AppendInt(b.buf, value, 10)
	return b
}

// Bool writes a "key":true/false member.
func (b *Builder) Bool(key string, value bool) *Builder {
	b.comma()
	b.buf = jsonenc.AppendString(b.buf, key)
	b.buf = append(b.buf, ':')
	b.buf = strconv.AppendBool(b.buf, value)
	return b
}

// Raw writes a "key":<raw> member, where raw is already valid JSON (used
// for nested arrays/objects assembled by the caller).
func (b *Builder) Raw(key string, raw []byte) *Builder {
	b.comma()
	b.buf = jsonenc.AppendString(b.buf, key)
	b.buf = append(b.buf, ':')
	b.buf = append(b.buf, raw...)
	return b
}

// Bytes closes the object and returns the accumulated JSON.
func (b *Builder) Bytes() []byte {
	out := make([]byte, len(b.buf)+1)
	copy(out, b.buf)
	out[len(out)-1] = '}'
	return out
}

// StringArray renders a JSON array of strings, for use with Builder.Raw.
func StringArray(items []string) []byte {
	out := []byte{'['}
	for i, s := range items {
		if i > 0 {
			out = append(out, ',')
		}
		out = jsonenc.AppendString(out, s)
	}
	return append(out, ']')
}
