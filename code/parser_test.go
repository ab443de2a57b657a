package code_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/mctl/channel"
	"github.com/joeycumines/mctl/code"
)

func TestParse_MoveWithComment(t *testing.T) {
	c, err := code.Parse(`G1 X10.5 Y-3 ; move`, channel.HTTP)
	require.NoError(t, err)
	assert.Equal(t, code.GCode, c.Type)
	require.NotNil(t, c.Major)
	assert.EqualValues(t, 1, *c.Major)
	assert.Nil(t, c.Minor)
	require.Len(t, c.Parameters, 2)
	assert.Equal(t, byte('X'), c.Parameters[0].Letter)
	assert.Equal(t, "10.5", c.Parameters[0].Raw)
	assert.Equal(t, byte('Y'), c.Parameters[1].Letter)
	assert.Equal(t, "-3", c.Parameters[1].Raw)
	require.NotNil(t, c.Comment)
	assert.Equal(t, " move", *c.Comment)

	f, err := c.Parameters[0].Float()
	require.NoError(t, err)
	assert.Equal(t, 10.5, f)
}

func TestParse_QuotedMessageWithEscapes(t *testing.T) {
	c, err := code.Parse(`M117 "Hello ""world"""""`, channel.HTTP)
	require.NoError(t, err)
	assert.Equal(t, code.MCode, c.Type)
	require.NotNil(t, c.Major)
	assert.EqualValues(t, 117, *c.Major)
	require.Len(t, c.Parameters, 1)
	p := c.Parameters[0]
	assert.True(t, p.Unnamed())
	assert.Equal(t, `Hello "world""`, p.Raw)
}

func TestParse_MinorNumber(t *testing.T) {
	c, err := code.Parse(`G1.2`, channel.USB)
	require.NoError(t, err)
	require.NotNil(t, c.Minor)
	assert.EqualValues(t, 2, *c.Minor)
}

func TestParse_Keyword(t *testing.T) {
	c, err := code.Parse(`if move.axes[0].homed`, channel.HTTP)
	require.NoError(t, err)
	assert.Equal(t, code.KeywordCode, c.Type)
	assert.Equal(t, code.KeywordIf, c.Keyword)
	assert.Equal(t, "move.axes[0].homed", c.KeywordArgument)
}

func TestParse_CommentOnlyLine(t *testing.T) {
	c, err := code.Parse(`; just a comment`, channel.HTTP)
	require.NoError(t, err)
	assert.Equal(t, code.Comment, c.Type)
	require.NotNil(t, c.Comment)
	assert.Equal(t, " just a comment", *c.Comment)
}

func TestParse_ParenComment(t *testing.T) {
	c, err := code.Parse(`(this is a comment)`, channel.HTTP)
	require.NoError(t, err)
	assert.Equal(t, code.Comment, c.Type)
	require.NotNil(t, c.Comment)
	assert.Equal(t, "this is a comment", *c.Comment)
}

func TestParse_UnterminatedQuote(t *testing.T) {
	_, err := code.Parse(`M117 "unterminated`, channel.HTTP)
	require.Error(t, err)
	var pe *code.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParse_UnterminatedParenComment(t *testing.T) {
	_, err := code.Parse(`(unterminated`, channel.HTTP)
	require.Error(t, err)
	var pe *code.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParse_NonIntegerMajor(t *testing.T) {
	_, err := code.Parse(`GX1`, channel.HTTP)
	require.Error(t, err)
}

func TestParse_UnrecognizedKeyword(t *testing.T) {
	_, err := code.Parse(`frobnicate 1`, channel.HTTP)
	require.Error(t, err)
}

// TestParse_RoundTrip checks the property from §8: parse(render(c)) == c,
// modulo whitespace, for a representative set of well-formed codes.
func TestParse_RoundTrip(t *testing.T) {
	sources := []string{
		`G1 X10 Y20`,
		`G28`,
		`M117 "Hello world"`,
		`M117 "she said ""hi"""`,
		`T0`,
		`G1.5 X1`,
	}
	for _, src := range sources {
		src := src
		t.Run(src, func(t *testing.T) {
			c, err := code.Parse(src, channel.HTTP)
			require.NoError(t, err)
			rendered := code.Render(c)
			c2, err := code.Parse(rendered, channel.HTTP)
			require.NoError(t, err)
			assert.Equal(t, c.Type, c2.Type)
			assert.Equal(t, c.Major, c2.Major)
			assert.Equal(t, c.Minor, c2.Minor)
			require.Len(t, c2.Parameters, len(c.Parameters))
			for i := range c.Parameters {
				assert.Equal(t, c.Parameters[i].Letter, c2.Parameters[i].Letter)
				assert.Equal(t, strings.TrimSpace(c.Parameters[i].Raw), strings.TrimSpace(c2.Parameters[i].Raw))
			}
		})
	}
}

func TestParameter_TypedAccessors(t *testing.T) {
	p := code.Parameter{Letter: 'S', Raw: "1"}
	b, err := p.Bool()
	require.NoError(t, err)
	assert.True(t, b)

	v := code.Parameter{Letter: 'X', Raw: "1:2:3.5"}
	vec, err := v.Vector()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3.5}, vec)

	bad := code.Parameter{Letter: 'S', Raw: "notabool"}
	_, err = bad.Bool()
	require.Error(t, err)
}

func TestCodeResult_SuccessAndEmpty(t *testing.T) {
	var nilResult *code.CodeResult
	assert.True(t, nilResult.IsSuccessful())

	empty := code.NewResult()
	assert.True(t, empty.IsSuccessful())
	assert.Empty(t, empty.Messages)

	withError := code.NewResult().Add(code.Success, "ok").Add(code.Error, "bad")
	assert.False(t, withError.IsSuccessful())
}
