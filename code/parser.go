package code

import (
	"strconv"
	"strings"

	"github.com/joeycumines/mctl/channel"
)

// Parse consumes source as a single G/M/T-code, keyword, or comment line,
// per the grammar in §4.1: a single pass over the input, with no lookahead
// past the next character except when resolving a `""` escape inside a
// quoted string.
func Parse(source string, ch channel.Channel) (*Code, error) {
	c := &Code{Source: source, Channel: ch, Macro: NoMacro}
	i, n := 0, len(source)

	skipSpace := func() {
		for i < n && (source[i] == ' ' || source[i] == '\t') {
			i++
		}
	}

	skipSpace()
	if i >= n {
		c.Type = Comment
		return c, nil
	}

	switch source[i] {
	case ';':
		cm := source[i+1:]
		c.Type = Comment
		c.Comment = &cm
		return c, nil
	case '(':
		cm, newI, err := readParenComment(source, i)
		if err != nil {
			return nil, err
		}
		c.Type = Comment
		c.Comment = &cm
		_ = newI
		return c, nil
	}

	if t, ok := codeTypeFor(source[i]); ok {
		c.Type = t
		i++

		major, newI, err := readInt(source, i)
		if err != nil {
			return nil, parseErr("non-integer major number", source, i)
		}
		i = newI
		m32 := int32(major)
		c.Major = &m32

		if i < n && source[i] == '.' {
			i++
			minor, newI2, err := readInt(source, i)
			if err != nil {
				return nil, parseErr("non-integer minor number", source, i)
			}
			i = newI2
			n32 := int32(minor)
			c.Minor = &n32
		}

		if err := parseParameters(c, source, &i, n); err != nil {
			return nil, err
		}
		return c, nil
	}

	// Not a numeric G/M/T code: try a keyword.
	wordStart := i
	for i < n && isAlpha(source[i]) {
		i++
	}
	word := strings.ToLower(source[wordStart:i])
	kw, ok := keywordNames[word]
	if !ok || wordStart == i {
		return nil, parseErr("unrecognized code", source, wordStart)
	}
	c.Type = KeywordCode
	c.Keyword = kw
	skipSpaceAt := i
	for skipSpaceAt < n && (source[skipSpaceAt] == ' ' || source[skipSpaceAt] == '\t') {
		skipSpaceAt++
	}
	rest := source[skipSpaceAt:]
	if idx := strings.IndexByte(rest, ';'); idx >= 0 {
		cm := rest[idx+1:]
		c.Comment = &cm
		rest = rest[:idx]
	}
	c.KeywordArgument = strings.TrimRight(rest, " \t")
	return c, nil
}

func codeTypeFor(b byte) (CodeType, bool) {
	switch b {
	case 'G', 'g':
		return GCode, true
	case 'M', 'm':
		return MCode, true
	case 'T', 't':
		return TCode, true
	}
	return 0, false
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func readInt(s string, i int) (int64, int, error) {
	start := i
	n := len(s)
	for i < n && isDigit(s[i]) {
		i++
	}
	if i == start {
		return 0, i, parseErr("expected digits", s, i)
	}
	v, err := strconv.ParseInt(s[start:i], 10, 32)
	if err != nil {
		return 0, i, err
	}
	return v, i, nil
}

// readParenComment consumes a `(...)` comment starting at s[open] == '('.
// It returns the comment content and the index just past the closing ')'.
func readParenComment(s string, open int) (string, int, error) {
	end := strings.IndexByte(s[open+1:], ')')
	if end < 0 {
		return "", 0, parseErr("unterminated comment", s, open)
	}
	return s[open+1 : open+1+end], open + 1 + end + 1, nil
}

// parseParameters scans the remainder of the line for parameters, stopping
// at (and consuming) a trailing comment, per the grammar's
// `(space+ param)* (comment)?` production.
func parseParameters(c *Code, source string, ip *int, n int) error {
	i := *ip
	for {
		for i < n && (source[i] == ' ' || source[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}
		if source[i] == ';' {
			cm := source[i+1:]
			c.Comment = &cm
			i = n
			break
		}
		if source[i] == '(' {
			cm, newI, err := readParenComment(source, i)
			if err != nil {
				return err
			}
			c.Comment = &cm
			i = newI
			// A parenthetical comment is treated, for our purposes, as
			// always trailing: the firmware attaches further semantics to
			// mid-line paren comments, which this core intentionally does
			// not model (see DESIGN.md).
			i = n
			break
		}

		var letter byte
		if isAlpha(source[i]) {
			letter = upper(source[i])
			i++
		}

		if i < n && source[i] == '"' {
			raw, newI, err := readQuotedString(source, i)
			if err != nil {
				return err
			}
			i = newI
			c.Parameters = append(c.Parameters, Parameter{Letter: letter, Raw: raw, Quoted: true})
			continue
		}

		start := i
		for i < n && source[i] != ' ' && source[i] != '\t' && source[i] != ';' && source[i] != '(' {
			i++
		}
		c.Parameters = append(c.Parameters, Parameter{Letter: letter, Raw: source[start:i]})
	}
	*ip = i
	return nil
}

// readQuotedString consumes a `"`-delimited string starting at s[open] ==
// '"', with `""` as the escape for a literal embedded quote.
func readQuotedString(s string, open int) (string, int, error) {
	n := len(s)
	i := open + 1
	var sb strings.Builder
	for i < n {
		if s[i] == '"' {
			if i+1 < n && s[i+1] == '"' {
				sb.WriteByte('"')
				i += 2
				continue
			}
			return sb.String(), i + 1, nil
		}
		sb.WriteByte(s[i])
		i++
	}
	return "", 0, parseErr("unterminated quoted string", s, open)
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// Render produces a textual form that Parse accepts and that round-trips
// back to an equivalent Code, modulo whitespace (§8 property 1).
func Render(c *Code) string {
	var sb strings.Builder
	switch c.Type {
	case Comment:
		sb.WriteByte(';')
		if c.Comment != nil {
			sb.WriteString(*c.Comment)
		}
		return sb.String()
	case KeywordCode:
		sb.WriteString(c.Keyword.String())
		if c.KeywordArgument != "" {
			sb.WriteByte(' ')
			sb.WriteString(c.KeywordArgument)
		}
		return sb.String()
	}

	switch c.Type {
	case GCode:
		sb.WriteByte('G')
	case MCode:
		sb.WriteByte('M')
	case TCode:
		sb.WriteByte('T')
	}
	if c.Major != nil {
		sb.WriteString(strconv.FormatInt(int64(*c.Major), 10))
	} else {
		sb.WriteByte('0')
	}
	if c.Minor != nil {
		sb.WriteByte('.')
		sb.WriteString(strconv.FormatInt(int64(*c.Minor), 10))
	}
	for _, p := range c.Parameters {
		sb.WriteByte(' ')
		if p.Letter != 0 {
			sb.WriteByte(p.Letter)
		}
		if p.Quoted || needsQuoting(p.Raw) {
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(p.Raw, `"`, `""`))
			sb.WriteByte('"')
		} else {
			sb.WriteString(p.Raw)
		}
	}
	if c.Comment != nil {
		sb.WriteByte(';')
		sb.WriteString(*c.Comment)
	}
	return sb.String()
}

func needsQuoting(s string) bool {
	if s == "" {
		return false
	}
	return strings.ContainsAny(s, " \t;(\"")
}
