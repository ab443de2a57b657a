package code

import (
	"strconv"
	"strings"
)

// Bool interprets Raw as a boolean: "1"/"true"/"yes" (case-insensitive) are
// true, "0"/"false"/"no" are false. Anything else is a ParameterTypeError.
func (p Parameter) Bool() (bool, error) {
	switch strings.ToLower(p.Raw) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	}
	return false, &ParameterTypeError{Letter: p.Letter, Raw: p.Raw, Kind: "bool"}
}

// Int interprets Raw as a base-10 integer.
func (p Parameter) Int() (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(p.Raw), 10, 64)
	if err != nil {
		return 0, &ParameterTypeError{Letter: p.Letter, Raw: p.Raw, Kind: "int", err: err}
	}
	return v, nil
}

// Float interprets Raw as a floating point number.
func (p Parameter) Float() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.Raw), 64)
	if err != nil {
		return 0, &ParameterTypeError{Letter: p.Letter, Raw: p.Raw, Kind: "float", err: err}
	}
	return v, nil
}

// String returns Raw unmodified: the lazy typed accessor for strings is a
// no-op since quote-decoding already happened during parsing.
func (p Parameter) String() string {
	return p.Raw
}

// Vector interprets Raw as a `:`-separated list of floats, e.g. "1:2:3".
func (p Parameter) Vector() ([]float64, error) {
	parts := strings.Split(p.Raw, ":")
	out := make([]float64, 0, len(parts))
	for _, s := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, &ParameterTypeError{Letter: p.Letter, Raw: p.Raw, Kind: "vector", err: err}
		}
		out = append(out, v)
	}
	return out, nil
}
