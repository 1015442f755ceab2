package dataset

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidData is returned for request bodies that are empty, malformed or
// JSON-falsy (null, false, 0, "").
var ErrInvalidData = errors.New("invalid data")

// Canonicalize validates a JSON document and re-encodes it in canonical form:
// object keys sorted, insignificant whitespace removed, numbers rewritten in
// their shortest form. Two documents that differ only in key order, formatting
// or number spelling (1, 1.0, 1e0) canonicalize to the same bytes.
func Canonicalize(raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrInvalidData
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidData)
	}

	if !truthy(v) {
		return nil, ErrInvalidData
	}

	return encode(normalize(v))
}

// Marshal returns the canonical JSON encoding of a typed dataset.
func Marshal(ds Dataset) ([]byte, error) {
	raw, err := json.Marshal(ds)
	if err != nil {
		return nil, fmt.Errorf("marshal dataset: %w", err)
	}
	return Canonicalize(raw)
}

// Hash returns the hex SHA-1 of canonical JSON. The result is used verbatim
// as the ETag of the snapshot.
func Hash(canonical []byte) string {
	sum := sha1.Sum(canonical)
	return hex.EncodeToString(sum[:])
}

// normalize rewrites every number of a decoded document into canonical form.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, elem := range t {
			t[k] = normalize(elem)
		}
		return t
	case []any:
		for i, elem := range t {
			t[i] = normalize(elem)
		}
		return t
	case json.Number:
		return canonicalNumber(t)
	default:
		return v
	}
}

// canonicalNumber formats n the way a float64 prints as JSON in ECMAScript:
// fixed notation for magnitudes in [1e-6, 1e21), exponent notation otherwise.
// Values that overflow float64 become null.
func canonicalNumber(n json.Number) any {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil && !math.IsInf(f, 0) {
		return n
	}
	if math.IsInf(f, 0) {
		return nil
	}
	if f == 0 {
		return json.Number("0")
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return json.Number(strconv.FormatFloat(f, 'f', -1, 64))
	}

	// Go writes e-07 / e+21; ECMAScript drops the exponent's leading zeros.
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	return json.Number(mantissa + "e" + sign + digits)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode canonical json: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// truthy mirrors JavaScript truthiness for decoded JSON values.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		return err != nil || f != 0
	default:
		return true
	}
}
