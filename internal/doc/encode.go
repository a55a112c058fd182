package doc

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DomainPayload is the domain separator for payload hashes.
// The version suffix leaves room for changing the encoding later.
const DomainPayload = "entries/payload/v1"

// Marshal encodes v as compact JSON with object keys sorted by UTF-16 code
// units and without HTML escaping. Strings are written as given.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCanonical encodes v like Marshal but NFC-normalizes every string
// and object key, so visually identical payloads encode identically.
// Use it for hashing, never for storage.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash returns the hex SHA-256 of the canonical encoding of v,
// domain-separated by DomainPayload.
func Hash(v Value) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash payload: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainPayload))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func encode(buf *bytes.Buffer, v Value, canonical bool) error {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
	case String:
		writeString(buf, string(val), canonical)
	case Number:
		b, err := val.MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(b)
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem, canonical); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		keys := val.SortedKeys()
		if canonical {
			keys = normalizedKeys(val)
		}
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k, canonical)
			buf.WriteByte(':')
			elem := val[k]
			if canonical {
				elem = lookupNormalized(val, k)
			}
			if err := encode(buf, elem, canonical); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value type: %T", v)
	}
	return nil
}

// normalizedKeys returns the NFC forms of obj's keys in UTF-16 order.
func normalizedKeys(obj Object) []string {
	normalized := make(Object, len(obj))
	for k, v := range obj {
		normalized[norm.NFC.String(k)] = v
	}
	return normalized.SortedKeys()
}

// lookupNormalized finds the value whose key normalizes to nfcKey.
func lookupNormalized(obj Object, nfcKey string) Value {
	if v, ok := obj[nfcKey]; ok {
		return v
	}
	for k, v := range obj {
		if norm.NFC.String(k) == nfcKey {
			return v
		}
	}
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString writes s as a JSON string. Only quote, backslash and control
// characters are escaped; invalid UTF-8 becomes U+FFFD.
func writeString(buf *bytes.Buffer, s string, canonical bool) {
	if canonical {
		s = norm.NFC.String(s)
	}

	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"':
				buf.WriteString(`\"`)
			case c == '\\':
				buf.WriteString(`\\`)
			case c == '\n':
				buf.WriteString(`\n`)
			case c == '\r':
				buf.WriteString(`\r`)
			case c == '\t':
				buf.WriteString(`\t`)
			case c == '\b':
				buf.WriteString(`\b`)
			case c == '\f':
				buf.WriteString(`\f`)
			case c < 0x20:
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xF])
			default:
				buf.WriteByte(c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteString("�")
		} else {
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}
