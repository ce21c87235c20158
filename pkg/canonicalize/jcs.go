// Package canonicalize provides deterministic serialization for hashing and
// diffing pipeline records.
//
// The canonical form is RFC 8785 (JSON Canonicalization Scheme) with two
// additions: every string is NFC-normalized, and arrays stored under a
// set-typed field name are sorted before serialization so element insertion
// order never reaches a digest.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// DigestPrefix tags every digest produced by this package.
const DigestPrefix = "sha256:"

// DefaultSetFields are the field names whose arrays carry no ordering.
var DefaultSetFields = []string{
	"targetKinds",
	"targetTags",
	"shipClasses",
	"slots",
	"effectKeys",
	"conditionKeys",
	"issueTypes",
	"conditions",
	"tags",
	"params",
}

// Canonicalizer serializes values into their canonical byte form.
type Canonicalizer struct {
	setFields map[string]bool
}

// New returns a Canonicalizer treating the named fields as sets.
func New(setFields ...string) *Canonicalizer {
	c := &Canonicalizer{setFields: make(map[string]bool, len(setFields))}
	for _, f := range setFields {
		c.setFields[f] = true
	}
	return c
}

var std = New(DefaultSetFields...)

// JCS returns the canonical JSON of v using the default set fields.
func JCS(v interface{}) ([]byte, error) {
	return std.Canonicalize(v)
}

// JCSString returns the canonical form as a string.
func JCSString(v interface{}) (string, error) {
	data, err := JCS(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Digest returns "sha256:<hex>" over the canonical JSON of v.
func Digest(v interface{}) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return DigestPrefix + HashBytes(b), nil
}

// MustDigest is Digest for values that are known to marshal, such as the
// package's own contract types. It panics on failure.
func MustDigest(v interface{}) string {
	d, err := Digest(v)
	if err != nil {
		panic(fmt.Sprintf("canonicalize: digest of %T: %v", v, err))
	}
	return d
}

// HashBytes computes the SHA-256 of raw bytes as lowercase hex.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Canonicalize returns the canonical JSON of v.
//
// v is marshalled with encoding/json first so struct tags are honored, then
// decoded generically, normalized, re-serialized with sorted keys and finally
// passed through the RFC 8785 transform for number formatting.
func (c *Canonicalizer) Canonicalize(v interface{}) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: pre-marshal failed: %w", err)
	}

	var generic interface{}
	decoder := json.NewDecoder(bytes.NewReader(intermediate))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: intermediate decode failed: %w", err)
	}

	normalized, err := c.normalize(generic, "")
	if err != nil {
		return nil, err
	}
	out, err := marshalRecursive(normalized)
	if err != nil {
		return nil, err
	}
	final, err := jcs.Transform(out)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: rfc8785 transform failed: %w", err)
	}
	return final, nil
}

// normalize NFC-normalizes strings and keys and sorts arrays found under set
// fields. field is the object key the value was found under.
func (c *Canonicalizer) normalize(v interface{}, field string) (interface{}, error) {
	switch t := v.(type) {
	case string:
		return norm.NFC.String(t), nil
	case json.Number:
		// ES6 number form up front so set sorting sees final representations.
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("canonicalize: number %s: %w", t, err)
		}
		s, err := jcs.NumberToJSON(f)
		if err != nil {
			return nil, fmt.Errorf("canonicalize: number %s: %w", t, err)
		}
		return json.Number(s), nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, child := range t {
			nk := norm.NFC.String(k)
			nv, err := c.normalize(child, nk)
			if err != nil {
				return nil, err
			}
			out[nk] = nv
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, child := range t {
			nv, err := c.normalize(child, "")
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		if c.setFields[field] {
			return sortSet(out)
		}
		return out, nil
	default:
		return v, nil
	}
}

// sortSet orders elements by their "id" field when present, otherwise by
// their canonical serialization. Serialization breaks ties.
func sortSet(elems []interface{}) ([]interface{}, error) {
	type keyed struct {
		key  string
		repr []byte
		elem interface{}
	}
	items := make([]keyed, len(elems))
	for i, e := range elems {
		repr, err := marshalRecursive(e)
		if err != nil {
			return nil, err
		}
		key := string(repr)
		if m, ok := e.(map[string]interface{}); ok {
			if id, ok := m["id"].(string); ok {
				key = id
			}
		}
		items[i] = keyed{key: key, repr: repr, elem: e}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].key != items[j].key {
			return items[i].key < items[j].key
		}
		return bytes.Compare(items[i].repr, items[j].repr) < 0
	})
	out := make([]interface{}, len(items))
	for i, it := range items {
		out[i] = it.elem
	}
	return out, nil
}

func marshalRecursive(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	switch t := v.(type) {
	case nil:
		return []byte("null"), nil
	case bool:
		if t {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case json.Number:
		return []byte(t.String()), nil
	case string:
		if err := enc.Encode(t); err != nil {
			return nil, err
		}
		return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalRecursive(elem)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalRecursive(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := marshalRecursive(t[k])
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
	}
}
