// Package schema validates raw seed and override documents against their
// JSON Schemas before they are decoded into typed records.
//
// Schema failures are returned as validation issues so that a document with a
// string where a number belongs is reported, not rejected by the decoder.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Guffawaffle/majel/pkg/contracts"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Kind names an embedded document schema.
type Kind string

const (
	KindSeed     Kind = "seed"
	KindOverride Kind = "override"
)

const baseURL = "https://majel.schemas.local/"

// CodeSchema is the issue code for schema violations.
const CodeSchema = "SCHEMA"

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func compileAll() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	compiled = make(map[Kind]*jsonschema.Schema, 2)
	for _, k := range []Kind{KindSeed, KindOverride} {
		name := string(k) + ".schema.json"
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			compileErr = fmt.Errorf("schema: read %s: %w", name, err)
			return
		}
		if err := c.AddResource(baseURL+name, bytes.NewReader(data)); err != nil {
			compileErr = fmt.Errorf("schema: load %s: %w", name, err)
			return
		}
	}
	for _, k := range []Kind{KindSeed, KindOverride} {
		s, err := c.Compile(baseURL + string(k) + ".schema.json")
		if err != nil {
			compileErr = fmt.Errorf("schema: compile %s: %w", k, err)
			return
		}
		compiled[k] = s
	}
}

// Validate checks a JSON document against the schema of kind. The returned
// error is reserved for unreadable input; violations come back as issues.
func Validate(kind Kind, doc []byte) ([]contracts.ValidationIssue, error) {
	compileOnce.Do(compileAll)
	if compileErr != nil {
		return nil, compileErr
	}
	s, ok := compiled[kind]
	if !ok {
		return nil, fmt.Errorf("schema: unknown document kind %q", kind)
	}

	var instance interface{}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return nil, fmt.Errorf("schema: parse %s document: %w", kind, err)
	}

	err := s.Validate(instance)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, fmt.Errorf("schema: validate %s document: %w", kind, err)
	}

	var issues []contracts.ValidationIssue
	collectLeaves(verr, &issues)
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return issues, nil
}

func collectLeaves(e *jsonschema.ValidationError, out *[]contracts.ValidationIssue) {
	if len(e.Causes) == 0 {
		*out = append(*out, contracts.ValidationIssue{
			Severity: contracts.SeverityError,
			Code:     CodeSchema,
			Path:     pointerToPath(e.InstanceLocation),
			Message:  e.Message,
		})
		return
	}
	for _, c := range e.Causes {
		collectLeaves(c, out)
	}
}

// pointerToPath turns "/officers/3/effects/0" into "officers[3].effects[0]".
func pointerToPath(ptr string) string {
	if ptr == "" || ptr == "/" {
		return ""
	}
	var b strings.Builder
	for _, tok := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		if isIndex(tok) {
			b.WriteString("[" + tok + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func isIndex(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ToJSON returns doc as JSON. Documents that are not JSON are decoded as YAML
// and re-encoded, so seeds and override batches may be authored in either.
func ToJSON(doc []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return trimmed, nil
	}
	var v interface{}
	if err := yaml.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("schema: document is neither JSON nor YAML: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("schema: re-encode YAML document: %w", err)
	}
	return out, nil
}
