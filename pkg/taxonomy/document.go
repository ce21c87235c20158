package taxonomy

import (
	"encoding/json"
	"fmt"

	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/schema"
)

// DecodeSeed parses a JSON or YAML seed document.
func DecodeSeed(doc []byte) (*contracts.Seed, error) {
	data, err := schema.ToJSON(doc)
	if err != nil {
		return nil, err
	}
	var seed contracts.Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("taxonomy: decode seed: %w", err)
	}
	return &seed, nil
}

// ValidateDocument validates a raw seed document. Schema violations (for
// example a non-numeric magnitude) are reported as issues and stop further
// checks; otherwise the decoded seed is returned alongside the Validate
// report. The error is reserved for documents that are not JSON or YAML.
func ValidateDocument(doc []byte) (*contracts.Seed, *Report, error) {
	data, err := schema.ToJSON(doc)
	if err != nil {
		return nil, nil, err
	}
	issues, err := schema.Validate(schema.KindSeed, data)
	if err != nil {
		return nil, nil, err
	}
	if len(issues) > 0 {
		r := &Report{Issues: issues, Errors: len(issues)}
		return nil, r, nil
	}

	var seed contracts.Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		r := &Report{Issues: []contracts.ValidationIssue{}}
		r.addError("", CodeSchema, err.Error())
		return nil, r, nil
	}
	return &seed, Validate(&seed), nil
}
