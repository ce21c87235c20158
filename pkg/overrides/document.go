package overrides

import (
	"encoding/json"
	"fmt"

	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/schema"
)

// DecodeFile parses and schema-checks a JSON or YAML override document.
// Schema violations are returned as issues with a nil file.
func DecodeFile(doc []byte) (*contracts.OverrideFile, []contracts.ValidationIssue, error) {
	data, err := schema.ToJSON(doc)
	if err != nil {
		return nil, nil, err
	}
	issues, err := schema.Validate(schema.KindOverride, data)
	if err != nil {
		return nil, nil, err
	}
	if len(issues) > 0 {
		return nil, issues, nil
	}
	var f contracts.OverrideFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("overrides: decode batch: %w", err)
	}
	return &f, nil, nil
}
