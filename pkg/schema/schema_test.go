package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guffawaffle/majel/pkg/fixtures"
)

func TestValidate_SampleSeed(t *testing.T) {
	issues, err := Validate(KindSeed, fixtures.SampleSeedJSON())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidate_ReportsLeafPaths(t *testing.T) {
	doc := []byte(`{
		"taxonomy": {
			"targetKinds": [], "targetTags": [], "shipClasses": [], "slots": [],
			"effectKeys": [], "conditionKeys": [],
			"issueTypes": [{"id": "x", "severity": "fatal"}]
		},
		"officers": [{
			"id": "kirk-cm", "officerId": "kirk", "slot": "cm", "isInert": false,
			"effects": [{"effectKey": "armor", "magnitude": "high"}]
		}]
	}`)

	issues, err := Validate(KindSeed, doc)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	paths := []string{issues[0].Path, issues[1].Path}
	assert.Equal(t, []string{"officers[0].effects[0].magnitude", "taxonomy.issueTypes[0].severity"}, paths)
	for _, is := range issues {
		assert.Equal(t, CodeSchema, is.Code)
	}
}

func TestValidate_IntegerOffsets(t *testing.T) {
	doc := func(start string) []byte {
		return []byte(`{
			"taxonomy": {
				"targetKinds": [], "targetTags": [], "shipClasses": [], "slots": [],
				"effectKeys": [], "conditionKeys": [], "issueTypes": []
			},
			"officers": [{
				"id": "kirk-cm", "officerId": "kirk", "slot": "cm", "isInert": false,
				"effects": [{"effectKey": "armor", "sourceSpan": {"start": ` + start + `, "end": 9007199254740993}}]
			}]
		}`)
	}

	issues, err := Validate(KindSeed, doc("12"))
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = Validate(KindSeed, doc("1.5"))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "officers[0].effects[0].sourceSpan.start", issues[0].Path)
}

func TestValidate_Override(t *testing.T) {
	issues, err := Validate(KindOverride, []byte(`{"schemaVersion": "1.0.0", "operations": []}`))
	require.NoError(t, err)
	require.NotEmpty(t, issues, "artifactBase is required")

	_, err = Validate(KindOverride, []byte(`{not json`))
	assert.Error(t, err)

	_, err = Validate(Kind("roster"), []byte(`{}`))
	assert.Error(t, err)
}

func TestPointerToPath(t *testing.T) {
	tests := map[string]string{
		"":                          "",
		"/":                         "",
		"/officers/3/effects/0":     "officers[3].effects[0]",
		"/taxonomy/slots":           "taxonomy.slots",
		"/params/a~1b":              "params.a/b",
		"/operations/12/value/unit": "operations[12].value.unit",
	}
	for in, want := range tests {
		assert.Equal(t, want, pointerToPath(in), in)
	}
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON([]byte("  {\"a\": 1}\n"))
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, string(out))

	out, err = ToJSON([]byte("schemaVersion: \"1.0.0\"\noperations: []\n"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"schemaVersion": "1.0.0", "operations": []}`, string(out))

	_, err = ToJSON([]byte("a: [unclosed"))
	assert.Error(t, err)
}
