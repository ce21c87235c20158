package crew

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Guffawaffle/majel/pkg/builder"
	"github.com/Guffawaffle/majel/pkg/catalog"
	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/evaluator"
	"github.com/Guffawaffle/majel/pkg/fixtures"
	"github.com/Guffawaffle/majel/pkg/taxonomy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setup(t *testing.T) (*catalog.Catalog, contracts.Intent) {
	t.Helper()
	seed := fixtures.SampleSeed()
	a, err := builder.Build(&seed, builder.Options{})
	require.NoError(t, err)
	cat, err := catalog.New(a)
	require.NoError(t, err)
	intent, ok := fixtures.SampleIntent("hostile_grinding")
	require.True(t, ok)
	return cat, intent
}

func TestValidate_Works(t *testing.T) {
	cat, intent := setup(t)
	req := Request{
		Captain: "kirk",
		Bridge1: "scotty",
		Ship:    &contracts.ShipContext{Class: "explorer"},
	}

	res, err := Validate(context.Background(), req, cat, intent)
	require.NoError(t, err)

	assert.Equal(t, contracts.VerdictWorks, res.Verdict)
	assert.Equal(t, 0.9, res.TotalScore)
	require.Len(t, res.Officers, 2)
	assert.Equal(t, SlotCaptain, res.Officers[0].Slot)
	assert.Equal(t, "James T. Kirk", res.Officers[0].OfficerName)
	assert.Equal(t, SlotBridge1, res.Officers[1].Slot)
	assert.Equal(t, cat.Version(), res.ArtifactVersion)
	assert.Equal(t, "hostile_grinding", res.IntentID)
}

func TestValidate_OfficerWithoutAbilitiesIsUnknown(t *testing.T) {
	cat, intent := setup(t)
	req := Request{Captain: "kirk", Bridge1: "ghost", Bridge2: "mccoy"}

	res, err := Validate(context.Background(), req, cat, intent)
	require.NoError(t, err)

	assert.Equal(t, contracts.VerdictUnknown, res.Verdict)
	assert.Equal(t, contracts.VerdictUnknown, res.Officers[1].Verdict)
	assert.Equal(t, "ghost", res.Officers[1].OfficerName)
	assert.Contains(t, res.Summary, "bridge_1 ghost: no abilities in catalog")
}

func TestValidate_AllBlocked(t *testing.T) {
	cat, intent := setup(t)
	// spock's oa needs a borg target, scotty's needs an explorer.
	res, err := Validate(context.Background(), Request{Bridge1: "spock", Bridge2: "scotty"}, cat, intent)
	require.NoError(t, err)

	assert.Equal(t, contracts.VerdictBlocked, res.Verdict)
	assert.Equal(t, 0.0, res.TotalScore)
	assert.Equal(t, SlotBridge1, res.Officers[0].Slot)
}

func TestValidate_Partial(t *testing.T) {
	cat, intent := setup(t)
	res, err := Validate(context.Background(), Request{Captain: "kirk", Bridge1: "mccoy"}, cat, intent)
	require.NoError(t, err)

	assert.Equal(t, contracts.VerdictPartial, res.Verdict)
	assert.Equal(t, contracts.VerdictPartial, res.Officers[1].Verdict)
	assert.Equal(t, 0.85, res.TotalScore)

	require.Len(t, res.Officers[1].TopIssues, 1)
	assert.Equal(t, evaluator.IssueRuntimeCondition, res.Officers[1].TopIssues[0].Type)
}

func TestValidate_CaptainManeuverOnlyInCaptainSeat(t *testing.T) {
	cat, intent := setup(t)

	asCaptain, err := Validate(context.Background(), Request{Captain: "kirk"}, cat, intent)
	require.NoError(t, err)
	onBridge, err := Validate(context.Background(), Request{Bridge1: "kirk"}, cat, intent)
	require.NoError(t, err)

	assert.Equal(t, 0.8, asCaptain.TotalScore)
	assert.Equal(t, 0.2, onBridge.TotalScore)
}

func TestValidate_TargetClassOverride(t *testing.T) {
	cat, intent := setup(t)
	res, err := Validate(context.Background(), Request{Captain: "kirk", TargetClass: "interceptor"}, cat, intent)
	require.NoError(t, err)

	assert.Equal(t, "interceptor", res.Scenario.TargetShipClass)
	assert.Equal(t, "hostile", res.Scenario.TargetKind)
}

func TestValidate_TaxonomyWording(t *testing.T) {
	cat, intent := setup(t)
	idx := taxonomy.NewIndex(fixtures.SampleSeed().Taxonomy)
	v := NewValidator(evaluator.New(idx.IssueTypes()))

	res, err := v.Validate(context.Background(), Request{Bridge1: "mccoy"}, cat, intent)
	require.NoError(t, err)
	require.Len(t, res.Officers[0].TopIssues, 1)
	assert.True(t, strings.HasPrefix(res.Officers[0].TopIssues[0].Message, "Effect depends on combat state"),
		res.Officers[0].TopIssues[0].Message)
}

func TestValidate_Errors(t *testing.T) {
	cat, intent := setup(t)
	ctx := context.Background()

	_, err := Validate(ctx, Request{}, cat, intent)
	assert.ErrorIs(t, err, ErrEmptyCrew)

	_, err = Validate(ctx, Request{Captain: "kirk", Bridge2: "kirk"}, cat, intent)
	assert.ErrorIs(t, err, ErrDuplicateOfficer)

	_, err = Validate(ctx, Request{Captain: "kirk"}, nil, intent)
	assert.ErrorIs(t, err, ErrNilCatalog)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Validate(cancelled, Request{Captain: "kirk"}, cat, intent)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummary(t *testing.T) {
	cat, intent := setup(t)
	res, err := Validate(context.Background(), Request{Captain: "kirk", Bridge1: "mccoy"}, cat, intent)
	require.NoError(t, err)

	require.NotEmpty(t, res.Summary)
	assert.Equal(t, "Hostile grinding vs hostile: partial (score 0.85)", res.Summary[0])
	assert.Contains(t, res.Summary[1], "captain James T. Kirk: works")
}

func TestTopIssues(t *testing.T) {
	issues := []contracts.Issue{
		{Type: "runtime_condition", Severity: contracts.SeverityInfo},
		{Type: "mode_not_confirmed", Severity: contracts.SeverityWarn},
		{Type: "runtime_condition", Severity: contracts.SeverityInfo, Message: "second"},
		{Type: "not_applicable_to_target_kind", Severity: contracts.SeverityError},
		{Type: "a", Severity: contracts.SeverityWarn},
		{Type: "b", Severity: contracts.SeverityWarn},
		{Type: "c", Severity: contracts.SeverityWarn},
	}

	top := TopIssues(issues, 5)
	types := make([]string, len(top))
	for i, is := range top {
		types[i] = is.Type
	}
	assert.Equal(t, []string{"not_applicable_to_target_kind", "mode_not_confirmed", "a", "b", "c"}, types)

	all := TopIssues(issues, -1)
	assert.Len(t, all, 6)
	assert.Empty(t, all[5].Message, "first issue of a type is kept")
}
