// Package crew scores a three-officer crew for one intent and derives the
// crew verdict.
package crew

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Guffawaffle/majel/pkg/catalog"
	"github.com/Guffawaffle/majel/pkg/contracts"
	"github.com/Guffawaffle/majel/pkg/evaluator"
	"github.com/Guffawaffle/majel/pkg/scoring"
)

// Seats, in the order results are reported.
const (
	SlotCaptain = "captain"
	SlotBridge1 = "bridge_1"
	SlotBridge2 = "bridge_2"
)

const maxTopIssues = 5

var (
	ErrEmptyCrew        = errors.New("crew: no officers seated")
	ErrDuplicateOfficer = errors.New("crew: officer seated twice")
	ErrNilCatalog       = errors.New("crew: catalog is nil")
)

// Request names the seated officers. Empty seats are skipped.
type Request struct {
	Captain string `json:"captain,omitempty"`
	Bridge1 string `json:"bridge_1,omitempty"`
	Bridge2 string `json:"bridge_2,omitempty"`

	// TargetClass, when set, replaces the intent's target ship class.
	TargetClass string `json:"targetClass,omitempty"`

	// Ship is the crew's own ship, when known.
	Ship *contracts.ShipContext `json:"ship,omitempty"`
}

type seat struct {
	slot      string
	role      contracts.Role
	officerID string
}

func (r Request) seats() []seat {
	all := []seat{
		{SlotCaptain, contracts.RoleCaptain, r.Captain},
		{SlotBridge1, contracts.RoleBridge, r.Bridge1},
		{SlotBridge2, contracts.RoleBridge, r.Bridge2},
	}
	out := all[:0]
	for _, s := range all {
		if s.officerID != "" {
			out = append(out, s)
		}
	}
	return out
}

// Seated returns the number of occupied seats.
func (r Request) Seated() int { return len(r.seats()) }

// OfficerResult is one seated officer's score plus its condensed issues.
type OfficerResult struct {
	Slot        string `json:"slot"`
	OfficerName string `json:"officerName"`
	scoring.OfficerScore
	TopIssues []contracts.Issue `json:"topIssues"`
}

// Result is the crew evaluation.
type Result struct {
	ArtifactVersion string             `json:"artifactVersion"`
	IntentID        string             `json:"intentId"`
	Scenario        contracts.Scenario `json:"scenario"`
	Officers        []OfficerResult    `json:"officers"`
	TotalScore      float64            `json:"totalScore"`
	Verdict         contracts.Verdict  `json:"verdict"`
	Summary         []string           `json:"summary"`
}

// Validator scores crews with a fixed evaluator.
type Validator struct {
	ev *evaluator.Evaluator
}

// NewValidator returns a Validator. ev may be nil.
func NewValidator(ev *evaluator.Evaluator) *Validator {
	if ev == nil {
		ev = evaluator.New(nil)
	}
	return &Validator{ev: ev}
}

// Validate scores req with built-in issue wording.
func Validate(ctx context.Context, req Request, cat *catalog.Catalog, intent contracts.Intent) (*Result, error) {
	return NewValidator(nil).Validate(ctx, req, cat, intent)
}

// Scenario is the scenario a request is evaluated in: the intent's default
// context with the request's target class and ship applied.
func Scenario(req Request, intent contracts.Intent) contracts.Scenario {
	s := intent.Scenario()
	if req.TargetClass != "" {
		s.TargetShipClass = req.TargetClass
	}
	if req.Ship != nil {
		ship := *req.Ship
		ship.Tags = append([]string(nil), req.Ship.Tags...)
		s.Ship = &ship
	}
	return s
}

// Validate scores each seated officer in parallel and aggregates the crew.
// Results are in seat order regardless of completion order.
func (v *Validator) Validate(ctx context.Context, req Request, cat *catalog.Catalog, intent contracts.Intent) (*Result, error) {
	if cat == nil {
		return nil, ErrNilCatalog
	}
	seats := req.seats()
	if len(seats) == 0 {
		return nil, ErrEmptyCrew
	}
	seen := make(map[string]string, len(seats))
	for _, s := range seats {
		if prev, dup := seen[s.officerID]; dup {
			return nil, fmt.Errorf("%w: %s in %s and %s", ErrDuplicateOfficer, s.officerID, prev, s.slot)
		}
		seen[s.officerID] = s.slot
	}

	scenario := Scenario(req, intent)
	weights := intent.Weights()
	results := make([]OfficerResult, len(seats))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range seats {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sc := scenario
			sc.Slot = s.role
			score := scoring.ScoreOfficer(scoring.Input{
				OfficerID: s.officerID,
				Abilities: cat.Abilities(s.officerID),
				Role:      s.role,
				Scenario:  sc,
				Weights:   weights,
				Evaluator: v.ev,
			})
			name := s.officerID
			if o, ok := cat.Officer(s.officerID); ok && o.Name != "" {
				name = o.Name
			}
			results[i] = OfficerResult{
				Slot:         s.slot,
				OfficerName:  name,
				OfficerScore: score,
				TopIssues:    TopIssues(score.Issues, maxTopIssues),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("crew: %w", err)
	}

	res := &Result{
		ArtifactVersion: cat.Version(),
		IntentID:        intent.ID,
		Scenario:        scenario,
		Officers:        results,
	}
	total := 0.0
	for _, r := range results {
		total += r.Score
	}
	res.TotalScore = round2(total)
	res.Verdict = crewVerdict(results)
	res.Summary = summarize(res, intent)
	return res, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func crewVerdict(officers []OfficerResult) contracts.Verdict {
	works, blocked := 0, 0
	for _, o := range officers {
		switch o.Verdict {
		case contracts.VerdictUnknown:
			return contracts.VerdictUnknown
		case contracts.VerdictWorks:
			works++
		case contracts.VerdictBlocked:
			blocked++
		}
	}
	switch len(officers) {
	case works:
		return contracts.VerdictWorks
	case blocked:
		return contracts.VerdictBlocked
	}
	return contracts.VerdictPartial
}

var severityRank = map[string]int{
	contracts.SeverityError: 0,
	contracts.SeverityWarn:  1,
	contracts.SeverityInfo:  2,
}

// TopIssues keeps the first issue of each type, orders them most severe
// first (stable within a severity) and truncates to limit.
func TopIssues(issues []contracts.Issue, limit int) []contracts.Issue {
	out := make([]contracts.Issue, 0, len(issues))
	seen := make(map[string]bool, len(issues))
	for _, is := range issues {
		if seen[is.Type] {
			continue
		}
		seen[is.Type] = true
		out = append(out, is)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Severity) < rank(out[j].Severity)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func rank(severity string) int {
	if r, ok := severityRank[severity]; ok {
		return r
	}
	return len(severityRank)
}

func summarize(res *Result, intent contracts.Intent) []string {
	name := intent.Name
	if name == "" {
		name = intent.ID
	}
	target := res.Scenario.TargetKind
	if target == "" {
		target = "any target"
	}
	lines := []string{
		fmt.Sprintf("%s vs %s: %s (score %.2f)", name, target, res.Verdict, res.TotalScore),
	}
	for _, o := range res.Officers {
		if o.Verdict == contracts.VerdictUnknown {
			lines = append(lines, fmt.Sprintf("%s %s: no abilities in catalog", o.Slot, o.OfficerName))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s, score %.2f (%d works, %d conditional, %d blocked)",
			o.Slot, o.OfficerName, o.Verdict, o.Score, o.Works, o.Conditional, o.Blocked))
		for _, is := range o.TopIssues {
			lines = append(lines, fmt.Sprintf("  %s: %s", is.Severity, is.Message))
		}
	}
	return lines
}
