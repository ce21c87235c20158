package overrides

import (
	"errors"
	"fmt"

	"github.com/Guffawaffle/majel/pkg/contracts"
)

var (
	ErrSchemaVersion    = errors.New("overrides: unsupported schema version")
	ErrStaleBase        = errors.New("overrides: artifact base does not match")
	ErrTaxonomyMismatch = errors.New("overrides: taxonomy does not match artifact")
	ErrDuplicateTarget  = errors.New("overrides: duplicate target in batch")
	ErrUnsupportedOp    = errors.New("overrides: unsupported operation")
	ErrTaxonomyRef      = errors.New("overrides: unresolved taxonomy reference")
	ErrMissingEvidence  = errors.New("overrides: operation carries no evidence")
	ErrUnknownTarget    = errors.New("overrides: target not found in artifact")
	ErrContradiction    = errors.New("overrides: contradiction after application")
	ErrInvalidInput     = errors.New("overrides: invalid input")
)

var reasons = map[error]string{
	ErrSchemaVersion:    "schema_version",
	ErrStaleBase:        "stale_base",
	ErrTaxonomyMismatch: "taxonomy_mismatch",
	ErrDuplicateTarget:  "duplicate_target",
	ErrUnsupportedOp:    "unsupported_op",
	ErrTaxonomyRef:      "taxonomy_ref",
	ErrMissingEvidence:  "missing_evidence",
	ErrUnknownTarget:    "unknown_target",
	ErrContradiction:    "contradiction",
	ErrInvalidInput:     "invalid_input",
}

// Error describes why a batch was rejected. Op is the index of the offending
// operation, or -1 for batch-level failures.
type Error struct {
	Op     int
	Target *contracts.OverrideTarget
	Err    error
	Cause  error
	Detail string
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Op >= 0 {
		msg = fmt.Sprintf("%s (operation %d", msg, e.Op)
		if e.Target != nil {
			msg += fmt.Sprintf(", %s/%s", e.Target.AbilityID, e.Target.EffectID)
		}
		msg += ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Reason names the rejection rule in snake_case, for metrics and logs.
func (e *Error) Reason() string {
	if r, ok := reasons[e.Err]; ok {
		return r
	}
	return "unknown"
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func batchErr(sentinel error, detail string) *Error {
	return &Error{Op: -1, Err: sentinel, Detail: detail}
}

func opErr(i int, op *contracts.OverrideOperation, sentinel error, detail string) *Error {
	t := op.Target
	return &Error{Op: i, Target: &t, Err: sentinel, Detail: detail}
}
