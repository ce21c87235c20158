package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Pipeline attribute keys.
var (
	AttrOperation = attribute.Key("majel.operation")
	AttrReason    = attribute.Key("majel.error.reason")

	AttrArtifactVersion = attribute.Key("majel.artifact.version")
	AttrBaseVersion     = attribute.Key("majel.artifact.base_version")
	AttrEffectCount     = attribute.Key("majel.artifact.effects")
	AttrUnmappedCount   = attribute.Key("majel.artifact.unmapped")

	AttrBatchID    = attribute.Key("majel.overrides.batch_id")
	AttrOperations = attribute.Key("majel.overrides.operations")

	AttrIntentID = attribute.Key("majel.crew.intent")
	AttrOfficers = attribute.Key("majel.crew.officers")
	AttrVerdict  = attribute.Key("majel.crew.verdict")
	AttrCacheHit = attribute.Key("majel.cache.hit")
)

// BuildOperation describes a build for span and metric attributes.
func BuildOperation(version string, effects, unmapped int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrArtifactVersion.String(version),
		AttrEffectCount.Int(effects),
		AttrUnmappedCount.Int(unmapped),
	}
}

// ApplyOperation describes an override batch.
func ApplyOperation(baseVersion string, operations int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrBaseVersion.String(baseVersion),
		AttrOperations.Int(operations),
	}
}

// EvaluateOperation describes a crew evaluation.
func EvaluateOperation(version, intentID string, officers int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrArtifactVersion.String(version),
		AttrIntentID.String(intentID),
		AttrOfficers.Int(officers),
	}
}

// SetSpanAttributes sets attributes on the current span.
func SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
