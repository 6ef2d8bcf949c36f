package timeline

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/buildtl/internal/domain"
	"github.com/vburojevic/buildtl/internal/store"
	"github.com/vburojevic/buildtl/internal/trace"
)

// Pipeline names which hook events the host delivers
type Pipeline string

const (
	// PipelineModern delivers compilation and unit start/finish
	PipelineModern Pipeline = "modern"
	// PipelineLegacy has no compilation start/finish; both are inferred
	PipelineLegacy Pipeline = "legacy"
	// PipelineFinishOnly delivers only unit finish; unit starts are estimated
	PipelineFinishOnly Pipeline = "finish-only"
)

// Retention decides what happens to history when a new pass starts
type Retention string

const (
	RetentionAppend  Retention = "append"
	RetentionReplace Retention = "replace"
)

// Defaults
const (
	DefaultContinuationWindow = 5 * time.Second
	DefaultImplausibleSpan    = 30 * time.Minute
	DefaultClockSkew          = 50 * time.Millisecond
	DefaultMaxIterations      = 10
)

// Options configure a Recorder
type Options struct {
	Storage store.Storage
	Clock   clock.Clock
	Logger  *zap.Logger

	// ContinuationWindow: a compilation starting this soon after the last
	// reload continues the current iteration instead of opening a new one.
	ContinuationWindow time.Duration
	// ImplausibleSpan: an iteration longer than this is discarded.
	ImplausibleSpan time.Duration
	// ClockSkew tolerated between phase and unit timestamps.
	ClockSkew time.Duration

	Retention     Retention
	MaxIterations int // 0 keeps everything
	Pipeline      Pipeline

	// Trace, with TracePath, merges the trace artifact on compilation finish
	Trace     *trace.Ingestor
	TracePath string

	// Callbacks run with the recorder's write lock held and must not call back into it
	OnAnomaly   func(Anomaly)
	OnIteration func(domain.IterationChange)
}

func (o Options) withDefaults() Options {
	if o.Storage == nil {
		o.Storage = store.NewMemoryStorage()
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.ContinuationWindow <= 0 {
		o.ContinuationWindow = DefaultContinuationWindow
	}
	if o.ImplausibleSpan <= 0 {
		o.ImplausibleSpan = DefaultImplausibleSpan
	}
	if o.ClockSkew < 0 {
		o.ClockSkew = 0
	}
	if o.Retention == "" {
		o.Retention = RetentionAppend
	}
	if o.MaxIterations < 0 {
		o.MaxIterations = 0
	}
	if o.Pipeline == "" {
		o.Pipeline = PipelineModern
	}
	return o
}
