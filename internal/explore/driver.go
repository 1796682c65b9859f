package explore

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/classify"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcp"
)

const tracerName = "github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/explore"

// Caller dispatches a tool call. It never fails; failures are error results.
type Caller interface {
	CallTool(ctx context.Context, name string, arguments map[string]any) *mcp.ToolResult
}

// Config parameterizes a round.
type Config struct {
	MetaTypes       []string
	PredefinedTypes []string
	NameMasks       []string
	PredefinedMasks []string

	// PredefinedBias is the probability of drawing the meta-type from
	// PredefinedTypes instead of MetaTypes.
	PredefinedBias float64
	// PredefinedProbability gates the predefined steps for capable types.
	PredefinedProbability float64

	MaxItemsMin int
	MaxItemsMax int
	// DetailMin and DetailMax bound how many predefined items are sampled.
	DetailMin int
	DetailMax int
}

// DefaultConfig returns the stock exploration parameters.
func DefaultConfig() Config {
	return Config{
		MetaTypes:             MetaTypes,
		PredefinedTypes:       PredefinedTypes,
		NameMasks:             NameMasks,
		PredefinedMasks:       PredefinedMasks,
		PredefinedBias:        0.7,
		PredefinedProbability: 1.0,
		MaxItemsMin:           5,
		MaxItemsMax:           20,
		DetailMin:             1,
		DetailMax:             3,
	}
}

// Options wires a Driver's collaborators. Only Classifier is required
// in practice; the rest default to no-ops.
type Options struct {
	Classifier *classify.Classifier
	Recorder   Recorder
	Observer   Observer
	Validator  *ArgValidator
	Logger     *slog.Logger
	Tracer     trace.Tracer
}

// Driver runs exploration rounds against a Caller.
type Driver struct {
	caller     Caller
	cfg        Config
	classifier *classify.Classifier
	recorder   Recorder
	observer   Observer
	validator  *ArgValidator
	logger     *slog.Logger
	tracer     trace.Tracer
	predefined map[string]bool
}

// NewDriver creates a driver. Empty Config lists fall back to the defaults.
func NewDriver(caller Caller, cfg Config, opts Options) *Driver {
	def := DefaultConfig()
	if len(cfg.MetaTypes) == 0 {
		cfg.MetaTypes = def.MetaTypes
	}
	if len(cfg.PredefinedTypes) == 0 {
		cfg.PredefinedTypes = def.PredefinedTypes
	}
	if len(cfg.NameMasks) == 0 {
		cfg.NameMasks = def.NameMasks
	}
	if len(cfg.PredefinedMasks) == 0 {
		cfg.PredefinedMasks = def.PredefinedMasks
	}
	if cfg.MaxItemsMax < cfg.MaxItemsMin {
		cfg.MaxItemsMax = cfg.MaxItemsMin
	}
	if cfg.DetailMin < 1 {
		cfg.DetailMin = 1
	}
	if cfg.DetailMax < cfg.DetailMin {
		cfg.DetailMax = cfg.DetailMin
	}

	d := &Driver{
		caller:     caller,
		cfg:        cfg,
		classifier: opts.Classifier,
		recorder:   opts.Recorder,
		observer:   opts.Observer,
		validator:  opts.Validator,
		logger:     opts.Logger,
		tracer:     opts.Tracer,
		predefined: make(map[string]bool, len(cfg.PredefinedTypes)),
	}
	if d.classifier == nil {
		d.classifier = classify.New(nil)
	}
	if d.recorder == nil {
		d.recorder = nopRecorder{}
	}
	if d.observer == nil {
		d.observer = Observers(nil)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(tracerName)
	}
	for _, t := range cfg.PredefinedTypes {
		d.predefined[t] = true
	}
	return d
}

// RoundRNG returns the random source for one round. Rounds draw from
// independent streams, so the choices of round k+1 do not depend on how
// far round k got.
func RoundRNG(seed uint64, round int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(round)))
}

// SelectType draws a meta-type, biased toward predefined-capable types.
func (d *Driver) SelectType(rng *rand.Rand) string {
	if rng.Float64() < d.cfg.PredefinedBias {
		return pick(rng, d.cfg.PredefinedTypes)
	}
	return pick(rng, d.cfg.MetaTypes)
}

// Round runs one round. Cancellation of ctx is observed between calls;
// a call already in flight runs to completion.
func (d *Driver) Round(ctx context.Context, n int, rng *rand.Rand) RoundResult {
	callCtx := context.WithoutCancel(ctx)
	callCtx, span := d.tracer.Start(callCtx, "explore.round", trace.WithAttributes(attribute.Int("round", n)))
	defer span.End()

	res := RoundResult{Round: n}
	defer func() {
		span.SetAttributes(
			attribute.String("meta_type", res.MetaType),
			attribute.String("status", res.Status.String()),
			attribute.Int("calls", res.Calls))
		d.observer.RoundCompleted(res)
	}()

	res.MetaType = d.SelectType(rng)
	maxItems := between(rng, d.cfg.MaxItemsMin, d.cfg.MaxItemsMax)

	out := d.call(callCtx, &res, StepListObjects, ToolListMetadataObjects, map[string]any{
		"metaType": res.MetaType,
		"nameMask": pick(rng, d.cfg.NameMasks),
		"maxItems": maxItems,
	})
	switch out.Verdict {
	case classify.Error:
		res.Status = RoundListingError
		return res
	case classify.Skipped:
		res.Status = RoundListingSkipped
		return res
	}

	objects := ListingOf(out.Payload).ObjectRefs()
	if len(objects) == 0 {
		res.Status = RoundNoObjects
		return res
	}
	res.Object = objects[rng.IntN(len(objects))].Name

	if ctx.Err() != nil {
		res.Status = RoundCancelled
		return res
	}
	// The structure verdict is recorded but never gates the round.
	d.call(callCtx, &res, StepStructure, ToolGetMetadataStructure, map[string]any{
		"metaType": res.MetaType,
		"name":     res.Object,
	})

	if !d.predefined[res.MetaType] || rng.Float64() >= d.cfg.PredefinedProbability {
		res.Status = RoundCompleted
		return res
	}
	if ctx.Err() != nil {
		res.Status = RoundCancelled
		return res
	}

	out = d.call(callCtx, &res, StepListPredefined, ToolListPredefinedData, map[string]any{
		"metaType":       res.MetaType,
		"name":           res.Object,
		"predefinedMask": pick(rng, d.cfg.PredefinedMasks),
		"maxItems":       maxItems,
	})
	switch out.Verdict {
	case classify.Error:
		res.Status = RoundPredefinedError
		return res
	case classify.Skipped:
		res.Status = RoundPredefinedSkipped
		return res
	}

	items := ListingOf(out.Payload).PredefinedRefs()
	k := min(len(items), between(rng, d.cfg.DetailMin, d.cfg.DetailMax))
	for _, idx := range rng.Perm(len(items))[:k] {
		if ctx.Err() != nil {
			res.Status = RoundCancelled
			return res
		}
		d.call(callCtx, &res, StepPredefinedDetail, ToolGetPredefinedData, map[string]any{
			"metaType":       res.MetaType,
			"name":           res.Object,
			"predefinedName": items[idx].Name,
		})
	}
	res.Status = RoundCompleted
	return res
}

func (d *Driver) call(ctx context.Context, res *RoundResult, step Step, tool string, args map[string]any) classify.Outcome {
	ctx, span := d.tracer.Start(ctx, tool, trace.WithAttributes(
		attribute.Int("round", res.Round),
		attribute.String("step", step.String())))
	defer span.End()

	var argErr error
	if d.validator != nil {
		if argErr = d.validator.Validate(tool, args); argErr != nil {
			d.logger.Warn("arguments do not match tool schema", "tool", tool, "round", res.Round, "error", argErr)
		}
	}

	start := time.Now()
	result := d.caller.CallTool(ctx, tool, args)
	elapsed := time.Since(start)

	out := d.classifier.Classify(result)
	d.recorder.Record(tool, out.Verdict)
	res.Calls++

	span.SetAttributes(attribute.String("verdict", out.Verdict.String()))
	if out.Verdict == classify.Error {
		span.SetStatus(codes.Error, result.FirstText())
	}
	d.logger.Debug("tool call", "round", res.Round, "tool", tool, "verdict", out.Verdict, "duration", elapsed)

	d.observer.CallCompleted(CallRecord{
		Round:     res.Round,
		Step:      step,
		Tool:      tool,
		Arguments: args,
		Result:    result,
		Outcome:   out,
		ArgError:  argErr,
		Duration:  elapsed,
	})
	return out
}

func pick(rng *rand.Rand, xs []string) string {
	if len(xs) == 0 {
		return ""
	}
	return xs[rng.IntN(len(xs))]
}

// between returns a uniform integer in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}
