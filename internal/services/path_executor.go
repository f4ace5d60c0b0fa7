package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ontoroute/ontoroute/internal/clients/resource"
	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/pkg/mapperr"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

// ExecuteOptions tune one path execution.
type ExecuteOptions struct {
	BatchSize            int
	MaxConcurrentBatches int
	// MinConfidence excludes results below the floor from the resolved set;
	// they are retained on the outcome as filtered results.
	MinConfidence float64
	// MaxHopCount bounds chained conversions per identifier; 0 means
	// unlimited. An identifier refused further chaining is marked
	// unresolved with a hop-limit reason.
	MaxHopCount int
	// CacheNotBefore treats cache entries created before it as misses.
	CacheNotBefore *time.Time
	SkipCache      bool
}

func (o ExecuteOptions) withDefaults() ExecuteOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 250
	}
	if o.MaxConcurrentBatches <= 0 {
		o.MaxConcurrentBatches = 4
	}
	return o
}

// PathExecutor runs one path's ordered steps over a batch of identifiers.
// The returned map always carries one outcome per requested identifier.
type PathExecutor interface {
	ExecutePath(ctx context.Context, path *types.ExecutablePath, identifiers []string, sourceOntology, targetOntology string, opts ExecuteOptions) (map[string]*types.Outcome, error)
}

type pathExecutor struct {
	log          *logger.Logger
	registry     *resource.Registry
	cache        CacheManager
	retryCeiling int
	backoffBase  time.Duration
}

// NewPathExecutor wires the executor. cache may be nil, in which case every
// identifier goes straight to the resources.
func NewPathExecutor(baseLog *logger.Logger, registry *resource.Registry, cache CacheManager, retryCeiling int, backoffBase time.Duration) PathExecutor {
	if retryCeiling < 0 {
		retryCeiling = 0
	}
	if backoffBase <= 0 {
		backoffBase = 500 * time.Millisecond
	}
	return &pathExecutor{
		log:          baseLog.With("service", "PathExecutor"),
		registry:     registry,
		cache:        cache,
		retryCeiling: retryCeiling,
		backoffBase:  backoffBase,
	}
}

func (e *pathExecutor) ExecutePath(ctx context.Context, path *types.ExecutablePath, identifiers []string, sourceOntology, targetOntology string, opts ExecuteOptions) (map[string]*types.Outcome, error) {
	if path == nil || len(path.Steps) == 0 || sourceOntology == "" || targetOntology == "" {
		return nil, mapperr.ErrInvalidArgument
	}
	opts = opts.withDefaults()
	ids := dedupe(identifiers)
	results := make(map[string]*types.Outcome, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	// Every step's client must exist before any identifier is attempted:
	// a missing or broken client means nothing on this path can succeed.
	clients := make([]resource.Client, len(path.Steps))
	for i, step := range path.Steps {
		c, ok := e.registry.Get(step.Resource.Name)
		if !ok {
			return nil, &mapperr.ClientInitError{
				Resource: step.Resource.Name,
				Err:      errors.New("not registered"),
			}
		}
		clients[i] = c
	}

	pending := ids
	if e.cache != nil && !opts.SkipCache {
		hits, misses := e.cache.CheckCache(ctx, ids, sourceOntology, targetOntology, opts.CacheNotBefore)
		for id, out := range hits {
			results[id] = out
		}
		pending = misses
	}
	if len(pending) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxConcurrentBatches)

	for _, batch := range partition(pending, opts.BatchSize) {
		batch := batch
		g.Go(func() error {
			out := e.executeBatch(gctx, path, clients, batch, opts)
			if e.cache != nil && !opts.SkipCache {
				e.cache.WriteCache(gctx, out, sourceOntology, targetOntology)
			}
			mu.Lock()
			for id, o := range out {
				results[id] = o
			}
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// track is the in-flight state of one original identifier inside a batch.
type track struct {
	current    []string
	confidence float64
	hops       int
	provenance []types.ProvenanceRecord
}

func (e *pathExecutor) executeBatch(ctx context.Context, path *types.ExecutablePath, clients []resource.Client, batch []string, opts ExecuteOptions) map[string]*types.Outcome {
	out := make(map[string]*types.Outcome, len(batch))
	active := make(map[string]*track, len(batch))
	order := make([]string, 0, len(batch))
	for _, id := range batch {
		active[id] = &track{current: []string{id}, confidence: 1.0}
		order = append(order, id)
	}

	finalize := func(id string, status types.OutcomeStatus, reason string) {
		tr := active[id]
		out[id] = &types.Outcome{
			Identifier: id,
			Status:     status,
			Reason:     reason,
			TargetIDs:  []string{},
			HopCount:   tr.hops,
			Direction:  path.Direction(),
			Provenance: tr.provenance,
		}
		delete(active, id)
	}

	for i, step := range path.Steps {
		if len(active) == 0 {
			break
		}

		// Refuse further chaining once an identifier has spent its hop
		// budget; silently truncating the chain would misrepresent the
		// result.
		if opts.MaxHopCount > 0 {
			for _, id := range order {
				tr, ok := active[id]
				if ok && tr.hops >= opts.MaxHopCount {
					finalize(id, types.StatusUnresolved, types.ReasonHopLimit)
				}
			}
			if len(active) == 0 {
				break
			}
		}

		inputs := make([]string, 0, len(active))
		seen := map[string]bool{}
		for _, id := range order {
			tr, ok := active[id]
			if !ok {
				continue
			}
			for _, cur := range tr.current {
				if !seen[cur] {
					seen[cur] = true
					inputs = append(inputs, cur)
				}
			}
		}

		mapped, perIDErrs, err := e.callStep(ctx, path, step, clients[i], inputs)
		if err != nil {
			// The whole bulk call failed after retries. Every identifier
			// still active in this batch gets a per-identifier failure;
			// other batches are unaffected.
			e.log.Warn("resource call failed for batch",
				"resource", step.Resource.Name,
				"path", path.Name,
				"identifiers", len(active),
				"error", err,
			)
			for _, id := range order {
				if _, ok := active[id]; ok {
					finalize(id, types.StatusFailed, types.ReasonClientError)
				}
			}
			break
		}

		for _, id := range order {
			tr, ok := active[id]
			if !ok {
				continue
			}
			next, stepConf, failedReason := advance(tr.current, mapped, perIDErrs)
			if failedReason != "" {
				e.log.Warn("resource call failed for identifier",
					"error", &mapperr.ClientExecutionError{
						Resource:   step.Resource.Name,
						Identifier: id,
						Err:        errors.New(failedReason),
					},
				)
				finalize(id, types.StatusFailed, types.ReasonClientError)
				continue
			}
			if len(next) == 0 {
				// Absent from this step's output: carried through
				// explicitly as unresolved, never silently dropped.
				finalize(id, types.StatusUnresolved, types.ReasonNoMatch)
				continue
			}
			tr.current = next
			tr.confidence *= stepConf
			tr.hops++
			tr.provenance = append(tr.provenance, types.ProvenanceRecord{
				PathID:       path.ID.String(),
				PathName:     path.Name,
				ResourceName: step.Resource.Name,
			})
		}
	}

	for _, id := range order {
		tr, ok := active[id]
		if !ok {
			continue
		}
		o := &types.Outcome{
			Identifier: id,
			TargetIDs:  append([]string(nil), tr.current...),
			Confidence: tr.confidence,
			HopCount:   tr.hops,
			Direction:  path.Direction(),
			Provenance: tr.provenance,
		}
		if opts.MinConfidence > 0 && tr.confidence < opts.MinConfidence {
			for _, t := range tr.current {
				o.Filtered = append(o.Filtered, types.FilteredResult{TargetID: t, Confidence: tr.confidence})
			}
			o.TargetIDs = []string{}
			o.Confidence = 0
			o.Status = types.StatusUnresolved
			o.Reason = types.ReasonBelowMinConfidence
		} else {
			o.Status = types.StatusResolved
		}
		out[id] = o
	}
	return out
}

// callStep performs one resource call with retry. For reversed paths it
// prefers the resource's specialized reverse capability; otherwise it makes
// the forward call over the target-side batch and inverts the returned
// source→target map, so identifiers absent from the forward map get an
// explicit empty result.
func (e *pathExecutor) callStep(ctx context.Context, path *types.ExecutablePath, step types.ExecutableStep, client resource.Client, inputs []string) (map[string]resource.MappedValue, map[string]string, error) {
	if path.Reversed {
		if rm, ok := client.(resource.ReverseMapper); ok && step.Resource.SupportsReverse {
			var rr resource.ReverseResult
			err := e.withRetry(ctx, step.Resource.Name, func(c context.Context) error {
				var callErr error
				rr, callErr = rm.ReverseMapIdentifiers(c, inputs)
				return callErr
			})
			if err != nil {
				return nil, nil, err
			}
			mapped := make(map[string]resource.MappedValue, len(inputs))
			for _, in := range inputs {
				mapped[in] = resource.MappedValue{
					TargetIDs:  append([]string(nil), rr.InputToPrimary[in]...),
					Confidence: 1.0,
				}
			}
			perIDErrs := make(map[string]string, len(rr.Errors))
			for _, re := range rr.Errors {
				perIDErrs[re.InputID] = re.Reason
			}
			return mapped, perIDErrs, nil
		}
		forward, err := e.mapWithRetry(ctx, step, client, inputs)
		if err != nil {
			return nil, nil, err
		}
		return invert(forward, inputs), nil, nil
	}

	forward, err := e.mapWithRetry(ctx, step, client, inputs)
	if err != nil {
		return nil, nil, err
	}
	return forward, nil, nil
}

func (e *pathExecutor) mapWithRetry(ctx context.Context, step types.ExecutableStep, client resource.Client, inputs []string) (map[string]resource.MappedValue, error) {
	var out map[string]resource.MappedValue
	err := e.withRetry(ctx, step.Resource.Name, func(c context.Context) error {
		var callErr error
		out, callErr = client.MapIdentifiers(c, inputs, step.Config)
		return callErr
	})
	return out, err
}

func (e *pathExecutor) withRetry(ctx context.Context, resourceName string, fn func(context.Context) error) error {
	backoff := e.backoffBase
	var err error
	for attempt := 0; attempt <= e.retryCeiling; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == e.retryCeiling {
			break
		}
		e.log.Warn("resource call retrying",
			"resource", resourceName,
			"attempt", attempt+1,
			"max_retries", e.retryCeiling,
			"sleep", backoff.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// advance computes one identifier's next id set from a step's mapped output.
// The step confidence is the best confidence among the current ids that
// mapped; a current id with a recorded per-id error fails the identifier
// only when nothing else mapped.
func advance(current []string, mapped map[string]resource.MappedValue, perIDErrs map[string]string) (next []string, stepConf float64, failedReason string) {
	seen := map[string]bool{}
	erred := ""
	for _, cur := range current {
		if reason, ok := perIDErrs[cur]; ok && reason != "" {
			if erred == "" {
				erred = reason
			}
			continue
		}
		mv, ok := mapped[cur]
		if !ok {
			continue
		}
		conf := mv.Confidence
		if conf <= 0 {
			conf = 1.0
		}
		if len(mv.TargetIDs) > 0 && conf > stepConf {
			stepConf = conf
		}
		for _, t := range mv.TargetIDs {
			if t != "" && !seen[t] {
				seen[t] = true
				next = append(next, t)
			}
		}
	}
	if len(next) == 0 && erred != "" {
		return nil, 0, erred
	}
	if stepConf == 0 {
		stepConf = 1.0
	}
	return next, stepConf, ""
}

// invert turns a forward source→target map into target→sources over the
// requested inputs. One source mapping to several requested targets appears
// under each; inputs nothing maps to get an explicit empty result.
func invert(forward map[string]resource.MappedValue, inputs []string) map[string]resource.MappedValue {
	sources := make(map[string][]string, len(inputs))
	conf := make(map[string]float64, len(inputs))
	for src, mv := range forward {
		c := mv.Confidence
		if c <= 0 {
			c = 1.0
		}
		for _, t := range mv.TargetIDs {
			sources[t] = append(sources[t], src)
			if c > conf[t] {
				conf[t] = c
			}
		}
	}
	out := make(map[string]resource.MappedValue, len(inputs))
	for _, in := range inputs {
		srcs := append([]string(nil), sources[in]...)
		sort.Strings(srcs)
		c := conf[in]
		if c <= 0 {
			c = 1.0
		}
		out[in] = resource.MappedValue{TargetIDs: srcs, Confidence: c}
	}
	return out
}

func partition(ids []string, size int) [][]string {
	if size <= 0 {
		return [][]string{ids}
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
