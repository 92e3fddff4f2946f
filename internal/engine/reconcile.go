package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/azlab-io/azlab/internal/ir"
	"github.com/azlab-io/azlab/internal/logging"
	"github.com/azlab-io/azlab/internal/provider"
)

// Reconciler realizes a set of resource specs against a provider, in
// dependency order. Execution is strictly sequential unless Parallelism is
// raised, in which case independent graph branches run concurrently but a
// spec never starts before all its dependency outputs are available.
type Reconciler struct {
	Provider    provider.Provider
	Target      provider.Target
	Parallelism int           // <= 1 means sequential
	CallTimeout time.Duration // per platform call, polling included
	Retry       *RetryPolicy
}

// Event reports progress on a single resource.
type Event struct {
	Name     string
	Status   string // "started", "created", "unchanged", "failed", "skipped"
	Duration time.Duration
	Err      error
}

// Callback receives progress events if set.
type Callback func(Event)

// RunResult summarizes a reconciliation pass. Outputs contains the
// deployment output of every spec that was realized, keyed by logical name.
type RunResult struct {
	Created   int
	Unchanged int
	Outputs   map[string]*ir.DeploymentOutput
}

// Run reconciles specs in topological order. A cycle or invalid reference
// is rejected before any mutating call. A reconcile failure aborts the
// remaining sequence; already-created resources are preserved and the
// partial RunResult is returned alongside the error.
func (r *Reconciler) Run(ctx context.Context, specs []*ir.ResourceSpec, cb Callback) (*RunResult, error) {
	dag, err := BuildDAG(specs)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*ir.ResourceSpec, len(specs))
	for _, spec := range specs {
		byName[spec.LogicalName] = spec
	}

	result := &RunResult{Outputs: make(map[string]*ir.DeploymentOutput, len(specs))}

	if r.Parallelism > 1 {
		return result, r.runParallel(ctx, dag, byName, result, cb)
	}

	var mu sync.Mutex
	for _, name := range dag.CreationOrder() {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("reconcile cancelled: %w", err)
		}
		if err := r.reconcileOne(ctx, byName[name], result, &mu, cb); err != nil {
			return result, err
		}
	}
	return result, nil
}

// reconcileOne resolves references, applies the per-call deadline and retry
// policy, and records the output under the result lock.
func (r *Reconciler) reconcileOne(ctx context.Context, spec *ir.ResourceSpec, result *RunResult, mu *sync.Mutex, cb Callback) error {
	name := spec.LogicalName
	start := time.Now()
	emit(cb, Event{Name: name, Status: "started"})

	mu.Lock()
	resolved, err := resolveSpec(spec, result.Outputs)
	mu.Unlock()
	if err != nil {
		emit(cb, Event{Name: name, Status: "failed", Duration: time.Since(start), Err: err})
		return err
	}

	timeout := r.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out *ir.DeploymentOutput
	var created bool
	err = RetryWithBackoff(callCtx, r.Retry, func() error {
		var callErr error
		out, created, callErr = r.Provider.Reconcile(callCtx, r.Target, resolved)
		return callErr
	}, IsTransientError)
	if err != nil {
		wrapped := &ir.PlatformCallFailedError{Op: fmt.Sprintf("reconcile %s", name), Cause: err}
		emit(cb, Event{Name: name, Status: "failed", Duration: time.Since(start), Err: wrapped})
		return wrapped
	}

	mu.Lock()
	result.Outputs[name] = out
	if created {
		result.Created++
	} else {
		result.Unchanged++
	}
	mu.Unlock()

	status := "unchanged"
	if created {
		status = "created"
	}
	logging.Debug("reconciled resource", "name", name, "kind", spec.Kind, "created", created)
	emit(cb, Event{Name: name, Status: status, Duration: time.Since(start)})
	return nil
}

// runParallel reconciles independent graph branches concurrently with a
// bounded worker pool, aggregating partial failures instead of stopping at
// the first. Dependents of a failed spec are skipped.
func (r *Reconciler) runParallel(ctx context.Context, dag *DAG, byName map[string]*ir.ResourceSpec, result *RunResult, cb Callback) error {
	var mu sync.Mutex

	completed := make(map[string]bool)
	failed := make(map[string]bool)
	stateMu := sync.Mutex{}
	stateCond := sync.NewCond(&stateMu)
	var errs []error
	sem := make(chan struct{}, r.Parallelism)

	var wg sync.WaitGroup
	for _, name := range dag.CreationOrder() {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			stateMu.Lock()
			for {
				ready := true
				depFailed := false
				for _, dep := range dag.Dependencies(name) {
					if failed[dep] {
						depFailed = true
						break
					}
					if !completed[dep] {
						ready = false
						break
					}
				}
				if depFailed {
					failed[name] = true
					stateMu.Unlock()
					stateCond.Broadcast()
					emit(cb, Event{Name: name, Status: "skipped"})
					return
				}
				if ready {
					break
				}
				stateCond.Wait()
			}
			stateMu.Unlock()

			if err := ctx.Err(); err != nil {
				stateMu.Lock()
				failed[name] = true
				errs = append(errs, fmt.Errorf("reconcile cancelled: %w", err))
				stateMu.Unlock()
				stateCond.Broadcast()
				return
			}

			sem <- struct{}{}
			err := r.reconcileOne(ctx, byName[name], result, &mu, cb)
			<-sem

			stateMu.Lock()
			if err != nil {
				failed[name] = true
				errs = append(errs, err)
			} else {
				completed[name] = true
			}
			stateMu.Unlock()
			stateCond.Broadcast()
		}(name)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%d resource(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func emit(cb Callback, ev Event) {
	if cb != nil {
		cb(ev)
	}
}

// resolveSpec returns a copy of spec with every out:// reference replaced
// by the referenced output attribute. By the time a spec is reconciled the
// creation order guarantees all its dependency outputs are present.
func resolveSpec(spec *ir.ResourceSpec, outputs map[string]*ir.DeploymentOutput) (*ir.ResourceSpec, error) {
	if len(spec.Properties) == 0 {
		return spec, nil
	}
	props, err := resolveValue(spec.Properties, outputs)
	if err != nil {
		return nil, &ir.InvalidConfigurationError{Name: spec.LogicalName, Detail: err.Error()}
	}
	resolved := *spec
	resolved.Properties = props.(map[string]any)
	return &resolved, nil
}

func resolveValue(v any, outputs map[string]*ir.DeploymentOutput) (any, error) {
	switch val := v.(type) {
	case string:
		name, attr, ok := ir.ParseRef(val)
		if !ok {
			return val, nil
		}
		out, exists := outputs[name]
		if !exists {
			return nil, fmt.Errorf("reference %q targets a resource with no output", val)
		}
		resolved, found := out.Attr(attr)
		if !found {
			return nil, fmt.Errorf("reference %q: attribute not present in output", val)
		}
		return resolved, nil
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, v := range val {
			rv, err := resolveValue(v, outputs)
			if err != nil {
				return nil, err
			}
			m[k] = rv
		}
		return m, nil
	case []any:
		s := make([]any, len(val))
		for i, v := range val {
			rv, err := resolveValue(v, outputs)
			if err != nil {
				return nil, err
			}
			s[i] = rv
		}
		return s, nil
	default:
		return val, nil
	}
}
