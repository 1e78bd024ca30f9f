// Package tools implements the process-wide tool registry (C1): a
// declarative, typed list of tool descriptors built once at startup,
// validated argument dispatch, and cost-budget enforcement. It is the
// single dispatch point between the executor's parsed ToolCall and both
// the drawing-skill catalog (internal/skills) and the front-end display
// tools.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/crit308/tutorcore/internal/tutor"
	"github.com/crit308/tutorcore/internal/whiteboard"
)

// Name is the strong type for a registered tool identifier, carried
// through tutor.ToolCall.Name as a plain string at the wire boundary and
// wrapped here to avoid accidentally mixing it with free-form strings,
// mirroring the teacher's runtime/agent/tools.Ident convention.
type Name string

// Cost tags a tool's expense for the high-cost-call budget (§4.1).
type Cost string

const (
	CostLow    Cost = "low"
	CostMedium Cost = "medium"
	CostHigh   Cost = "high"
)

// Result is what a tool invocation returns to the executor: an opaque
// payload (serialized back to the LLM as the tool result) plus zero or
// more whiteboard actions to broadcast and fold into the session's
// document (§4.7 dispatch step 4, "results may be a structured payload, or
// a (payload, whiteboard_actions) tuple").
type Result struct {
	Payload  any
	Actions  []whiteboard.Action
	Ephemeral []whiteboard.CanvasObject
}

// Invoke is a tool's typed implementation. It receives the raw JSON args
// (already checked against the descriptor's schema, when it has one) and
// unmarshals them into its own argument type.
type Invoke func(ctx context.Context, tc *tutor.Context, rawArgs json.RawMessage) (Result, error)

// Descriptor is one entry in the registry: a tool's dispatch metadata plus
// its compiled argument schema (mirrors the teacher's ToolSpec shape,
// trimmed to what this spec's single-process dispatcher needs).
type Descriptor struct {
	Name        Name
	Description string
	Cost        Cost
	// SchemaDoc is the raw JSON Schema document describing the tool's
	// argument shape; compiled once at registry-build time so a malformed
	// schema fails fast at process start rather than per call.
	SchemaDoc json.RawMessage
	schema    *jsonschema.Schema
	Fn        Invoke
}

// Registry is the process-wide map of tool name -> descriptor, built once
// at startup from an explicit, typed list (replacing the reference's
// import-side-effect registration, per REDESIGN FLAGS).
type Registry struct {
	descriptors map[Name]Descriptor
	order       []Name
}

// NewRegistry compiles every descriptor's schema and returns the built
// registry, or an error naming the first descriptor whose schema document
// fails to compile.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	compiler := jsonschema.NewCompiler()
	r := &Registry{descriptors: make(map[Name]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if len(d.SchemaDoc) > 0 {
			var schemaDoc any
			if err := json.Unmarshal(d.SchemaDoc, &schemaDoc); err != nil {
				return nil, fmt.Errorf("tool %s: unmarshal schema: %w", d.Name, err)
			}
			url := "mem://tools/" + string(d.Name) + ".json"
			if err := compiler.AddResource(url, schemaDoc); err != nil {
				return nil, fmt.Errorf("tool %s: add schema resource: %w", d.Name, err)
			}
			schema, err := compiler.Compile(url)
			if err != nil {
				return nil, fmt.Errorf("tool %s: compile schema: %w", d.Name, err)
			}
			d.schema = schema
		}
		if _, exists := r.descriptors[d.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", d.Name)
		}
		r.descriptors[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// List returns every registered tool name in registration order.
func (r *Registry) List() []Name {
	out := make([]Name, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptor looks up a tool's descriptor without invoking it.
func (r *Registry) Descriptor(name Name) (Descriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// Invoke validates rawArgs against the tool's compiled schema, then
// dispatches to its Invoke function. Schema validation failures and
// unknown tool names are wrapped in tutor.ErrToolInput /
// tutor.ErrUnknownTool respectively so the executor can route them to an
// LLM-visible feedback message instead of a client-facing error envelope.
func (r *Registry) Invoke(ctx context.Context, name Name, tc *tutor.Context, rawArgs json.RawMessage) (Result, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", tutor.ErrUnknownTool, name)
	}
	if d.schema != nil {
		var instance any
		if len(rawArgs) == 0 {
			instance = map[string]any{}
		} else if err := json.Unmarshal(rawArgs, &instance); err != nil {
			return Result{}, fmt.Errorf("%w: %s: invalid json: %v", tutor.ErrToolInput, name, err)
		}
		if err := d.schema.Validate(instance); err != nil {
			return Result{}, fmt.Errorf("%w: %s: %v", tutor.ErrToolInput, name, err)
		}
	}
	if d.Cost == CostHigh && !tc.CanUseHighCost() {
		return Result{}, fmt.Errorf("%w: %s: high-cost call budget exhausted", tutor.ErrToolInput, name)
	}
	res, err := d.Fn(ctx, tc, rawArgs)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", tutor.ErrToolExecution, name, err)
	}
	if d.Cost == CostHigh {
		tc.RecordHighCostCall()
	}
	return res, nil
}

// DegradeIfOverBudget filters candidates down to tools still affordable
// given tc's remaining high-cost budget: once the cap is reached, any
// candidate tagged CostHigh is dropped so the executor's prompt composer
// can steer the LLM toward low/medium alternatives instead (§4.1).
func (r *Registry) DegradeIfOverBudget(tc *tutor.Context, candidates []Name) []Name {
	if tc.CanUseHighCost() {
		return candidates
	}
	out := make([]Name, 0, len(candidates))
	for _, name := range candidates {
		if d, ok := r.descriptors[name]; ok && d.Cost == CostHigh {
			continue
		}
		out = append(out, name)
	}
	return out
}
