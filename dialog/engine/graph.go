package engine

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/voxline/custodyline/dialog/nodes"
)

func (e *Engine) compileHandleEventGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_event",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateEvent(in, e.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_event: %w", err)
	}

	if err := graph.AddLambdaNode("ensure_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.EnsureSession(ctx, in, e.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node ensure_session: %w", err)
	}

	if err := graph.AddLambdaNode("apply_transition",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ApplyTransition(ctx, in, e.store, e.machine)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node apply_transition: %w", err)
	}

	if err := graph.AddLambdaNode("perform_lookup",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PerformLookup(ctx, in, e.store, e.machine, e.orch)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node perform_lookup: %w", err)
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Finalize(ctx, in, e.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}

	if err := graph.AddLambdaNode("format_prompt",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FormatPrompt(in, e.formatter)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node format_prompt: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_event"},
		{"validate_event", "ensure_session"},
		{"ensure_session", "apply_transition"},
		{"apply_transition", "perform_lookup"},
		{"perform_lookup", "finalize"},
		{"finalize", "format_prompt"},
		{"format_prompt", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("engine.handle_event"))
	if err != nil {
		return nil, fmt.Errorf("compile event graph: %w", err)
	}
	return runner, nil
}
