package nodes

import (
	"context"
	"fmt"

	"github.com/tomtomtong/comfyTrade/graph"
	"github.com/tomtomtong/comfyTrade/node"
)

// conditionType compares its number input against a threshold and gates the
// flow on the result. It never mutates trade state.
func conditionType() *node.Type {
	return &node.Type{
		ID:       "condition",
		Title:    "Conditional Check",
		Category: "logic",
		Inputs:   []graph.PortKind{graph.PortTrigger, graph.PortNumber},
		Outputs:  []graph.PortKind{graph.PortTrigger},
		DefaultParams: graph.Params{
			"comparison": "gt",
			"threshold":  0.0,
		},
		Execute: func(_ context.Context, n *graph.Node, input any, _ node.ExecContext) (node.Outcome, error) {
			value, ok := toFloat(input)
			if !ok {
				return node.Halt(), fmt.Errorf("no numeric input value")
			}

			result := compare(n.Params.String("comparison", "gt"), value, n.Params.Float("threshold", 0))
			n.OutputData = result
			if !result {
				return node.Halt(), nil
			}
			return node.ContinueAll(), nil
		},
		Validate: func(n *graph.Node) error {
			if !validComparison(n.Params.String("comparison", "gt")) {
				return fmt.Errorf("unknown comparison %q", n.Params.String("comparison", ""))
			}
			return nil
		},
	}
}

// conditionRouterType evaluates the same comparison but always continues,
// routing down output 0 on true and output 1 on false.
func conditionRouterType() *node.Type {
	return &node.Type{
		ID:       "condition-router",
		Title:    "Condition Router",
		Category: "logic",
		Inputs:   []graph.PortKind{graph.PortTrigger, graph.PortNumber},
		Outputs:  []graph.PortKind{graph.PortTrigger, graph.PortTrigger},
		DefaultParams: graph.Params{
			"comparison": "gt",
			"threshold":  0.0,
		},
		Execute: func(_ context.Context, n *graph.Node, input any, _ node.ExecContext) (node.Outcome, error) {
			value, ok := toFloat(input)
			if !ok {
				return node.Halt(), fmt.Errorf("no numeric input value")
			}

			result := compare(n.Params.String("comparison", "gt"), value, n.Params.Float("threshold", 0))
			n.OutputData = result
			if result {
				return node.Route(0), nil
			}
			return node.Route(1), nil
		},
		Validate: func(n *graph.Node) error {
			if !validComparison(n.Params.String("comparison", "gt")) {
				return fmt.Errorf("unknown comparison %q", n.Params.String("comparison", ""))
			}
			return nil
		},
	}
}
