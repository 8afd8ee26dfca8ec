package nodes

import (
	"context"
	"fmt"

	"github.com/tomtomtong/comfyTrade/graph"
	"github.com/tomtomtong/comfyTrade/node"
)

// Logic gates aggregate multiple connected inputs themselves via
// ConnectedInputs; the engine only resolves single-input values.

func andGateType() *node.Type {
	return &node.Type{
		ID:       "and-gate",
		Title:    "AND Gate",
		Category: "logic",
		Inputs: []graph.PortKind{
			graph.PortTrigger, graph.PortNumber, graph.PortNumber, graph.PortNumber,
		},
		Outputs: []graph.PortKind{graph.PortTrigger},
		Execute: func(_ context.Context, n *graph.Node, _ any, ec node.ExecContext) (node.Outcome, error) {
			values := ec.ConnectedInputs(n.ID)
			if len(values) == 0 {
				return node.Halt(), fmt.Errorf("no connected inputs")
			}

			result := true
			for _, v := range values {
				if !truthy(v) {
					result = false
					break
				}
			}
			n.OutputData = result
			if !result {
				return node.Halt(), nil
			}
			return node.ContinueAll(), nil
		},
	}
}

func orGateType() *node.Type {
	return &node.Type{
		ID:       "or-gate",
		Title:    "OR Gate",
		Category: "logic",
		Inputs: []graph.PortKind{
			graph.PortTrigger, graph.PortNumber, graph.PortNumber, graph.PortNumber,
		},
		Outputs: []graph.PortKind{graph.PortTrigger},
		Execute: func(_ context.Context, n *graph.Node, _ any, ec node.ExecContext) (node.Outcome, error) {
			values := ec.ConnectedInputs(n.ID)
			if len(values) == 0 {
				return node.Halt(), fmt.Errorf("no connected inputs")
			}

			result := false
			for _, v := range values {
				if truthy(v) {
					result = true
					break
				}
			}
			n.OutputData = result
			if !result {
				return node.Halt(), nil
			}
			return node.ContinueAll(), nil
		},
	}
}
