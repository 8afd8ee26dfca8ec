package nodes

import (
	"context"
	"fmt"

	"github.com/tomtomtong/comfyTrade/graph"
	"github.com/tomtomtong/comfyTrade/node"
)

// displayType surfaces its input value to the user as a notification and
// passes it through unchanged.
func displayType() *node.Type {
	return &node.Type{
		ID:       "display",
		Title:    "Display",
		Category: "output",
		Inputs:   []graph.PortKind{graph.PortTrigger, graph.PortString},
		Outputs:  []graph.PortKind{graph.PortTrigger},
		DefaultParams: graph.Params{
			"label": "",
			"level": string(node.NotifyInfo),
		},
		Execute: func(_ context.Context, n *graph.Node, input any, ec node.ExecContext) (node.Outcome, error) {
			text := fmt.Sprintf("%v", input)
			if label := n.Params.String("label", ""); label != "" {
				text = fmt.Sprintf("%s: %v", label, input)
			}

			level := node.NotifyLevel(n.Params.String("level", string(node.NotifyInfo)))
			switch level {
			case node.NotifyInfo, node.NotifyWarn, node.NotifyError:
			default:
				level = node.NotifyInfo
			}

			ec.Notify(text, level)
			n.OutputData = input
			return node.ContinueAll(), nil
		},
	}
}
