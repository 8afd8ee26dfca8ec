package nodes

import (
	"context"
	"fmt"

	"github.com/tomtomtong/comfyTrade/graph"
	"github.com/tomtomtong/comfyTrade/node"
)

// triggerType is the entry point of every flow. The engine checks the
// "enabled" param before starting a pass; the node itself just propagates.
func triggerType() *node.Type {
	return &node.Type{
		ID:       "trigger",
		Title:    "Trigger",
		Category: "trigger",
		Outputs:  []graph.PortKind{graph.PortTrigger},
		DefaultParams: graph.Params{
			"enabled": true,
		},
		Execute: func(_ context.Context, _ *graph.Node, _ any, _ node.ExecContext) (node.Outcome, error) {
			return node.ContinueAll(), nil
		},
	}
}

// quoteType fetches the current market quote for a symbol and publishes the
// chosen side as its number output.
func quoteType() *node.Type {
	return &node.Type{
		ID:       "quote",
		Title:    "Market Quote",
		Category: "market",
		Inputs:   []graph.PortKind{graph.PortTrigger},
		Outputs:  []graph.PortKind{graph.PortTrigger, graph.PortNumber},
		DefaultParams: graph.Params{
			"symbol": "EURUSD",
			"side":   "bid",
		},
		Execute: func(ctx context.Context, n *graph.Node, _ any, ec node.ExecContext) (node.Outcome, error) {
			symbol := n.Params.String("symbol", "")
			if symbol == "" {
				return node.Halt(), fmt.Errorf("symbol param is required")
			}

			q, err := ec.Terminal().Quote(ctx, symbol)
			if err != nil {
				return node.Halt(), err
			}

			price := q.Bid
			if n.Params.String("side", "bid") == "ask" {
				price = q.Ask
			}
			n.OutputData = price
			return node.ContinueAll(), nil
		},
		Validate: func(n *graph.Node) error {
			if n.Params.String("symbol", "") == "" {
				return fmt.Errorf("symbol param is required")
			}
			return nil
		},
	}
}

// priceThresholdType gates the flow on a live price crossing a target, the
// standalone price-monitor pattern expressed as a node.
func priceThresholdType() *node.Type {
	return &node.Type{
		ID:       "price-threshold",
		Title:    "Price Threshold",
		Category: "market",
		Inputs:   []graph.PortKind{graph.PortTrigger},
		Outputs:  []graph.PortKind{graph.PortTrigger, graph.PortNumber},
		DefaultParams: graph.Params{
			"symbol":      "BTCUSD",
			"comparison":  "lte",
			"targetPrice": 0.0,
			"side":        "ask",
		},
		Execute: func(ctx context.Context, n *graph.Node, _ any, ec node.ExecContext) (node.Outcome, error) {
			symbol := n.Params.String("symbol", "")
			if symbol == "" {
				return node.Halt(), fmt.Errorf("symbol param is required")
			}
			target := n.Params.Float("targetPrice", 0)
			if target <= 0 {
				return node.Halt(), fmt.Errorf("targetPrice param must be positive")
			}

			q, err := ec.Terminal().Quote(ctx, symbol)
			if err != nil {
				return node.Halt(), err
			}

			price := q.Ask
			if n.Params.String("side", "ask") == "bid" {
				price = q.Bid
			}
			n.OutputData = price

			if !compare(n.Params.String("comparison", "lte"), price, target) {
				return node.Halt(), nil
			}
			return node.ContinueAll(), nil
		},
		Validate: func(n *graph.Node) error {
			if !validComparison(n.Params.String("comparison", "lte")) {
				return fmt.Errorf("unknown comparison %q", n.Params.String("comparison", ""))
			}
			if n.Params.Float("targetPrice", 0) <= 0 {
				return fmt.Errorf("targetPrice param must be positive")
			}
			return nil
		},
	}
}
