package nodes

import (
	"context"
	"fmt"

	"github.com/tomtomtong/comfyTrade/bridge"
	"github.com/tomtomtong/comfyTrade/graph"
	"github.com/tomtomtong/comfyTrade/node"
)

// Trade-action nodes call the terminal bridge. Transport errors propagate
// as node errors; business rejections (Success=false) notify the user and
// halt the branch without counting as an engine failure.

func tradeOpenType() *node.Type {
	return &node.Type{
		ID:       "trade-open",
		Title:    "Open Trade",
		Category: "trade",
		// Optional live overrides: string input 1 replaces symbol, number
		// input 2 replaces volume.
		Inputs:  []graph.PortKind{graph.PortTrigger, graph.PortString, graph.PortNumber},
		Outputs: []graph.PortKind{graph.PortTrigger},
		DefaultParams: graph.Params{
			"symbol":     "EURUSD",
			"side":       "BUY",
			"volume":     0.01,
			"stopLoss":   0.0,
			"takeProfit": 0.0,
			"comment":    "",
		},
		Execute: func(ctx context.Context, n *graph.Node, _ any, ec node.ExecContext) (node.Outcome, error) {
			symbol := n.Params.String("symbol", "")
			if v, ok := ec.InputValue(n.ID, 1); ok {
				if s, isStr := v.(string); isStr && s != "" {
					symbol = s
				}
			}
			volume := n.Params.Float("volume", 0)
			if v, ok := ec.InputValue(n.ID, 2); ok {
				if f, isNum := toFloat(v); isNum && f > 0 {
					volume = f
				}
			}

			if symbol == "" {
				return node.Halt(), fmt.Errorf("symbol param is required")
			}
			if volume <= 0 {
				return node.Halt(), fmt.Errorf("volume must be positive")
			}
			side := bridge.PositionType(n.Params.String("side", "BUY"))
			if side != bridge.Buy && side != bridge.Sell {
				return node.Halt(), fmt.Errorf("side must be BUY or SELL")
			}

			res, err := ec.Terminal().ExecuteOrder(ctx, bridge.OrderRequest{
				Symbol:     symbol,
				Type:       side,
				Volume:     volume,
				StopLoss:   n.Params.Float("stopLoss", 0),
				TakeProfit: n.Params.Float("takeProfit", 0),
				Comment:    n.Params.String("comment", ""),
			})
			if err != nil {
				return node.Halt(), err
			}
			if !res.Success {
				ec.Notify(fmt.Sprintf("Order rejected for %s: %s", symbol, res.Error), node.NotifyError)
				n.OutputData = res.Error
				return node.Halt(), nil
			}

			n.OutputData = float64(res.Ticket)
			ec.Notify(fmt.Sprintf("Opened %s %s %.2f lot, ticket %d", side, symbol, volume, res.Ticket),
				node.NotifyInfo)
			return node.ContinueAll(), nil
		},
		Validate: func(n *graph.Node) error {
			if n.Params.Float("volume", 0) <= 0 {
				return fmt.Errorf("volume must be positive")
			}
			side := bridge.PositionType(n.Params.String("side", "BUY"))
			if side != bridge.Buy && side != bridge.Sell {
				return fmt.Errorf("side must be BUY or SELL")
			}
			return nil
		},
	}
}

func tradeCloseType() *node.Type {
	return &node.Type{
		ID:       "trade-close",
		Title:    "Close Trade",
		Category: "trade",
		Inputs:   []graph.PortKind{graph.PortTrigger, graph.PortNumber},
		Outputs:  []graph.PortKind{graph.PortTrigger},
		DefaultParams: graph.Params{
			"ticket": 0.0,
		},
		Execute: func(ctx context.Context, n *graph.Node, _ any, ec node.ExecContext) (node.Outcome, error) {
			ticket := int64(n.Params.Float("ticket", 0))
			if v, ok := ec.InputValue(n.ID, 1); ok {
				if f, isNum := toFloat(v); isNum && f > 0 {
					ticket = int64(f)
				}
			}
			if ticket <= 0 {
				return node.Halt(), fmt.Errorf("ticket is required")
			}

			res, err := ec.Terminal().ClosePosition(ctx, ticket)
			if err != nil {
				return node.Halt(), err
			}
			if !res.Success {
				ec.Notify(fmt.Sprintf("Close rejected for ticket %d: %s", ticket, res.Error), node.NotifyError)
				return node.Halt(), nil
			}

			n.OutputData = float64(ticket)
			ec.Notify(fmt.Sprintf("Closed position %d", ticket), node.NotifyInfo)
			return node.ContinueAll(), nil
		},
	}
}

func tradeModifyType() *node.Type {
	return &node.Type{
		ID:       "trade-modify",
		Title:    "Modify Trade",
		Category: "trade",
		// Number inputs 1 and 2 optionally override stopLoss and takeProfit.
		Inputs:  []graph.PortKind{graph.PortTrigger, graph.PortNumber, graph.PortNumber},
		Outputs: []graph.PortKind{graph.PortTrigger},
		DefaultParams: graph.Params{
			"ticket":     0.0,
			"stopLoss":   0.0,
			"takeProfit": 0.0,
		},
		Execute: func(ctx context.Context, n *graph.Node, _ any, ec node.ExecContext) (node.Outcome, error) {
			ticket := int64(n.Params.Float("ticket", 0))
			if ticket <= 0 {
				return node.Halt(), fmt.Errorf("ticket is required")
			}

			stopLoss := n.Params.Float("stopLoss", 0)
			if v, ok := ec.InputValue(n.ID, 1); ok {
				if f, isNum := toFloat(v); isNum {
					stopLoss = f
				}
			}
			takeProfit := n.Params.Float("takeProfit", 0)
			if v, ok := ec.InputValue(n.ID, 2); ok {
				if f, isNum := toFloat(v); isNum {
					takeProfit = f
				}
			}

			res, err := ec.Terminal().ModifyPosition(ctx, ticket, stopLoss, takeProfit)
			if err != nil {
				return node.Halt(), err
			}
			if !res.Success {
				ec.Notify(fmt.Sprintf("Modify rejected for ticket %d: %s", ticket, res.Error), node.NotifyError)
				return node.Halt(), nil
			}

			n.OutputData = float64(ticket)
			return node.ContinueAll(), nil
		},
	}
}

// accountGuardType halts the flow when the account drops below configured
// equity or free-margin floors.
func accountGuardType() *node.Type {
	return &node.Type{
		ID:       "account-guard",
		Title:    "Account Guard",
		Category: "trade",
		Inputs:   []graph.PortKind{graph.PortTrigger},
		Outputs:  []graph.PortKind{graph.PortTrigger},
		DefaultParams: graph.Params{
			"minEquity":     0.0,
			"minFreeMargin": 0.0,
		},
		Execute: func(ctx context.Context, n *graph.Node, _ any, ec node.ExecContext) (node.Outcome, error) {
			info, err := ec.Terminal().AccountInfo(ctx)
			if err != nil {
				return node.Halt(), err
			}

			n.OutputData = info.Equity
			if min := n.Params.Float("minEquity", 0); min > 0 && info.Equity < min {
				ec.Notify(fmt.Sprintf("Equity %.2f below floor %.2f, flow halted", info.Equity, min),
					node.NotifyWarn)
				return node.Halt(), nil
			}
			if min := n.Params.Float("minFreeMargin", 0); min > 0 && info.FreeMargin < min {
				ec.Notify(fmt.Sprintf("Free margin %.2f below floor %.2f, flow halted", info.FreeMargin, min),
					node.NotifyWarn)
				return node.Halt(), nil
			}
			return node.ContinueAll(), nil
		},
	}
}
