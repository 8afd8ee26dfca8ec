// Package nodes provides the built-in node types: triggers, market data,
// comparisons, logic gates, trade actions, and output/display.
package nodes

import (
	"github.com/tomtomtong/comfyTrade/errors"
	"github.com/tomtomtong/comfyTrade/node"
)

// RegisterBuiltins registers every built-in node type with the registry.
// Plugin-defined types load separately through Registry.LoadPlugin.
func RegisterBuiltins(registry *node.Registry) error {
	if registry == nil {
		return errors.WrapFatal(errors.ErrInvalidConfig, "nodes", "RegisterBuiltins", "registry validation")
	}

	builtins := []*node.Type{
		triggerType(),
		quoteType(),
		priceThresholdType(),
		conditionType(),
		conditionRouterType(),
		andGateType(),
		orGateType(),
		tradeOpenType(),
		tradeCloseType(),
		tradeModifyType(),
		accountGuardType(),
		displayType(),
	}

	for _, t := range builtins {
		if err := registry.Register(t); err != nil {
			return errors.WrapInvalid(err, "nodes", "RegisterBuiltins", "register "+t.ID)
		}
	}
	return nil
}
