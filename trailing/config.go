package trailing

import (
	"fmt"
	"time"

	"github.com/tomtomtong/comfyTrade/errors"
)

// Config is the trailing state for one position ticket. It is created when
// the user enables trailing on an open position, mutated every adjustment
// cycle, and persisted keyed by ticket so it survives restarts.
type Config struct {
	Ticket int64 `json:"ticket"`

	// Stop-loss distance from current price. Exactly one of the pair must
	// be positive; the percent form is recomputed against price each cycle
	// so the absolute distance tracks the price level.
	SLDistance        float64 `json:"sl_distance,omitempty"`
	SLDistancePercent float64 `json:"sl_distance_percent,omitempty"`

	// Take-profit distance from current price. Optional; when both are
	// zero and TrailSLOnly is false the take-profit is left untouched.
	TPDistance        float64 `json:"tp_distance,omitempty"`
	TPDistancePercent float64 `json:"tp_distance_percent,omitempty"`

	// TriggerPrice gates activation: no adjustment is made until price
	// crosses it in the favorable direction for the position's side.
	// Zero means immediate activation.
	TriggerPrice float64 `json:"trigger_price,omitempty"`

	// FixedTP pins the take-profit when TrailSLOnly is set. It is captured
	// once, from the position's live take-profit at the moment trailing
	// was enabled, and never recomputed.
	FixedTP     *float64 `json:"fixed_tp,omitempty"`
	TrailSLOnly bool     `json:"trail_sl_only,omitempty"`

	// Activated latches once TriggerPrice has been crossed.
	Activated      bool      `json:"activated"`
	LastPrice      float64   `json:"last_price,omitempty"`
	LastAdjustment time.Time `json:"last_adjustment,omitempty"`
}

// Validate rejects configurations that could never trail correctly.
func (c *Config) Validate() error {
	if c.Ticket <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "trailing", "Config.Validate",
			"ticket must be positive")
	}

	if c.SLDistance < 0 || c.SLDistancePercent < 0 || c.TPDistance < 0 || c.TPDistancePercent < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "trailing", "Config.Validate",
			fmt.Sprintf("ticket %d: distances must not be negative", c.Ticket))
	}

	if c.SLDistance == 0 && c.SLDistancePercent == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "trailing", "Config.Validate",
			fmt.Sprintf("ticket %d: a stop-loss distance is required", c.Ticket))
	}
	if c.SLDistance > 0 && c.SLDistancePercent > 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "trailing", "Config.Validate",
			fmt.Sprintf("ticket %d: absolute and percent stop-loss distance are mutually exclusive", c.Ticket))
	}
	if c.TPDistance > 0 && c.TPDistancePercent > 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "trailing", "Config.Validate",
			fmt.Sprintf("ticket %d: absolute and percent take-profit distance are mutually exclusive", c.Ticket))
	}

	if c.TriggerPrice < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "trailing", "Config.Validate",
			fmt.Sprintf("ticket %d: trigger price must not be negative", c.Ticket))
	}

	return nil
}
