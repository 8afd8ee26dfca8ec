package bridge

import (
	"context"
	"time"
)

// PositionType is the direction of a position or order.
type PositionType string

// Position directions as reported by the terminal.
const (
	Buy  PositionType = "BUY"
	Sell PositionType = "SELL"
)

// IsLong reports whether the position direction profits from rising prices.
func (t PositionType) IsLong() bool {
	return t == Buy
}

// AccountInfo is a snapshot of the trading account state.
type AccountInfo struct {
	Login      int64   `json:"login"`
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"free_margin"`
	Profit     float64 `json:"profit"`
	Currency   string  `json:"currency"`
}

// Position is an open position as reported by the terminal.
type Position struct {
	Ticket       int64        `json:"ticket"`
	Symbol       string       `json:"symbol"`
	Type         PositionType `json:"type"`
	Volume       float64      `json:"volume"`
	OpenPrice    float64      `json:"open_price"`
	CurrentPrice float64      `json:"current_price"`
	StopLoss     float64      `json:"stop_loss"`
	TakeProfit   float64      `json:"take_profit"`
	Profit       float64      `json:"profit"`
	OpenTime     time.Time    `json:"open_time"`
}

// ClosedPosition aggregates the deals of a closed position ticket.
type ClosedPosition struct {
	Ticket     int64        `json:"ticket"`
	Symbol     string       `json:"symbol"`
	Type       PositionType `json:"type"`
	Volume     float64      `json:"volume"`
	Profit     float64      `json:"profit"`
	Commission float64      `json:"commission"`
	Swap       float64      `json:"swap"`
	OpenTime   time.Time    `json:"open_time"`
	CloseTime  time.Time    `json:"close_time"`
	Deals      int          `json:"deals"`
}

// Quote is the current bid/ask for a symbol.
type Quote struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Time   time.Time `json:"time"`
}

// SymbolInfo describes the trading properties of a symbol.
type SymbolInfo struct {
	Symbol       string  `json:"symbol"`
	Digits       int     `json:"digits"`
	Point        float64 `json:"point"`
	TickSize     float64 `json:"tick_size"`
	TickValue    float64 `json:"tick_value"`
	ContractSize float64 `json:"contract_size"`
	VolumeMin    float64 `json:"volume_min"`
	VolumeMax    float64 `json:"volume_max"`
	VolumeStep   float64 `json:"volume_step"`
}

// OrderRequest describes a market order to execute.
type OrderRequest struct {
	Symbol     string       `json:"symbol"`
	Type       PositionType `json:"type"`
	Volume     float64      `json:"volume"`
	StopLoss   float64      `json:"stop_loss,omitempty"`
	TakeProfit float64      `json:"take_profit,omitempty"`
	Comment    string       `json:"comment,omitempty"`
}

// OrderResult is the terminal's answer to an order, close, or modify request.
// Success=false with an empty transport error is a business-level rejection
// (insufficient margin, invalid stops, market closed) and is distinct from a
// failed RPC.
type OrderResult struct {
	Success bool   `json:"success"`
	Ticket  int64  `json:"ticket,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Terminal is the asynchronous RPC surface of the external trading terminal
// bridge. The core consumes this interface; it never implements terminal
// logic itself. All methods honor context cancellation. A returned error
// means the call did not reach the terminal (connectivity, timeout); broker
// rejections come back as OrderResult with Success=false.
type Terminal interface {
	AccountInfo(ctx context.Context) (*AccountInfo, error)
	Positions(ctx context.Context) ([]Position, error)
	ClosedPositions(ctx context.Context, from, to time.Time, symbol string) ([]ClosedPosition, error)
	Quote(ctx context.Context, symbol string) (*Quote, error)
	SymbolInfo(ctx context.Context, symbol string) (*SymbolInfo, error)
	ExecuteOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	ClosePosition(ctx context.Context, ticket int64) (*OrderResult, error)
	ModifyPosition(ctx context.Context, ticket int64, stopLoss, takeProfit float64) (*OrderResult, error)
	IsConnected() bool
}
