package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/tomtomtong/comfyTrade/bridge"
	"github.com/tomtomtong/comfyTrade/errors"
)

// ModifyCall records one ModifyPosition invocation.
type ModifyCall struct {
	Ticket     int64
	StopLoss   float64
	TakeProfit float64
}

// MockTerminal is a scriptable bridge.Terminal for tests. Zero value is
// connected with an empty account and no positions. Safe for concurrent
// use.
type MockTerminal struct {
	mu sync.Mutex

	Disconnected bool
	Account      bridge.AccountInfo
	OpenPos      []bridge.Position
	Closed       []bridge.ClosedPosition
	Quotes       map[string]bridge.Quote
	Symbols      map[string]bridge.SymbolInfo

	// Scripted results. Nil means success with the next ticket number.
	OrderResult  *bridge.OrderResult
	CloseResult  *bridge.OrderResult
	ModifyResult *bridge.OrderResult

	// Scripted transport errors, returned before any result.
	PositionsErr error
	OrderErr     error
	ModifyErr    error

	nextTicket int64

	PositionsCalls int
	OrderCalls     []bridge.OrderRequest
	CloseCalls     []int64
	ModifyCalls    []ModifyCall
}

var _ bridge.Terminal = (*MockTerminal)(nil)

// NewMockTerminal returns a connected mock with sensible account defaults.
func NewMockTerminal() *MockTerminal {
	return &MockTerminal{
		Account: bridge.AccountInfo{
			Login:      12345,
			Balance:    10000,
			Equity:     10000,
			FreeMargin: 10000,
			Currency:   "USD",
		},
		Quotes:     make(map[string]bridge.Quote),
		Symbols:    make(map[string]bridge.SymbolInfo),
		nextTicket: 1000,
	}
}

// SetConnected flips the connectivity flag.
func (m *MockTerminal) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Disconnected = !connected
}

// SetPositions replaces the open position set.
func (m *MockTerminal) SetPositions(positions ...bridge.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenPos = positions
}

// SetPrice updates the current price of one open position by ticket.
func (m *MockTerminal) SetPrice(ticket int64, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.OpenPos {
		if m.OpenPos[i].Ticket == ticket {
			m.OpenPos[i].CurrentPrice = price
		}
	}
}

func (m *MockTerminal) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.Disconnected
}

func (m *MockTerminal) AccountInfo(_ context.Context) (*bridge.AccountInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Disconnected {
		return nil, errors.ErrNotConnected
	}
	account := m.Account
	return &account, nil
}

func (m *MockTerminal) Positions(_ context.Context) ([]bridge.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PositionsCalls++
	if m.PositionsErr != nil {
		return nil, m.PositionsErr
	}
	if m.Disconnected {
		return nil, errors.ErrNotConnected
	}
	out := make([]bridge.Position, len(m.OpenPos))
	copy(out, m.OpenPos)
	return out, nil
}

func (m *MockTerminal) ClosedPositions(_ context.Context, from, to time.Time, symbol string) ([]bridge.ClosedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Disconnected {
		return nil, errors.ErrNotConnected
	}

	var out []bridge.ClosedPosition
	for _, p := range m.Closed {
		if p.CloseTime.Before(from) || p.CloseTime.After(to) {
			continue
		}
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *MockTerminal) Quote(_ context.Context, symbol string) (*bridge.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Disconnected {
		return nil, errors.ErrNotConnected
	}
	q, ok := m.Quotes[symbol]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrPositionNotFound, "MockTerminal", "Quote",
			"no quote for "+symbol)
	}
	return &q, nil
}

func (m *MockTerminal) SymbolInfo(_ context.Context, symbol string) (*bridge.SymbolInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Disconnected {
		return nil, errors.ErrNotConnected
	}
	info, ok := m.Symbols[symbol]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrPositionNotFound, "MockTerminal", "SymbolInfo",
			"no symbol "+symbol)
	}
	return &info, nil
}

func (m *MockTerminal) ExecuteOrder(_ context.Context, req bridge.OrderRequest) (*bridge.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrderCalls = append(m.OrderCalls, req)
	if m.OrderErr != nil {
		return nil, m.OrderErr
	}
	if m.Disconnected {
		return nil, errors.ErrNotConnected
	}
	if m.OrderResult != nil {
		result := *m.OrderResult
		return &result, nil
	}

	m.nextTicket++
	return &bridge.OrderResult{Success: true, Ticket: m.nextTicket}, nil
}

func (m *MockTerminal) ClosePosition(_ context.Context, ticket int64) (*bridge.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls = append(m.CloseCalls, ticket)
	if m.Disconnected {
		return nil, errors.ErrNotConnected
	}
	if m.CloseResult != nil {
		result := *m.CloseResult
		return &result, nil
	}
	return &bridge.OrderResult{Success: true, Ticket: ticket}, nil
}

func (m *MockTerminal) ModifyPosition(_ context.Context, ticket int64, stopLoss, takeProfit float64) (*bridge.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ModifyCalls = append(m.ModifyCalls, ModifyCall{
		Ticket:     ticket,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	})
	if m.ModifyErr != nil {
		return nil, m.ModifyErr
	}
	if m.Disconnected {
		return nil, errors.ErrNotConnected
	}
	if m.ModifyResult != nil {
		result := *m.ModifyResult
		return &result, nil
	}

	// Apply to the tracked position so the next cycle sees the new stops.
	for i := range m.OpenPos {
		if m.OpenPos[i].Ticket == ticket {
			m.OpenPos[i].StopLoss = stopLoss
			m.OpenPos[i].TakeProfit = takeProfit
		}
	}
	return &bridge.OrderResult{Success: true, Ticket: ticket}, nil
}
