package wallet

import "sync"

// Provider exposes the active account session. The account id doubles as the
// owner key for every remote document. All remote operations are gated on
// IsConnected.
type Provider interface {
	AccountID() string
	IsConnected() bool
}

// Static is a Provider backed by a fixed account id with an explicit
// connect/disconnect toggle. The process owns exactly one session; construct
// it once and pass it down instead of reaching for globals.
type Static struct {
	mu        sync.RWMutex
	accountID string
	connected bool
}

func NewStatic(accountID string) *Static {
	return &Static{accountID: accountID}
}

func (s *Static) AccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountID
}

func (s *Static) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected && s.accountID != ""
}

func (s *Static) Connect() {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
}

func (s *Static) Disconnect() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}

// Disconnected is the zero-session provider used when the app runs purely
// locally.
type Disconnected struct{}

func (Disconnected) AccountID() string { return "" }
func (Disconnected) IsConnected() bool { return false }
