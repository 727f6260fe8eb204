package outgoing

import (
	"go.uber.org/zap"

	"courier/internal/domain"
)

// SentEntry records one delivered recipient.
type SentEntry struct {
	Timestamp uint64
	Addr      domain.Address
}

// ErrorEntry records one failed recipient. Err is the cause wrapped in an
// OutgoingMessageError, except protocol 404s which pass through unwrapped.
type ErrorEntry struct {
	Timestamp uint64
	Addr      domain.Address
	Reason    string
	Err       error
}

// Handler signatures. A handler's own error is logged and never propagated;
// later handlers still run.
type (
	SentHandler      func(SentEntry) error
	ErrorHandler     func(ErrorEntry) error
	KeyChangeHandler func(*IdentityKeyError) error
)

// OnSent registers an observer for successful dispatches. Registrations must
// happen before SendToAddr is invoked.
func (m *OutgoingMessage) OnSent(h SentHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentHandlers = append(m.sentHandlers, h)
}

// OnError registers an observer for failed dispatches.
func (m *OutgoingMessage) OnError(h ErrorHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorHandlers = append(m.errorHandlers, h)
}

// OnKeyChange registers an observer for identity-key rotations. The handler
// may set Accepted on the passed error to approve the new key.
func (m *OutgoingMessage) OnKeyChange(h KeyChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyChangeHandlers = append(m.keyChangeHandlers, h)
}

// Sent returns the append-only acknowledgement log.
func (m *OutgoingMessage) Sent() []SentEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEntry(nil), m.sent...)
}

// Errors returns the append-only failure log.
func (m *OutgoingMessage) Errors() []ErrorEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ErrorEntry(nil), m.errs...)
}

func (m *OutgoingMessage) emitSent(addr domain.Address) {
	m.mu.Lock()
	entry := SentEntry{Timestamp: m.timestamp, Addr: addr}
	m.sent = append(m.sent, entry)
	handlers := append([]SentHandler(nil), m.sentHandlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		if err := h(entry); err != nil {
			m.log.Warn("sent handler failed", zap.String("addr", addr.String()), zap.Error(err))
		}
	}
}

func (m *OutgoingMessage) emitError(entry ErrorEntry) {
	m.mu.Lock()
	m.errs = append(m.errs, entry)
	handlers := append([]ErrorHandler(nil), m.errorHandlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		if err := h(entry); err != nil {
			m.log.Warn("error handler failed", zap.String("addr", entry.Addr.String()), zap.Error(err))
		}
	}
}

func (m *OutgoingMessage) emitKeyChange(ike *IdentityKeyError) {
	m.mu.Lock()
	handlers := append([]KeyChangeHandler(nil), m.keyChangeHandlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		if err := h(ike); err != nil {
			m.log.Warn("keychange handler failed", zap.String("addr", ike.Addr.String()), zap.Error(err))
		}
	}
}
