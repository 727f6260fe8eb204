package outgoing

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"courier/internal/domain"
	"courier/internal/protocol/session"
)

// OutgoingMessage dispatches one plaintext to recipients. It is single use:
// construct it, register observers, then call SendToAddr once per recipient.
// The plaintext must already be serialized; padding and per-device
// encryption happen here.
type OutgoingMessage struct {
	transport domain.SignalTransport
	sessions  domain.SessionStore
	ciphers   domain.CipherFactory
	builder   domain.SessionBuilder

	timestamp uint64
	plaintext []byte

	log *zap.Logger

	mu                sync.Mutex
	sent              []SentEntry
	errs              []ErrorEntry
	sentHandlers      []SentHandler
	errorHandlers     []ErrorHandler
	keyChangeHandlers []KeyChangeHandler
}

// New constructs a dispatch for one plaintext. The timestamp is preserved
// bit-exact across every retry; the server deduplicates on it.
func New(
	transport domain.SignalTransport,
	sessions domain.SessionStore,
	ciphers domain.CipherFactory,
	builder domain.SessionBuilder,
	timestamp uint64,
	plaintext []byte,
	log *zap.Logger,
) *OutgoingMessage {
	if log == nil {
		log = zap.NewNop()
	}
	return &OutgoingMessage{
		transport: transport,
		sessions:  sessions,
		ciphers:   ciphers,
		builder:   builder,
		timestamp: timestamp,
		plaintext: plaintext,
		log: log.With(
			zap.String("dispatch", uuid.NewString()),
			zap.Uint64("timestamp", timestamp),
		),
	}
}

// SendToAddr dispatches to one recipient. It never fails with a returned
// error; every outcome surfaces through the sent/error observers.
func (m *OutgoingMessage) SendToAddr(ctx context.Context, addr domain.Address) {
	stale, err := m.getStaleDeviceIDsForAddr(ctx, addr)
	if err != nil {
		m.registerError(addr, "Failed to get device ids for address", err)
		return
	}
	if err := m.getKeysForAddr(ctx, addr, stale, false); err != nil {
		m.registerError(addr, "Failed to retrieve new device keys for address", err)
		return
	}
	if err := m.reloadDevicesAndSend(ctx, addr, true); err != nil {
		m.registerError(addr, "Failed to send to address", err)
	}
}

// getStaleDeviceIDsForAddr returns the locally-known devices with no open
// session. An empty local list stays empty; the first transmit then elicits
// a 409 carrying the authoritative set.
func (m *OutgoingMessage) getStaleDeviceIDsForAddr(
	ctx context.Context,
	addr domain.Address,
) ([]domain.DeviceID, error) {
	ids, err := m.sessions.GetDeviceIDs(addr)
	if err != nil {
		return nil, err
	}
	stale := make([]domain.DeviceID, 0, len(ids))
	for _, id := range ids {
		open, err := m.ciphers.CipherFor(addr, id).HasOpenSession(ctx)
		if err != nil {
			return nil, err
		}
		if !open {
			stale = append(stale, id)
		}
	}
	return stale, nil
}

// getKeysForAddr fetches pre-key bundles and builds sessions. A nil
// updateDevices fetches the complete device set in one RPC and processes
// the bundles in parallel; an explicit set is fetched strictly in sequence,
// and a 404 for a non-primary device prunes it locally instead of failing.
//
// An identity-key change is offered to the keychange observers once. If a
// handler accepts it, the new key is recorded and the same device set is
// rebuilt exactly once (reentrant); a rotation during the rebuild fails.
func (m *OutgoingMessage) getKeysForAddr(
	ctx context.Context,
	addr domain.Address,
	updateDevices []domain.DeviceID,
	reentrant bool,
) error {
	err := m.fetchAndProcessKeys(ctx, addr, updateDevices)
	if err == nil {
		return nil
	}
	var ike *IdentityKeyError
	if !errors.As(err, &ike) {
		return err
	}
	if reentrant {
		return err
	}
	m.emitKeyChange(ike)
	if !ike.Accepted {
		return err
	}
	if serr := m.sessions.SavePeerIdentity(addr, ike.IdentityKey); serr != nil {
		return serr
	}
	return m.getKeysForAddr(ctx, addr, updateDevices, true)
}

func (m *OutgoingMessage) fetchAndProcessKeys(
	ctx context.Context,
	addr domain.Address,
	updateDevices []domain.DeviceID,
) error {
	if updateDevices == nil {
		resp, err := m.transport.GetKeysForAddr(ctx, addr)
		if err != nil {
			return err
		}
		return m.processBundles(ctx, addr, resp.Devices)
	}

	// The per-device endpoint is walked serially; the session layer does
	// not tolerate interleaved builds for one address.
	for _, id := range updateDevices {
		resp, err := m.transport.GetKeysForDevice(ctx, addr, id)
		if err != nil {
			var perr *domain.ProtocolError
			if errors.As(err, &perr) && perr.Code == 404 && id != domain.PrimaryDeviceID {
				m.log.Info("pruning unregistered device",
					zap.String("addr", addr.String()),
					zap.Uint32("device", uint32(id)),
				)
				if rerr := m.removeDeviceIDsForAddr(addr, []domain.DeviceID{id}); rerr != nil {
					return rerr
				}
				continue
			}
			return err
		}
		for _, bundle := range resp.Devices {
			if err := m.processPreKey(ctx, addr, bundle); err != nil {
				return err
			}
		}
	}
	return nil
}

// processBundles builds sessions for each bundle concurrently. An identity
// change is surfaced ahead of other failures; it has its own recovery path.
func (m *OutgoingMessage) processBundles(
	ctx context.Context,
	addr domain.Address,
	bundles []domain.PreKeyBundle,
) error {
	if len(bundles) <= 1 {
		for _, b := range bundles {
			if err := m.processPreKey(ctx, addr, b); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, len(bundles))
	var wg sync.WaitGroup
	for i, b := range bundles {
		wg.Add(1)
		go func(i int, b domain.PreKeyBundle) {
			defer wg.Done()
			errs[i] = m.processPreKey(ctx, addr, b)
		}(i, b)
	}
	wg.Wait()

	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ike *IdentityKeyError
		if errors.As(err, &ike) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

func (m *OutgoingMessage) processPreKey(
	ctx context.Context,
	addr domain.Address,
	bundle domain.PreKeyBundle,
) error {
	err := m.builder.ProcessPreKey(ctx, addr, bundle)
	var untrusted *session.UntrustedIdentityError
	if errors.As(err, &untrusted) {
		return &IdentityKeyError{
			Addr:        addr,
			Timestamp:   m.timestamp,
			IdentityKey: untrusted.IdentityKey,
		}
	}
	return err
}

// removeDeviceIDsForAddr deletes the session records for ids. Missing
// records are tolerated by the store.
func (m *OutgoingMessage) removeDeviceIDsForAddr(addr domain.Address, ids []domain.DeviceID) error {
	for _, id := range ids {
		if err := m.sessions.RemoveSession(domain.EncodedDevice(addr, id)); err != nil {
			return err
		}
	}
	return nil
}

// reloadDevicesAndSend re-reads the device list before transmitting; it may
// have changed since dispatch entry.
func (m *OutgoingMessage) reloadDevicesAndSend(ctx context.Context, addr domain.Address, recurse bool) error {
	ids, err := m.sessions.GetDeviceIDs(addr)
	if err != nil {
		return err
	}
	return m.doSendMessage(ctx, addr, ids, recurse)
}

func (m *OutgoingMessage) doSendMessage(
	ctx context.Context,
	addr domain.Address,
	deviceIDs []domain.DeviceID,
	recurse bool,
) error {
	padded := padPlaintext(m.plaintext)

	// Ciphers are retained by device id: a 410 recovery must close the
	// stale sessions on the same objects that produced the ciphertexts.
	ciphers := make(map[domain.DeviceID]domain.SessionCipher, len(deviceIDs))
	msgs := make([]domain.EncryptedDeviceMessage, len(deviceIDs))
	encErrs := make([]error, len(deviceIDs))
	var wg sync.WaitGroup
	for i, id := range deviceIDs {
		c := m.ciphers.CipherFor(addr, id)
		ciphers[id] = c
		wg.Add(1)
		go func(i int, id domain.DeviceID, c domain.SessionCipher) {
			defer wg.Done()
			ct, err := c.Encrypt(ctx, padded)
			if err != nil {
				encErrs[i] = err
				return
			}
			msgs[i] = domain.EncryptedDeviceMessage{
				Type:                      ct.Type,
				DestinationDeviceID:       uint32(id),
				DestinationRegistrationID: ct.RegistrationID,
				Content:                   ct.Body,
			}
		}(i, id, c)
	}
	wg.Wait()
	for _, err := range encErrs {
		if err != nil {
			m.registerError(addr, "Failed to create message", err)
			return nil
		}
	}

	err := m.transport.SendMessages(ctx, addr, msgs, m.timestamp)
	if err == nil {
		m.emitSent(addr)
		return nil
	}

	var perr *domain.ProtocolError
	if !errors.As(err, &perr) {
		// Transport failure: propagate unchanged, callers may retry later.
		return err
	}

	switch perr.Code {
	case 409, 410:
		if !recurse {
			m.registerError(addr, "Hit retry limit attempting to reload device list", perr)
			return nil
		}
		var reset []domain.DeviceID
		if perr.Code == 409 {
			if perr.Mismatched != nil {
				if err := m.removeDeviceIDsForAddr(addr, perr.Mismatched.ExtraDevices); err != nil {
					return err
				}
				reset = perr.Mismatched.MissingDevices
			}
		} else if perr.Stale != nil {
			for _, id := range perr.Stale.StaleDevices {
				c, ok := ciphers[id]
				if !ok {
					c = m.ciphers.CipherFor(addr, id)
				}
				if err := c.CloseOpenSession(ctx); err != nil {
					return err
				}
			}
			reset = perr.Stale.StaleDevices
		}
		if reset == nil {
			reset = []domain.DeviceID{}
		}
		if err := m.getKeysForAddr(ctx, addr, reset, false); err != nil {
			m.registerError(addr, "Failed to reload device keys", err)
			return nil
		}
		// A 409 reflects the server's authoritative device set and may
		// recover once more; a second 410 must not loop.
		return m.reloadDevicesAndSend(ctx, addr, perr.Code == 409)
	case 404:
		return &UnregisteredUserError{Addr: addr, Cause: perr}
	default:
		return &SendMessageError{Addr: addr, Timestamp: m.timestamp, Cause: perr}
	}
}

// registerError appends one failure entry and notifies observers. Causes
// are wrapped in an OutgoingMessageError except protocol-level 404s, which
// keep their shape for the caller.
func (m *OutgoingMessage) registerError(addr domain.Address, reason string, cause error) {
	entryErr := cause
	var perr *domain.ProtocolError
	if !(errors.As(cause, &perr) && perr.Code == 404) {
		entryErr = &OutgoingMessageError{
			Addr:      addr,
			Reason:    reason,
			Timestamp: m.timestamp,
			Cause:     cause,
		}
	}
	m.log.Warn("dispatch failed",
		zap.String("addr", addr.String()),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	m.emitError(ErrorEntry{Timestamp: m.timestamp, Addr: addr, Reason: reason, Err: entryErr})
}
