package peripheral

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beachmessages/relay/internal/observability"
)

// Machine simulates the BLE link to the display.
//
// Scheduled transitions carry the generation they were armed in. Any call that
// cancels pending work bumps the generation, so a timer that fires late sees a
// stale generation and does nothing.
type Machine struct {
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	state  State
	device *Device
	gen    uint64
	timers []*time.Timer

	// transitions waiting to be fanned out, in the order they happened
	queue       []State
	dispatching bool

	subMu   sync.Mutex
	subs    map[uint64]func(State)
	nextSub uint64
}

func NewMachine(opts Options, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	return &Machine{
		opts:  opts,
		log:   log,
		state: Disconnected,
		subs:  make(map[uint64]func(State)),
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) IsConnected() bool {
	return m.State() == Connected
}

// DeviceName returns the discovered device's name, falling back to the
// configured name before discovery.
func (m *Machine) DeviceName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceNameLocked()
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{State: m.state, Connected: m.state == Connected, DeviceName: m.deviceNameLocked()}
	if m.device != nil {
		d := *m.device
		s.Device = &d
	}
	return s
}

func (m *Machine) deviceNameLocked() string {
	if m.device == nil {
		return m.opts.DeviceName
	}
	return m.device.Name
}

// StartScan begins discovery. It does nothing while a scan or link is in
// progress or established.
func (m *Machine) StartScan() {
	m.mu.Lock()
	switch m.state {
	case Scanning, Connecting, Connected:
		m.mu.Unlock()
		return
	}
	m.cancelLocked()
	m.setLocked(Scanning)
	m.scheduleLocked(m.opts.ScanDelay, m.deviceFound)
	m.mu.Unlock()

	m.log.Info("scanning for display", zap.String("service_uuid", ServiceUUID))
	m.flush()
}

// StopScan abandons a scan in progress. Other states are left alone.
func (m *Machine) StopScan() {
	m.mu.Lock()
	if m.state != Scanning {
		m.mu.Unlock()
		return
	}
	m.cancelLocked()
	m.setLocked(Disconnected)
	m.mu.Unlock()

	m.flush()
}

// Connect links to the discovered device. Without one the machine enters Error.
func (m *Machine) Connect() {
	m.mu.Lock()
	if m.device == nil {
		m.cancelLocked()
		m.setLocked(Error)
		m.mu.Unlock()

		m.log.Warn("connect requested without a discovered device")
		m.flush()
		return
	}
	m.connectLocked()
	m.mu.Unlock()

	m.flush()
}

// Disconnect drops the link and forgets the device from any state.
func (m *Machine) Disconnect() {
	m.mu.Lock()
	m.cancelLocked()
	m.device = nil
	m.setLocked(Disconnected)
	m.mu.Unlock()

	m.flush()
}

// Send writes text to the display characteristic. Failures never change state.
func (m *Machine) Send(ctx context.Context, text string) error {
	if !m.IsConnected() {
		observability.PeripheralSendTotal.WithLabelValues("not_connected").Inc()
		return ErrNotConnected
	}
	if len(text) > MaxPayload {
		observability.PeripheralSendTotal.WithLabelValues("too_large").Inc()
		return ErrPayloadTooLarge
	}

	t := time.NewTimer(m.opts.SendDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		observability.PeripheralSendTotal.WithLabelValues("cancelled").Inc()
		return ctx.Err()
	case <-t.C:
	}

	// link dropped mid-write
	if !m.IsConnected() {
		observability.PeripheralSendTotal.WithLabelValues("not_connected").Inc()
		return ErrNotConnected
	}

	if m.opts.Rand() >= *m.opts.SuccessRate {
		observability.PeripheralSendTotal.WithLabelValues("failed").Inc()
		m.log.Warn("display write failed", zap.Int("bytes", len(text)))
		return ErrTransmissionFailed
	}

	observability.PeripheralSendTotal.WithLabelValues("ok").Inc()
	m.log.Info("message sent to display",
		zap.String("characteristic_uuid", CharacteristicUUID),
		zap.Int("bytes", len(text)),
	)
	return nil
}

func (m *Machine) deviceFound() {
	m.device = &Device{
		ID:                 uuid.NewString(),
		Name:               m.opts.DeviceName,
		RSSI:               SimulatedRSSI,
		ServiceUUID:        ServiceUUID,
		CharacteristicUUID: CharacteristicUUID,
	}
	m.log.Info("display discovered",
		zap.String("device_id", m.device.ID),
		zap.String("device_name", m.device.Name),
		zap.Int("rssi", m.device.RSSI),
	)
	m.connectLocked()
}

func (m *Machine) connected() {
	m.setLocked(Connected)
	m.log.Info("display connected", zap.String("device_name", m.device.Name))
}

// connectLocked enters Connecting and arms the Connected transition.
func (m *Machine) connectLocked() {
	m.cancelLocked()
	m.setLocked(Connecting)
	m.scheduleLocked(m.opts.ConnectDelay, m.connected)
}

// scheduleLocked runs fn under the lock after d, unless the generation moved on.
func (m *Machine) scheduleLocked(d time.Duration, fn func()) {
	gen := m.gen
	t := time.AfterFunc(d, func() {
		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		fn()
		m.mu.Unlock()

		m.flush()
	})
	m.timers = append(m.timers, t)
}

func (m *Machine) cancelLocked() {
	m.gen++
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = m.timers[:0]
}

// setLocked moves to s and queues a notification if the state changed.
func (m *Machine) setLocked(s State) {
	if m.state == s {
		return
	}
	m.log.Debug("peripheral state changed", zap.String("from", string(m.state)), zap.String("to", string(s)))
	m.state = s
	m.queue = append(m.queue, s)
	observability.PeripheralTransitionsTotal.WithLabelValues(string(s)).Inc()
}

// flush fans queued transitions out to subscribers in the order they happened.
// Only one goroutine drains at a time; a caller that finds a drain in progress
// returns at once and leaves its transitions to the drainer.
func (m *Machine) flush() {
	m.mu.Lock()
	if m.dispatching {
		m.mu.Unlock()
		return
	}
	m.dispatching = true
	for len(m.queue) > 0 {
		s := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		m.notify(s)

		m.mu.Lock()
	}
	m.queue = nil
	m.dispatching = false
	m.mu.Unlock()
}
