package link

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/bbernstein/museo-go/internal/services/metrics"
	"github.com/bbernstein/museo-go/internal/services/pubsub"
)

// State is the connection state of the device link.
type State string

const (
	StateSearching    State = "SEARCHING"
	StateIdentifying  State = "IDENTIFYING"
	StateConnected    State = "CONNECTED"
	StateDisconnected State = "DISCONNECTED"
)

// Protocol literals of the reference deployment.
const (
	DefaultHandshakeMessage = "Museo Digital"
	DefaultAckMessage       = "Te encontre"
	DefaultResetMessage     = "Reset Connection"
)

// ErrNoActiveTransport is returned by Send when no device is connected.
var ErrNoActiveTransport = errors.New("no active device connection")

// Config holds link manager configuration.
type Config struct {
	HandshakeMessage string
	AckMessage       string
	ResetMessage     string
	HandshakeTimeout time.Duration
	ScanInterval     time.Duration
	PollInterval     time.Duration // Idle pause between polls that returned nothing
	LineBuffer       int
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		HandshakeMessage: DefaultHandshakeMessage,
		AckMessage:       DefaultAckMessage,
		ResetMessage:     DefaultResetMessage,
		HandshakeTimeout: 1500 * time.Millisecond,
		ScanInterval:     2 * time.Second,
		PollInterval:     5 * time.Millisecond,
		LineBuffer:       64,
	}
}

// PortMemory remembers the last port that completed a handshake so the next
// discovery pass tries it first.
type PortMemory interface {
	LastPort(ctx context.Context) (string, error)
	RememberPort(ctx context.Context, name string) error
}

// Status is a snapshot of the link for the API and subscribers.
type Status struct {
	State          State   `json:"state"`
	Port           string  `json:"port,omitempty"`
	Reconnects     int     `json:"reconnects"`
	ConnectedSince *string `json:"connectedSince,omitempty"`
	LastError      string  `json:"lastError,omitempty"`
}

// Manager discovers the device among the system ports, keeps exactly one
// active transport, and forwards received lines on Lines().
type Manager struct {
	mu sync.RWMutex
	// lifecycle serializes Start and Stop, including Stop's wait for run
	lifecycle sync.Mutex

	cfg    Config
	ports  PortProvider
	memory PortMemory
	pubsub *pubsub.PubSub

	state          State
	active         *Transport
	connectedSince time.Time
	reconnects     int
	lastError      string

	lines chan string

	// Control
	stopChan chan struct{}
	doneChan chan struct{}
	running  bool
}

// NewManager creates a link manager. memory and ps may be nil.
func NewManager(cfg Config, ports PortProvider, memory PortMemory, ps *pubsub.PubSub) *Manager {
	def := DefaultConfig()
	if cfg.HandshakeMessage == "" {
		cfg.HandshakeMessage = def.HandshakeMessage
	}
	if cfg.AckMessage == "" {
		cfg.AckMessage = def.AckMessage
	}
	if cfg.ResetMessage == "" {
		cfg.ResetMessage = def.ResetMessage
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = def.ScanInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.LineBuffer <= 0 {
		cfg.LineBuffer = def.LineBuffer
	}

	return &Manager{
		cfg:      cfg,
		ports:    ports,
		memory:   memory,
		pubsub:   ps,
		state:    StateDisconnected,
		lines:    make(chan string, cfg.LineBuffer),
	}
}

// Lines returns the channel of lines received from the connected device.
func (m *Manager) Lines() <-chan string {
	return m.lines
}

// Start launches the background discovery and read loop. A stopped manager
// can be started again.
func (m *Manager) Start() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.doneChan = make(chan struct{})
	log.Printf("🔌 Device link started (handshake %q, scan every %v)", m.cfg.HandshakeMessage, m.cfg.ScanInterval)
	go m.run(m.doneChan)
}

// Stop stops the background loop, notifies the device and closes the port.
func (m *Manager) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	done := m.doneChan
	m.mu.Unlock()

	<-done
	log.Printf("🔌 Device link stopped")
}

// Status returns the current link status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Send writes a line to the connected device.
func (m *Manager) Send(line string) error {
	m.mu.RLock()
	active := m.active
	m.mu.RUnlock()

	if active == nil {
		return ErrNoActiveTransport
	}
	return active.WriteLine(line)
}

// run loops discovery and reading until stopped.
func (m *Manager) run(done chan<- struct{}) {
	defer close(done)

	for {
		if m.stopped() {
			return
		}

		m.setState(StateSearching)
		t := m.discover()
		if t == nil {
			if m.stopped() {
				return
			}
			m.setState(StateDisconnected)
			if !m.sleep(m.cfg.ScanInterval) {
				return
			}
			continue
		}

		m.promote(t)
		err := m.readLoop(t)
		m.release(t, err)

		if err == nil {
			// Stopped while connected
			return
		}
		if !m.sleep(m.cfg.ScanInterval) {
			return
		}
	}
}

// discover makes one pass over all ports and returns the transport that
// completed the handshake, or nil.
func (m *Manager) discover() *Transport {
	m.mu.RLock()
	hasActive := m.active != nil
	m.mu.RUnlock()
	if hasActive {
		// Only one device may be active at a time
		return nil
	}

	names, err := m.ports.List()
	if err != nil {
		m.recordError(err)
		log.Printf("Warning: serial port scan failed: %v", err)
		return nil
	}
	names = m.orderCandidates(names)
	if len(names) == 0 {
		return nil
	}

	for _, name := range names {
		if m.stopped() {
			return nil
		}

		m.setState(StateIdentifying)
		port, err := m.ports.Open(name)
		if err != nil {
			m.recordError(err)
			m.setState(StateSearching)
			continue
		}

		t := NewTransport(name, port)
		if m.handshake(t) {
			return t
		}
		_ = t.Close()
		m.setState(StateSearching)
	}
	return nil
}

// orderCandidates moves the remembered port to the front of the list.
func (m *Manager) orderCandidates(names []string) []string {
	names = lo.Uniq(names)
	if m.memory == nil {
		return names
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	last, err := m.memory.LastPort(ctx)
	if err != nil || last == "" || !lo.Contains(names, last) {
		return names
	}

	ordered := make([]string, 0, len(names))
	ordered = append(ordered, last)
	ordered = append(ordered, lo.Without(names, last)...)
	return ordered
}

// handshake waits for the identification literal and acknowledges it.
func (m *Manager) handshake(t *Transport) bool {
	deadline := time.Now().Add(m.cfg.HandshakeTimeout)
	for time.Now().Before(deadline) {
		if m.stopped() {
			return false
		}

		line, ok, err := t.PollLine()
		if err != nil {
			m.recordError(err)
			return false
		}
		if !ok {
			if !m.sleep(m.cfg.PollInterval) {
				return false
			}
			continue
		}

		if strings.TrimSpace(line) == m.cfg.HandshakeMessage {
			if err := t.WriteLine(m.cfg.AckMessage); err != nil {
				m.recordError(err)
				return false
			}
			return true
		}
	}
	return false
}

// promote makes t the single active transport.
func (m *Manager) promote(t *Transport) {
	m.mu.Lock()
	m.active = t
	m.connectedSince = time.Now()
	m.lastError = ""
	m.mu.Unlock()

	m.setState(StateConnected)
	log.Printf("✅ Device found on %s", t.Name())

	if m.memory != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := m.memory.RememberPort(ctx, t.Name()); err != nil {
			log.Printf("Warning: failed to remember serial port %s: %v", t.Name(), err)
		}
	}
}

// readLoop forwards lines until a read error (returned) or Stop (nil).
func (m *Manager) readLoop(t *Transport) error {
	for {
		if m.stopped() {
			return nil
		}

		line, ok, err := t.PollLine()
		if err != nil {
			return err
		}
		if !ok {
			if !m.sleep(m.cfg.PollInterval) {
				return nil
			}
			continue
		}

		// The device re-announces itself after a reset; acknowledge again
		if strings.TrimSpace(line) == m.cfg.HandshakeMessage {
			if err := t.WriteLine(m.cfg.AckMessage); err != nil {
				return err
			}
			continue
		}

		select {
		case m.lines <- line:
		case <-m.stopSignal():
			return nil
		}
	}
}

// release sends a best-effort reset notice and discards the transport.
func (m *Manager) release(t *Transport, cause error) {
	if err := t.WriteLine(m.cfg.ResetMessage); err != nil && cause == nil {
		log.Printf("Warning: failed to send reset notice to %s: %v", t.Name(), err)
	}
	_ = t.Close()

	m.mu.Lock()
	m.active = nil
	m.connectedSince = time.Time{}
	if cause != nil {
		m.reconnects++
		m.lastError = cause.Error()
	}
	m.mu.Unlock()

	if cause != nil {
		log.Printf("❌ Device connection on %s lost: %v", t.Name(), cause)
	}
	m.setState(StateDisconnected)
}

// setState records a transition and notifies subscribers.
func (m *Manager) setState(state State) {
	m.mu.Lock()
	if m.state == state {
		m.mu.Unlock()
		return
	}
	m.state = state
	status := m.statusLocked()
	m.mu.Unlock()

	metrics.ConnectionTransitions.WithLabelValues(string(state)).Inc()
	if state == StateConnected {
		metrics.LinkConnected.Set(1)
	} else {
		metrics.LinkConnected.Set(0)
	}
	m.pubsub.PublishAll(pubsub.TopicConnectionState, status)
}

func (m *Manager) statusLocked() Status {
	status := Status{
		State:      m.state,
		Reconnects: m.reconnects,
		LastError:  m.lastError,
	}
	if m.active != nil {
		status.Port = m.active.Name()
		since := m.connectedSince.Format(time.RFC3339)
		status.ConnectedSince = &since
	}
	return status
}

func (m *Manager) recordError(err error) {
	m.mu.Lock()
	m.lastError = err.Error()
	m.mu.Unlock()
}

// stopSignal returns the stop channel of the current run.
func (m *Manager) stopSignal() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopChan
}

func (m *Manager) stopped() bool {
	select {
	case <-m.stopSignal():
		return true
	default:
		return false
	}
}

// sleep waits for d and reports false if the manager was stopped meanwhile.
func (m *Manager) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-m.stopSignal():
		return false
	case <-timer.C:
		return true
	}
}
