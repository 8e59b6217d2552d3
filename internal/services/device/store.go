package device

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bbernstein/museo-go/internal/services/metrics"
	"github.com/bbernstein/museo-go/internal/services/pubsub"
)

// State is a point-in-time copy of the store. Fields from different frames
// may be mixed; each field on its own is always a complete value.
type State struct {
	RFID        *string `json:"rfid,omitempty"`
	Joystick    *string `json:"joystick,omitempty"`
	Pot         *string `json:"pot,omitempty"`
	Button      *string `json:"button,omitempty"`
	PotLevel    *int    `json:"potLevel,omitempty"`
	FrameCount  int64   `json:"frameCount"`
	LastUpdated *string `json:"lastUpdated,omitempty"`
}

// Store holds the latest value of each device field. It has a single writer
// (Run or HandleLine) and any number of lock-free readers.
type Store struct {
	rfid     atomic.Pointer[string]
	joystick atomic.Pointer[string]
	pot      atomic.Pointer[string]
	button   atomic.Pointer[string]

	frames      atomic.Int64
	lastUpdated atomic.Pointer[time.Time]

	decoder Decoder
	pubsub  *pubsub.PubSub
}

// NewStore creates a store decoding lines with the given decoder.
// ps may be nil.
func NewStore(decoder Decoder, ps *pubsub.PubSub) *Store {
	if decoder == nil {
		decoder = TextDecoder{}
	}
	return &Store{
		decoder: decoder,
		pubsub:  ps,
	}
}

// Run applies every line received until ctx is done or lines is closed.
func (s *Store) Run(ctx context.Context, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			_ = s.HandleLine(line)
		}
	}
}

// HandleLine decodes one line and merges it into the store. Frames that fail
// to decode are dropped with a warning and leave the store untouched.
func (s *Store) HandleLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	frame, err := s.decoder.Decode(line)
	if err != nil {
		metrics.DeviceFrames.WithLabelValues("dropped").Inc()
		log.Printf("Warning: dropping device frame %q: %v", line, err)
		return err
	}
	if frame.IsEmpty() {
		metrics.DeviceFrames.WithLabelValues("dropped").Inc()
		return nil
	}

	s.Apply(frame)
	metrics.DeviceFrames.WithLabelValues("applied").Inc()
	s.pubsub.PublishAll(pubsub.TopicDeviceFrame, s.Snapshot())
	return nil
}

// Apply overwrites the fields present in the frame. Absent fields keep their
// previous values.
func (s *Store) Apply(frame Frame) {
	if frame.RFID != nil {
		s.rfid.Store(frame.RFID)
	}
	if frame.Joystick != nil {
		s.joystick.Store(frame.Joystick)
	}
	if frame.Pot != nil {
		s.pot.Store(frame.Pot)
	}
	if frame.Button != nil {
		s.button.Store(frame.Button)
	}
	now := time.Now()
	s.lastUpdated.Store(&now)
	s.frames.Add(1)
}

// RFID returns the last RFID tag reported, if any.
func (s *Store) RFID() (string, bool) { return load(&s.rfid) }

// Joystick returns the last raw joystick reading, if any.
func (s *Store) Joystick() (string, bool) { return load(&s.joystick) }

// Pot returns the last raw potentiometer reading, if any.
func (s *Store) Pot() (string, bool) { return load(&s.pot) }

// Button returns the last raw button reading, if any.
func (s *Store) Button() (string, bool) { return load(&s.button) }

// JoystickAxes returns the joystick position normalized to [-1, 1].
// ok is false when no valid reading has been received.
func (s *Store) JoystickAxes(deadzone float64) (x, y float64, ok bool) {
	raw, present := s.Joystick()
	if !present {
		return 0, 0, false
	}
	x, y, err := NormalizeJoystick(raw, deadzone)
	if err != nil {
		return 0, 0, false
	}
	return x, y, true
}

// PotValue returns the potentiometer reading as an integer in 0-1023.
func (s *Store) PotValue() (int, bool) {
	raw, present := s.Pot()
	if !present {
		return 0, false
	}
	v, err := ParsePot(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ButtonPressed reports whether the last button reading means pressed.
func (s *Store) ButtonPressed() bool {
	raw, present := s.Button()
	return present && IsPressed(raw)
}

// FrameCount returns the number of frames applied so far.
func (s *Store) FrameCount() int64 {
	return s.frames.Load()
}

// Snapshot returns a copy of all fields.
func (s *Store) Snapshot() State {
	state := State{
		RFID:       copyPtr(s.rfid.Load()),
		Joystick:   copyPtr(s.joystick.Load()),
		Pot:        copyPtr(s.pot.Load()),
		Button:     copyPtr(s.button.Load()),
		FrameCount: s.frames.Load(),
	}
	if level, ok := s.PotValue(); ok {
		state.PotLevel = &level
	}
	if t := s.lastUpdated.Load(); t != nil {
		formatted := t.Format(time.RFC3339Nano)
		state.LastUpdated = &formatted
	}
	return state
}

func load(p *atomic.Pointer[string]) (string, bool) {
	v := p.Load()
	if v == nil {
		return "", false
	}
	return *v, true
}

func copyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
