package trivia

import (
	"context"
	"errors"
	"log"
	"time"
)

// DeviceReader is the subset of the device store the joystick input reads.
type DeviceReader interface {
	JoystickAxes(deadzone float64) (x, y float64, ok bool)
	ButtonPressed() bool
}

// Answerer receives discrete trivia input.
type Answerer interface {
	Move(delta int) error
	Confirm() (Outcome, error)
}

// InputConfig holds joystick input tuning.
type InputConfig struct {
	Deadzone     float64
	Threshold    float64 // Normalized Y magnitude that counts as a push
	Cooldown     time.Duration
	PollInterval time.Duration
}

// DefaultInputConfig returns the reference tuning.
func DefaultInputConfig() InputConfig {
	return InputConfig{
		Deadzone:     0.1,
		Threshold:    0.6,
		Cooldown:     300 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
	}
}

// JoystickInput turns joystick pushes into Move and button presses into
// Confirm. Each push or press fires once on its leading edge.
type JoystickInput struct {
	cfg    InputConfig
	device DeviceReader
	target Answerer

	// Edge state, only touched by the polling goroutine
	lastDirection int
	lastPressed   bool
	lastFired     time.Time
	now           func() time.Time
}

// NewJoystickInput creates a joystick input adapter.
func NewJoystickInput(cfg InputConfig, device DeviceReader, target Answerer) *JoystickInput {
	def := DefaultInputConfig()
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Deadzone < 0 {
		cfg.Deadzone = 0
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	return &JoystickInput{cfg: cfg, device: device, target: target, now: time.Now}
}

// Run polls the device until ctx is done.
func (j *JoystickInput) Run(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Poll()
		}
	}
}

// Poll reads the device once and fires at most one input.
func (j *JoystickInput) Poll() {
	direction := 0
	if _, y, ok := j.device.JoystickAxes(j.cfg.Deadzone); ok {
		// Positive Y is a push up, which moves toward the first answer
		switch {
		case y >= j.cfg.Threshold:
			direction = -1
		case y <= -j.cfg.Threshold:
			direction = 1
		}
	}
	pressed := j.device.ButtonPressed()

	pushEdge := direction != 0 && direction != j.lastDirection
	pressEdge := pressed && !j.lastPressed
	j.lastDirection = direction
	j.lastPressed = pressed

	if !pushEdge && !pressEdge {
		return
	}
	now := j.now()
	if !j.lastFired.IsZero() && now.Sub(j.lastFired) < j.cfg.Cooldown {
		return
	}

	var err error
	if pressEdge {
		_, err = j.target.Confirm()
	} else {
		err = j.target.Move(direction)
	}
	if err != nil {
		if !errors.Is(err, ErrNotAwaitingAnswer) {
			log.Printf("Warning: joystick input rejected: %v", err)
		}
		return
	}
	j.lastFired = now
}
