package trivia

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeDevice struct {
	y       float64
	hasAxes bool
	pressed bool
}

func (d *fakeDevice) JoystickAxes(float64) (float64, float64, bool) {
	return 0, d.y, d.hasAxes
}

func (d *fakeDevice) ButtonPressed() bool { return d.pressed }

type recordingAnswerer struct {
	moves    []int
	confirms int
	err      error
}

func (r *recordingAnswerer) Move(delta int) error {
	if r.err != nil {
		return r.err
	}
	r.moves = append(r.moves, delta)
	return nil
}

func (r *recordingAnswerer) Confirm() (Outcome, error) {
	if r.err != nil {
		return Outcome{}, r.err
	}
	r.confirms++
	return Outcome{}, nil
}

func newTestInput(device *fakeDevice, target Answerer, clock *time.Time) *JoystickInput {
	j := NewJoystickInput(InputConfig{Threshold: 0.5, Cooldown: 100 * time.Millisecond}, device, target)
	j.now = func() time.Time { return *clock }
	return j
}

func TestJoystickInput_EdgeDetection(t *testing.T) {
	device := &fakeDevice{hasAxes: true}
	target := &recordingAnswerer{}
	clock := time.Unix(0, 0)
	j := newTestInput(device, target, &clock)

	device.y = -0.9 // push down
	j.Poll()
	clock = clock.Add(time.Second)
	j.Poll() // held, no new edge
	assert.Equal(t, []int{1}, target.moves)

	device.y = 0
	j.Poll()
	device.y = 0.8 // push up
	clock = clock.Add(time.Second)
	j.Poll()
	assert.Equal(t, []int{1, -1}, target.moves)

	device.y = 0.3 // below threshold
	clock = clock.Add(time.Second)
	j.Poll()
	assert.Len(t, target.moves, 2)
}

func TestJoystickInput_ButtonConfirmsOnPress(t *testing.T) {
	device := &fakeDevice{}
	target := &recordingAnswerer{}
	clock := time.Unix(0, 0)
	j := newTestInput(device, target, &clock)

	device.pressed = true
	j.Poll()
	clock = clock.Add(time.Second)
	j.Poll()
	assert.Equal(t, 1, target.confirms, "holding the button confirms once")

	device.pressed = false
	j.Poll()
	device.pressed = true
	clock = clock.Add(time.Second)
	j.Poll()
	assert.Equal(t, 2, target.confirms)
}

func TestJoystickInput_Cooldown(t *testing.T) {
	device := &fakeDevice{hasAxes: true}
	target := &recordingAnswerer{}
	clock := time.Unix(0, 0)
	j := newTestInput(device, target, &clock)

	device.y = -1
	j.Poll()
	device.y = 0
	j.Poll()
	device.y = -1
	clock = clock.Add(50 * time.Millisecond)
	j.Poll()
	assert.Equal(t, []int{1}, target.moves, "second push inside the cooldown is dropped")

	device.y = 0
	j.Poll()
	device.y = -1
	clock = clock.Add(100 * time.Millisecond)
	j.Poll()
	assert.Equal(t, []int{1, 1}, target.moves)
}

func TestJoystickInput_IgnoredWhenNoQuestion(t *testing.T) {
	device := &fakeDevice{pressed: true}
	target := &recordingAnswerer{err: ErrNotAwaitingAnswer}
	clock := time.Unix(0, 0)
	j := newTestInput(device, target, &clock)

	j.Poll()
	assert.True(t, j.lastFired.IsZero(), "rejected input does not start the cooldown")
}

func TestJoystickInput_DrivesController(t *testing.T) {
	c := NewController(Config{}, nil, nil, nil, nil)
	device := &fakeDevice{hasAxes: true}
	clock := time.Unix(0, 0)
	j := newTestInput(device, c, &clock)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	result := runAsync(ctx, c, question(t))
	waitState(t, c, StateAwaitingAnswer)

	device.y = -1
	j.Poll()
	assert.Equal(t, 1, c.View().Highlighted)

	device.y = 0
	device.pressed = true
	clock = clock.Add(time.Second)
	j.Poll()

	assert.NoError(t, <-result)
}
