// Package playback provides sequence playback functionality.
package playback

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/bbernstein/museo-go/internal/services/metrics"
	"github.com/bbernstein/museo-go/internal/services/pubsub"
	"github.com/bbernstein/museo-go/pkg/sequence"
)

// State represents the sequence player state.
type State string

const (
	StateIdle     State = "IDLE"
	StatePlaying  State = "PLAYING"
	StatePaused   State = "PAUSED"
	StateFinished State = "FINISHED"
)

// DefaultLoopDelay is the pause before a looping sequence restarts.
const DefaultLoopDelay = time.Second

var (
	// ErrEmptySequence is returned when starting a sequence with nothing playable.
	ErrEmptySequence = errors.New("sequence has no playable instructions")
	// ErrInvalidIndex is returned by JumpTo for an index outside the sequence.
	ErrInvalidIndex = errors.New("instruction index out of range")
	// ErrNoSequence is returned by JumpTo when no sequence has been started.
	ErrNoSequence = errors.New("no sequence loaded")
)

// ImageSink shows and hides images.
type ImageSink interface {
	ShowImage(path string) error
	ClearImage()
}

// TextSink shows and clears display text.
type TextSink interface {
	ShowText(text string)
	ClearText()
}

// AvatarSink changes the avatar expression.
type AvatarSink interface {
	ShowExpression(name string) error
	ClearExpression()
}

// ActionHandler dispatches named actions.
type ActionHandler interface {
	HandleAction(name string) error
}

// TriviaRunner runs a trivia question until it is answered correctly.
// Run must return promptly once ctx is cancelled.
type TriviaRunner interface {
	Run(ctx context.Context, question sequence.Trivia) error
}

// Sinks are the collaborators the player drives. Any of them may be nil.
type Sinks struct {
	Image   ImageSink
	Text    TextSink
	Avatar  AvatarSink
	Actions ActionHandler
	Trivia  TriviaRunner
}

// EventType identifies a playback lifecycle notification.
type EventType string

const (
	EventSequenceStarted      EventType = "SEQUENCE_STARTED"
	EventInstructionStarted   EventType = "INSTRUCTION_STARTED"
	EventInstructionCompleted EventType = "INSTRUCTION_COMPLETED"
	EventSequenceFinished     EventType = "SEQUENCE_FINISHED"
	EventSequenceStopped      EventType = "SEQUENCE_STOPPED"
)

// Event is a lifecycle notification sent to observers.
type Event struct {
	Type        EventType `json:"type"`
	Sequence    string    `json:"sequence"`
	Index       int       `json:"index"`
	Kind        string    `json:"kind,omitempty"`
	Instruction string    `json:"instruction,omitempty"`
}

// Status is a snapshot of the player.
type Status struct {
	State       State   `json:"state"`
	Sequence    string  `json:"sequence,omitempty"`
	Cursor      int     `json:"cursor"`
	Total       int     `json:"total"`
	Current     *string `json:"current,omitempty"`
	Loop        bool    `json:"loop"`
	AudioClip   string  `json:"audioClip,omitempty"`
	LastUpdated string  `json:"lastUpdated"`
}

// Update is the payload published on TopicSequencePlayback.
type Update struct {
	Status Status `json:"status"`
	Event  *Event `json:"event,omitempty"`
}

// Player runs one sequence at a time.
type Player struct {
	// ctrl serializes Start, Stop and JumpTo
	ctrl sync.Mutex
	mu   sync.RWMutex

	audio  *AudioTracker
	sinks  Sinks
	pubsub *pubsub.PubSub

	name         string
	instructions []sequence.Instruction
	cursor       int
	state        State
	loop         bool
	lastUpdated  time.Time

	// Pause gate; resumeChan is closed on Resume
	paused     bool
	resumeChan chan struct{}

	// Current run
	cancel context.CancelFunc
	done   chan struct{}

	observers []func(Event)

	loopDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) bool
}

// NewPlayer creates a sequence player. audio and ps may be nil.
func NewPlayer(audio *AudioTracker, sinks Sinks, ps *pubsub.PubSub) *Player {
	if audio == nil {
		audio = NewAudioTracker(nil, DefaultAudioConfig())
	}
	return &Player{
		audio:       audio,
		sinks:       sinks,
		pubsub:      ps,
		state:       StateIdle,
		lastUpdated: time.Now(),
		loopDelay:   DefaultLoopDelay,
		sleep:       sleepContext,
	}
}

// Audio returns the player's audio tracker.
func (p *Player) Audio() *AudioTracker {
	return p.audio
}

// AddObserver registers a lifecycle observer. Instruction and finish events
// run on the playback goroutine; SEQUENCE_STARTED and SEQUENCE_STOPPED run
// inside Start and Stop. Observers must not call Start, Stop or JumpTo
// synchronously.
func (p *Player) AddObserver(observer func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// SetLoop enables or disables restarting the sequence when it finishes.
func (p *Player) SetLoop(loop bool) {
	p.mu.Lock()
	p.loop = loop
	p.lastUpdated = time.Now()
	p.mu.Unlock()
	p.emitUpdate(nil)
}

// Status returns the current player status.
func (p *Player) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.statusLocked()
}

// Start plays instructions from the beginning, stopping any current run.
// Unknown instructions are dropped.
func (p *Player) Start(name string, instructions []sequence.Instruction) error {
	playable := lo.Filter(instructions, func(inst sequence.Instruction, _ int) bool {
		return sequence.IsPlayable(inst)
	})
	if len(playable) == 0 {
		log.Printf("Warning: sequence %q has no playable instructions, not starting", name)
		return ErrEmptySequence
	}

	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	p.stopLocked()

	p.mu.Lock()
	p.name = name
	p.instructions = playable
	p.mu.Unlock()

	log.Printf("▶️  Starting sequence %q (%s)", name, sequence.Summary(playable))
	p.notify(EventSequenceStarted, -1, nil)
	p.startLocked(0)
	return nil
}

// Stop halts playback, resets the cursor and silences audio.
func (p *Player) Stop() {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	p.stopLocked()
	p.notify(EventSequenceStopped, -1, nil)
}

// JumpTo restarts playback at index.
func (p *Player) JumpTo(index int) error {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	p.mu.RLock()
	total := len(p.instructions)
	p.mu.RUnlock()
	if total == 0 {
		return ErrNoSequence
	}
	if index < 0 || index >= total {
		return ErrInvalidIndex
	}

	p.stopLocked()
	p.startLocked(index)
	return nil
}

// Pause suspends advancement before the next instruction.
func (p *Player) Pause() bool {
	p.mu.Lock()
	if p.state != StatePlaying {
		p.mu.Unlock()
		return false
	}
	p.paused = true
	p.resumeChan = make(chan struct{})
	p.state = StatePaused
	p.lastUpdated = time.Now()
	p.mu.Unlock()

	p.emitUpdate(nil)
	return true
}

// Resume continues a paused sequence.
func (p *Player) Resume() bool {
	p.mu.Lock()
	if p.state != StatePaused {
		p.mu.Unlock()
		return false
	}
	p.openGateLocked()
	p.state = StatePlaying
	p.lastUpdated = time.Now()
	p.mu.Unlock()

	p.emitUpdate(nil)
	return true
}

// stopLocked cancels the current run and waits for it to exit. ctrl must be held.
func (p *Player) stopLocked() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	p.audio.Halt()

	p.mu.Lock()
	p.openGateLocked()
	p.cursor = 0
	p.state = StateIdle
	p.lastUpdated = time.Now()
	p.mu.Unlock()
}

// startLocked launches a run at cursor. ctrl must be held.
func (p *Player) startLocked(cursor int) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.cursor = cursor
	p.state = StatePlaying
	p.cancel = cancel
	p.done = done
	p.lastUpdated = time.Now()
	p.mu.Unlock()

	p.emitUpdate(nil)
	go p.run(ctx, done)
}

func (p *Player) openGateLocked() {
	if p.paused {
		p.paused = false
		close(p.resumeChan)
	}
}

// run is the execution loop of one run. The cursor only moves forward here.
func (p *Player) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		for {
			if !p.waitIfPaused(ctx) {
				return
			}
			index, inst, ok := p.current()
			if !ok {
				break
			}

			p.notify(EventInstructionStarted, index, inst)
			p.execute(ctx, inst)
			if ctx.Err() != nil {
				return
			}
			p.notify(EventInstructionCompleted, index, inst)
			p.advance()
		}

		loop := p.finish()
		p.notify(EventSequenceFinished, -1, nil)
		if !loop {
			return
		}
		if !p.sleep(ctx, p.loopDelay) {
			return
		}
		p.restart()
	}
}

func (p *Player) waitIfPaused(ctx context.Context) bool {
	p.mu.RLock()
	paused, resume := p.paused, p.resumeChan
	p.mu.RUnlock()
	if !paused {
		return ctx.Err() == nil
	}

	select {
	case <-resume:
		return ctx.Err() == nil
	case <-ctx.Done():
		return false
	}
}

func (p *Player) current() (int, sequence.Instruction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cursor >= len(p.instructions) {
		return p.cursor, nil, false
	}
	return p.cursor, p.instructions[p.cursor], true
}

func (p *Player) advance() {
	p.mu.Lock()
	p.cursor++
	p.lastUpdated = time.Now()
	p.mu.Unlock()
}

func (p *Player) finish() bool {
	p.mu.Lock()
	p.openGateLocked()
	p.state = StateFinished
	p.lastUpdated = time.Now()
	name, loop := p.name, p.loop
	p.mu.Unlock()

	log.Printf("⏹️  Sequence %q finished", name)
	return loop
}

func (p *Player) restart() {
	p.mu.Lock()
	p.cursor = 0
	p.state = StatePlaying
	p.lastUpdated = time.Now()
	name := p.name
	p.mu.Unlock()

	log.Printf("🔁 Looping sequence %q", name)
	p.emitUpdate(nil)
}

// execute runs one instruction to completion. Faults are logged and the
// instruction is treated as complete.
func (p *Player) execute(ctx context.Context, inst sequence.Instruction) {
	started := time.Now()
	kind := inst.Kind().String()
	defer func() {
		metrics.InstructionsExecuted.WithLabelValues(kind).Inc()
		metrics.InstructionDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	}()

	switch in := inst.(type) {
	case sequence.Audio:
		p.executeAudio(ctx, in)

	case sequence.Image:
		if p.sinks.Image == nil {
			log.Printf("Warning: no image sink configured, skipping %s", in)
			return
		}
		if in.Clean {
			p.sinks.Image.ClearImage()
			return
		}
		if err := p.sinks.Image.ShowImage(in.Path); err != nil {
			log.Printf("Error showing image %s: %v", in.Path, err)
		}

	case sequence.Text:
		if p.sinks.Text == nil {
			log.Printf("Warning: no text sink configured, skipping %s", in)
			return
		}
		if in.Clean {
			p.sinks.Text.ClearText()
			return
		}
		p.sinks.Text.ShowText(in.Content)

	case sequence.AvatarImage:
		if p.sinks.Avatar == nil {
			log.Printf("Warning: no avatar sink configured, skipping %s", in)
			return
		}
		if in.Clean {
			p.sinks.Avatar.ClearExpression()
			return
		}
		if err := p.sinks.Avatar.ShowExpression(in.Expression); err != nil {
			log.Printf("Error showing avatar expression %s: %v", in.Expression, err)
		}

	case sequence.Wait:
		p.sleep(ctx, in.Duration())

	case sequence.Action:
		if p.sinks.Actions == nil {
			log.Printf("Warning: no action handler configured, skipping %s", in)
			return
		}
		if err := p.sinks.Actions.HandleAction(in.Name); err != nil {
			log.Printf("Error dispatching action %s: %v", in.Name, err)
		}

	case sequence.Trivia:
		if p.sinks.Trivia == nil {
			log.Printf("Warning: no trivia runner configured, skipping %q", in.Question)
			return
		}
		if err := p.sinks.Trivia.Run(ctx, in); err != nil && ctx.Err() == nil {
			log.Printf("Error running trivia %q: %v", in.Question, err)
		}

	case sequence.Unknown:
		log.Printf("Warning: skipping unknown instruction: %s", in)
	}
}

func (p *Player) executeAudio(ctx context.Context, in sequence.Audio) {
	if in.Clean {
		p.audio.Halt()
		return
	}

	err := p.audio.Play(ctx, in.Path)
	switch {
	case err == nil, ctx.Err() != nil:
	case errors.Is(err, ErrAudioStartTimeout):
		log.Printf("Error: audio %s did not start within timeout, continuing", in.Path)
	default:
		log.Printf("Error playing audio: %v", err)
	}
}

// notify sends an event to observers and subscribers. inst is nil for
// sequence-level events.
func (p *Player) notify(eventType EventType, index int, inst sequence.Instruction) {
	p.mu.RLock()
	event := Event{Type: eventType, Sequence: p.name, Index: index}
	observers := append([]func(Event){}, p.observers...)
	p.mu.RUnlock()

	if inst != nil {
		event.Kind = inst.Kind().String()
		event.Instruction = inst.String()
	}

	for _, observer := range observers {
		observer(event)
	}
	p.emitUpdate(&event)
}

func (p *Player) emitUpdate(event *Event) {
	if p.pubsub == nil {
		return
	}
	p.pubsub.PublishAll(pubsub.TopicSequencePlayback, Update{Status: p.Status(), Event: event})
}

func (p *Player) statusLocked() Status {
	status := Status{
		State:       p.state,
		Sequence:    p.name,
		Cursor:      p.cursor,
		Total:       len(p.instructions),
		Loop:        p.loop,
		AudioClip:   p.audio.CurrentClip(),
		LastUpdated: p.lastUpdated.Format(time.RFC3339),
	}
	if p.state != StateIdle && p.cursor < len(p.instructions) {
		current := p.instructions[p.cursor].String()
		status.Current = &current
	}
	return status
}

// sleepContext waits for d and reports false if ctx was cancelled first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
