// Package trivia runs the question-and-answer step of an exhibit sequence.
package trivia

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/bbernstein/museo-go/internal/services/metrics"
	"github.com/bbernstein/museo-go/internal/services/pubsub"
	"github.com/bbernstein/museo-go/pkg/sequence"
)

// State represents the trivia state.
type State string

const (
	StateInactive       State = "INACTIVE"
	StateAwaitingAudio  State = "AWAITING_AUDIO"
	StateAwaitingAnswer State = "AWAITING_ANSWER"
	StateResolved       State = "RESOLVED"
)

// Feedback cue names resolved by the audio output.
const (
	DefaultCorrectCue   = "feedback/correct"
	DefaultIncorrectCue = "feedback/incorrect"
)

// DefaultResolveDelay is how long a resolved question stays on screen.
const DefaultResolveDelay = 2500 * time.Millisecond

var (
	// ErrAlreadyActive is returned by Run while another question is active.
	ErrAlreadyActive = errors.New("a trivia question is already active")
	// ErrNotAwaitingAnswer is returned by input operations outside AwaitingAnswer.
	ErrNotAwaitingAnswer = errors.New("trivia is not awaiting an answer")
	// ErrInvalidAnswer is returned for an answer index outside 0..2.
	ErrInvalidAnswer = errors.New("answer index out of range")
)

// AudioWaiter reports on narration audio.
type AudioWaiter interface {
	IsPlaying() bool
	WaitForFinish(ctx context.Context) error
}

// CuePlayer plays short feedback clips.
type CuePlayer interface {
	PlayCue(ctx context.Context, clip string) error
}

// Display shows the question to the visitor.
type Display interface {
	ShowTrivia(view View)
	HideTrivia()
}

// Feedback is the result shown for the last confirmed answer.
type Feedback string

const (
	FeedbackNone      Feedback = ""
	FeedbackCorrect   Feedback = "CORRECT"
	FeedbackIncorrect Feedback = "INCORRECT"
)

// View is what the kiosk needs to render the question.
type View struct {
	State       State                        `json:"state"`
	Question    string                       `json:"question,omitempty"`
	Answers     [sequence.AnswerCount]string `json:"answers"`
	Highlighted int                          `json:"highlighted"`
	Feedback    Feedback                     `json:"feedback,omitempty"`
	Attempts    int                          `json:"attempts"`
}

// FragmentFound is sent once per correctly answered question.
type FragmentFound struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Attempts int       `json:"attempts"`
	FoundAt  time.Time `json:"foundAt"`
}

// Outcome is the result of a selection.
type Outcome struct {
	Correct bool `json:"correct"`
	Index   int  `json:"index"`
}

// Config holds controller configuration.
type Config struct {
	ResolveDelay time.Duration
	CorrectCue   string
	IncorrectCue string
}

// Controller is the trivia sub-state machine. Run is called by the sequence
// player; the input operations come from the kiosk or the device joystick.
type Controller struct {
	mu sync.Mutex

	cfg     Config
	audio   AudioWaiter
	cues    CuePlayer
	display Display
	pubsub  *pubsub.PubSub

	state       State
	question    sequence.Trivia
	highlighted int
	feedback    Feedback
	attempts    int
	resolved    chan struct{}
	runCtx      context.Context

	observers []func(FragmentFound)
}

// NewController creates a trivia controller. Any collaborator may be nil.
func NewController(cfg Config, audio AudioWaiter, cues CuePlayer, display Display, ps *pubsub.PubSub) *Controller {
	if cfg.ResolveDelay < 0 {
		cfg.ResolveDelay = 0
	}
	if cfg.CorrectCue == "" {
		cfg.CorrectCue = DefaultCorrectCue
	}
	if cfg.IncorrectCue == "" {
		cfg.IncorrectCue = DefaultIncorrectCue
	}
	return &Controller{
		cfg:     cfg,
		audio:   audio,
		cues:    cues,
		display: display,
		pubsub:  ps,
		state:   StateInactive,
	}
}

// OnFragmentFound registers a callback for correctly answered questions.
func (c *Controller) OnFragmentFound(callback func(FragmentFound)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, callback)
}

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run shows the question and blocks until it is answered correctly and the
// resolve delay has passed, or until ctx is cancelled.
func (c *Controller) Run(ctx context.Context, question sequence.Trivia) error {
	c.mu.Lock()
	if c.state != StateInactive {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	c.question = question
	c.highlighted = 0
	c.feedback = FeedbackNone
	c.attempts = 0
	c.resolved = make(chan struct{})
	c.runCtx = ctx
	resolved := c.resolved
	c.mu.Unlock()

	defer c.reset()

	if c.audio != nil && c.audio.IsPlaying() {
		c.setState(StateAwaitingAudio)
		if err := c.audio.WaitForFinish(ctx); err != nil {
			return err
		}
	}

	c.setState(StateAwaitingAnswer)
	log.Printf("❓ Trivia: %s", question.Question)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-resolved:
	}

	if c.cfg.ResolveDelay > 0 {
		timer := time.NewTimer(c.cfg.ResolveDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Highlight moves the highlight to answer index without confirming.
func (c *Controller) Highlight(index int) error {
	c.mu.Lock()
	if c.state != StateAwaitingAnswer {
		c.mu.Unlock()
		return ErrNotAwaitingAnswer
	}
	if index < 0 || index >= sequence.AnswerCount {
		c.mu.Unlock()
		return ErrInvalidAnswer
	}
	c.highlighted = index
	c.showLocked()
	c.mu.Unlock()
	return nil
}

// Move shifts the highlight by delta, wrapping around the answers.
func (c *Controller) Move(delta int) error {
	c.mu.Lock()
	if c.state != StateAwaitingAnswer {
		c.mu.Unlock()
		return ErrNotAwaitingAnswer
	}
	next := ((c.highlighted+delta)%sequence.AnswerCount + sequence.AnswerCount) % sequence.AnswerCount
	c.mu.Unlock()

	return c.Highlight(next)
}

// Confirm selects the highlighted answer.
func (c *Controller) Confirm() (Outcome, error) {
	c.mu.Lock()
	index := c.highlighted
	c.mu.Unlock()

	return c.Select(index)
}

// Select answers with the 0-based index. A wrong answer may be retried.
func (c *Controller) Select(index int) (Outcome, error) {
	c.mu.Lock()
	if c.state != StateAwaitingAnswer {
		c.mu.Unlock()
		return Outcome{}, ErrNotAwaitingAnswer
	}
	if index < 0 || index >= sequence.AnswerCount {
		c.mu.Unlock()
		return Outcome{}, ErrInvalidAnswer
	}

	c.highlighted = index
	c.attempts++
	correct := c.question.IsCorrect(index)
	cue := c.cfg.IncorrectCue
	if correct {
		cue = c.cfg.CorrectCue
		c.feedback = FeedbackCorrect
		c.state = StateResolved
		close(c.resolved)
	} else {
		c.feedback = FeedbackIncorrect
	}
	c.showLocked()
	found := FragmentFound{
		Question: c.question.Question,
		Answer:   c.question.Answers[index],
		Attempts: c.attempts,
		FoundAt:  time.Now(),
	}
	observers := append([]func(FragmentFound){}, c.observers...)
	ctx := c.runCtx
	c.mu.Unlock()

	outcome := Outcome{Correct: correct, Index: index}
	c.playCue(ctx, cue)

	if !correct {
		metrics.TriviaAnswers.WithLabelValues("incorrect").Inc()
		log.Printf("❌ Trivia answer %d is incorrect", index+1)
		return outcome, nil
	}

	metrics.TriviaAnswers.WithLabelValues("correct").Inc()
	log.Printf("✅ Trivia answered correctly after %d attempt(s)", found.Attempts)
	for _, observer := range observers {
		observer(found)
	}
	c.pubsub.PublishAll(pubsub.TopicFragmentFound, found)
	return outcome, nil
}

// playCue plays feedback in the background so input handling never waits on
// audio.
func (c *Controller) playCue(ctx context.Context, clip string) {
	if c.cues == nil || ctx == nil {
		return
	}
	go func() {
		if err := c.cues.PlayCue(ctx, clip); err != nil && ctx.Err() == nil {
			log.Printf("Warning: failed to play feedback cue %s: %v", clip, err)
		}
	}()
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.showLocked()
}

// showLocked pushes the view to the display. Holding mu keeps a late input
// from redrawing a question that reset already hid.
func (c *Controller) showLocked() {
	view := c.viewLocked()
	if c.display != nil && (view.State == StateAwaitingAnswer || view.State == StateResolved) {
		c.display.ShowTrivia(view)
	}
	c.pubsub.PublishAll(pubsub.TopicTrivia, view)
}

// reset hides the question and returns to Inactive.
func (c *Controller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateInactive
	c.question = sequence.Trivia{}
	c.highlighted = 0
	c.feedback = FeedbackNone
	c.runCtx = nil

	if c.display != nil {
		c.display.HideTrivia()
	}
	c.pubsub.PublishAll(pubsub.TopicTrivia, c.viewLocked())
}

func (c *Controller) viewLocked() View {
	return View{
		State:       c.state,
		Question:    c.question.Question,
		Answers:     c.question.Answers,
		Highlighted: c.highlighted,
		Feedback:    c.feedback,
		Attempts:    c.attempts,
	}
}
