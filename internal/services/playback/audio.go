package playback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrAudioStartTimeout is returned when a clip never reports playing.
var ErrAudioStartTimeout = errors.New("audio playback did not start")

// AudioOutput is the device that actually plays clips.
// Play starts a clip and may return before the output reports IsPlaying.
type AudioOutput interface {
	Play(path string) error
	Stop()
	IsPlaying() bool
}

// AudioConfig holds audio tracker timing.
type AudioConfig struct {
	StartTimeout time.Duration // Bound on waiting for a clip to begin
	SettleDelay  time.Duration // Pause after start before the started callback
	PollInterval time.Duration // Monitor poll period
}

// DefaultAudioConfig returns the reference timing.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		StartTimeout: 2 * time.Second,
		SettleDelay:  50 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
	}
}

// AudioTracker tracks the single narration clip allowed to play at a time.
type AudioTracker struct {
	mu sync.Mutex

	output AudioOutput
	cfg    AudioConfig

	playing    bool
	clip       string
	generation uint64
	finished   chan struct{}

	// Called after a narration clip has started and settled
	onStarted func(clip string)
}

// NewAudioTracker creates a tracker. output may be nil, in which case every
// clip is logged and skipped.
func NewAudioTracker(output AudioOutput, cfg AudioConfig) *AudioTracker {
	def := DefaultAudioConfig()
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = def.StartTimeout
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	return &AudioTracker{output: output, cfg: cfg}
}

// SetStartedCallback sets the callback fired once a narration clip is playing.
func (a *AudioTracker) SetStartedCallback(callback func(clip string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStarted = callback
}

// IsPlaying reports whether a tracked clip is still playing.
func (a *AudioTracker) IsPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

// CurrentClip returns the clip being played, or "".
func (a *AudioTracker) CurrentClip() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.playing {
		return ""
	}
	return a.clip
}

// WaitForFinish blocks until no clip is playing or ctx is done.
func (a *AudioTracker) WaitForFinish(ctx context.Context) error {
	a.mu.Lock()
	if !a.playing {
		a.mu.Unlock()
		return nil
	}
	finished := a.finished
	a.mu.Unlock()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Play waits for the previous clip to finish, starts clip and returns once
// it is playing. It does not wait for the clip to end.
func (a *AudioTracker) Play(ctx context.Context, clip string) error {
	return a.play(ctx, clip, true)
}

// PlayCue plays a short feedback clip. It follows the same one-clip rule as
// narration but does not fire the started callback.
func (a *AudioTracker) PlayCue(ctx context.Context, clip string) error {
	return a.play(ctx, clip, false)
}

func (a *AudioTracker) play(ctx context.Context, clip string, notify bool) error {
	if err := a.WaitForFinish(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	// A run cancelled while waiting must not start a clip after Halt
	if err := ctx.Err(); err != nil {
		a.mu.Unlock()
		return err
	}
	if a.output == nil {
		a.mu.Unlock()
		log.Printf("Warning: no audio output configured, skipping %s", clip)
		return nil
	}

	// Force-stop anything left over before starting the new source
	a.output.Stop()
	a.generation++
	gen := a.generation
	if err := a.output.Play(clip); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("failed to play %s: %w", clip, err)
	}
	a.playing = true
	a.clip = clip
	a.finished = make(chan struct{})
	output := a.output
	a.mu.Unlock()

	if err := a.awaitStart(ctx, output); err != nil {
		a.finish(gen)
		return err
	}

	go a.monitor(gen, output)

	if a.cfg.SettleDelay > 0 {
		timer := time.NewTimer(a.cfg.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if notify {
		a.mu.Lock()
		callback := a.onStarted
		a.mu.Unlock()
		if callback != nil && ctx.Err() == nil {
			callback(clip)
		}
	}
	return nil
}

// awaitStart polls the output until it reports playing.
func (a *AudioTracker) awaitStart(ctx context.Context, output AudioOutput) error {
	deadline := time.NewTimer(a.cfg.StartTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if output.IsPlaying() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrAudioStartTimeout
		case <-ticker.C:
		}
	}
}

// monitor flips the playing flag off once the output stops.
func (a *AudioTracker) monitor(gen uint64, output AudioOutput) {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for range ticker.C {
		a.mu.Lock()
		current := a.generation == gen && a.playing
		a.mu.Unlock()
		if !current {
			return
		}
		if !output.IsPlaying() {
			a.finish(gen)
			return
		}
	}
}

// finish clears the playing flag for generation gen exactly once.
func (a *AudioTracker) finish(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.generation != gen || !a.playing {
		return
	}
	a.playing = false
	a.clip = ""
	close(a.finished)
}

// Halt stops the current clip immediately.
func (a *AudioTracker) Halt() {
	a.mu.Lock()
	if a.output != nil {
		a.output.Stop()
	}
	gen := a.generation
	a.mu.Unlock()

	a.finish(gen)
}
