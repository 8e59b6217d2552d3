// Package audio plays narration and feedback clips through the speaker.
package audio

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/bbernstein/museo-go/internal/services/assets"
)

// ErrUnsupportedFormat is returned for files no decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// DefaultSampleRate is the speaker sample rate clips are resampled to.
const DefaultSampleRate = beep.SampleRate(44100)

// device abstracts the speaker so builds without native audio still keep
// clip timing.
type device interface {
	init(rate beep.SampleRate) error
	play(s beep.Streamer)
	lock()
	unlock()
	close()
}

// Output plays one clip at a time. It satisfies playback.AudioOutput.
type Output struct {
	mu sync.Mutex

	resolver   *assets.Resolver
	dev        device
	sampleRate beep.SampleRate

	streamer   beep.StreamSeekCloser
	ctrl       *beep.Ctrl
	playing    bool
	generation uint64
}

// NewOutput creates an output that resolves clips with resolver.
func NewOutput(resolver *assets.Resolver) *Output {
	return newOutput(resolver, newDevice())
}

func newOutput(resolver *assets.Resolver, dev device) *Output {
	return &Output{
		resolver:   resolver,
		dev:        dev,
		sampleRate: DefaultSampleRate,
	}
}

// Play resolves resource, stops the current clip and starts the new one.
func (o *Output) Play(resource string) error {
	file, err := o.resolver.Resolve(assets.ClassAudio, resource)
	if err != nil {
		return err
	}
	streamer, format, err := decode(file)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopLocked()

	if err := o.dev.init(o.sampleRate); err != nil {
		_ = streamer.Close()
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	o.generation++
	gen := o.generation
	o.streamer = streamer
	o.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, o.sampleRate, streamer)}
	o.playing = true

	o.dev.play(beep.Seq(o.ctrl, beep.Callback(func() {
		// Runs with the speaker locked
		go o.finished(gen)
	})))
	return nil
}

// Stop silences the current clip.
func (o *Output) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}

// IsPlaying reports whether a clip is still streaming.
func (o *Output) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.playing
}

// Close stops playback and releases the speaker.
func (o *Output) Close() {
	o.Stop()
	o.dev.close()
}

func (o *Output) stopLocked() {
	if o.ctrl != nil {
		o.dev.lock()
		// A nil streamer ends the sequence on the next buffer
		o.ctrl.Streamer = nil
		o.dev.unlock()
	}
	if o.streamer != nil {
		if err := o.streamer.Close(); err != nil {
			log.Printf("Warning: failed to close audio stream: %v", err)
		}
	}
	o.generation++
	o.streamer = nil
	o.ctrl = nil
	o.playing = false
}

func (o *Output) finished(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.generation != gen {
		return
	}
	if o.streamer != nil {
		_ = o.streamer.Close()
	}
	o.streamer = nil
	o.ctrl = nil
	o.playing = false
}

// decode opens file with the decoder matching its extension.
func decode(file string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(file))
	switch ext {
	case ".wav", ".mp3", ".ogg":
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open %s: %w", file, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	}
	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", file, err)
	}
	return streamer, format, nil
}
