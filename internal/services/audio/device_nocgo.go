//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// Available indicates whether this build drives a real speaker.
// Native audio requires cgo on Linux.
const Available = false

// clockDevice consumes streams in real time without producing sound, so
// sequences keep their pacing on headless builds.
type clockDevice struct {
	mu   sync.Mutex
	rate beep.SampleRate
}

func newDevice() device {
	return &clockDevice{}
}

func (d *clockDevice) init(rate beep.SampleRate) error {
	d.rate = rate
	return nil
}

func (d *clockDevice) play(s beep.Streamer) {
	const tick = 50 * time.Millisecond
	buf := make([][2]float64, d.rate.N(tick))

	go func() {
		for {
			d.mu.Lock()
			_, ok := s.Stream(buf)
			d.mu.Unlock()
			if !ok {
				return
			}
			time.Sleep(tick)
		}
	}()
}

func (d *clockDevice) lock()   { d.mu.Lock() }
func (d *clockDevice) unlock() { d.mu.Unlock() }
func (d *clockDevice) close()  {}
