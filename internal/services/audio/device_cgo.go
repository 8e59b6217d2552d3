//go:build (linux && cgo) || windows || darwin

package audio

import (
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Available indicates whether this build drives a real speaker.
const Available = true

// speakerDevice plays through the system audio device.
type speakerDevice struct {
	initialized bool
}

func newDevice() device {
	return &speakerDevice{}
}

func (d *speakerDevice) init(rate beep.SampleRate) error {
	if d.initialized {
		return nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return err
	}
	d.initialized = true
	return nil
}

func (d *speakerDevice) play(s beep.Streamer) { speaker.Play(s) }
func (d *speakerDevice) lock()                { speaker.Lock() }
func (d *speakerDevice) unlock()              { speaker.Unlock() }

func (d *speakerDevice) close() {
	if d.initialized {
		speaker.Close()
		d.initialized = false
	}
}
