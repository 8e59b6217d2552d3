// Package link manages the serial connection to the exhibit microcontroller.
package link

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// readChunkSize is the number of bytes requested per port read.
	readChunkSize = 256
	// maxLineLength bounds the pending buffer when no newline arrives.
	maxLineLength = 4096
)

// ErrTransportClosed is returned when using a transport after Close.
var ErrTransportClosed = errors.New("transport closed")

// Port is the byte-level connection a Transport wraps.
// go.bug.st/serial ports satisfy it.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	Drain() error
}

// Transport frames a byte stream into newline-terminated lines.
type Transport struct {
	name string
	port Port

	// buf and chunk are only touched by the polling goroutine.
	buf   []byte
	chunk []byte

	mu     sync.Mutex
	closed bool
}

// NewTransport wraps an open port.
func NewTransport(name string, port Port) *Transport {
	return &Transport{
		name:  name,
		port:  port,
		chunk: make([]byte, readChunkSize),
	}
}

// Name returns the port name the transport was opened on.
func (t *Transport) Name() string {
	return t.name
}

// PollLine returns the next complete line if one is available. It waits at
// most the port read timeout. Timeouts report ok=false with no error; any
// other read error is returned and the transport should be discarded.
func (t *Transport) PollLine() (line string, ok bool, err error) {
	if line, ok := t.nextBuffered(); ok {
		return line, true, nil
	}

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return "", false, ErrTransportClosed
	}

	n, err := t.port.Read(t.chunk)
	if n > 0 {
		t.buf = append(t.buf, t.chunk[:n]...)
	}
	if err != nil && !isTimeout(err) {
		return "", false, fmt.Errorf("read %s: %w", t.name, err)
	}

	if len(t.buf) > maxLineLength && bytes.IndexByte(t.buf, '\n') < 0 {
		log.Printf("Warning: discarding %d bytes without newline from %s", len(t.buf), t.name)
		t.buf = t.buf[:0]
	}

	line, ok = t.nextBuffered()
	return line, ok, nil
}

// WriteLine writes s followed by a newline and flushes the port.
func (t *Transport) WriteLine(s string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	if _, err := t.port.Write([]byte(s + "\n")); err != nil {
		return fmt.Errorf("write %s: %w", t.name, err)
	}
	if err := t.port.Drain(); err != nil {
		return fmt.Errorf("flush %s: %w", t.name, err)
	}
	return nil
}

// Close closes the underlying port. It is safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.port.Close()
}

// nextBuffered pops one complete line from the buffer.
func (t *Transport) nextBuffered() (string, bool) {
	i := bytes.IndexByte(t.buf, '\n')
	if i < 0 {
		return "", false
	}
	raw := t.buf[:i]
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	line := strings.ToValidUTF8(string(raw), "\uFFFD")

	rest := copy(t.buf, t.buf[i+1:])
	t.buf = t.buf[:rest]
	return line, true
}

// isTimeout reports whether err only means no data arrived in time.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
