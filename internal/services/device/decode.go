// Package device decodes microcontroller frames and keeps the latest device readings.
package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Field names used on the wire.
const (
	FieldRFID     = "RFID"
	FieldJoystick = "JOYSTICK"
	FieldPot      = "POT"
	FieldButton   = "BUTTON"
)

// KnownFields lists every field the device may report.
var KnownFields = []string{FieldRFID, FieldJoystick, FieldPot, FieldButton}

var (
	// ErrUnknownKey is returned for frames naming a field outside KnownFields.
	ErrUnknownKey = errors.New("unknown device field")
	// ErrMalformedFrame is returned for lines that cannot be decoded at all.
	ErrMalformedFrame = errors.New("malformed device frame")
)

// Frame is one decoded update. Nil fields were not part of the update.
type Frame struct {
	RFID     *string
	Joystick *string
	Pot      *string
	Button   *string

	// Rejected holds keys present in the frame that are not known fields.
	Rejected []string
}

// IsEmpty reports whether the frame carries no known field.
func (f Frame) IsEmpty() bool {
	return f.RFID == nil && f.Joystick == nil && f.Pot == nil && f.Button == nil
}

// set assigns a known field by wire name.
func (f *Frame) set(key, value string) bool {
	v := value
	switch key {
	case FieldRFID:
		f.RFID = &v
	case FieldJoystick:
		f.Joystick = &v
	case FieldPot:
		f.Pot = &v
	case FieldButton:
		f.Button = &v
	default:
		return false
	}
	return true
}

// WireFormat selects the frame encoding used by a deployment.
type WireFormat string

const (
	WireFormatText WireFormat = "text"
	WireFormatJSON WireFormat = "json"
)

// Decoder turns one received line into a frame.
type Decoder interface {
	Decode(line string) (Frame, error)
}

// NewDecoder returns the decoder for a wire format, defaulting to text.
func NewDecoder(format WireFormat) Decoder {
	if strings.EqualFold(string(format), string(WireFormatJSON)) {
		return JSONDecoder{}
	}
	return TextDecoder{}
}

// TextDecoder decodes `KEY=VALUE` lines. Keys are case-sensitive and the
// value is kept verbatim.
type TextDecoder struct{}

// Decode implements Decoder.
func (TextDecoder) Decode(line string) (Frame, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return Frame{}, fmt.Errorf("%w: missing '=' in %q", ErrMalformedFrame, line)
	}

	var frame Frame
	if !frame.set(key, value) {
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return frame, nil
}

// JSONDecoder decodes single-line JSON objects such as
// {"RFID":"04A1","JOYSTICK":"512-600"}. Absent fields stay nil.
type JSONDecoder struct{}

// Decode implements Decoder.
func (JSONDecoder) Decode(line string) (Frame, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	var frame Frame
	for key, value := range raw {
		if !lo.Contains(KnownFields, key) {
			frame.Rejected = append(frame.Rejected, key)
			continue
		}
		s, ok := jsonScalar(value)
		if !ok {
			continue
		}
		frame.set(key, s)
	}
	sort.Strings(frame.Rejected)

	if len(frame.Rejected) > 0 {
		return frame, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(frame.Rejected, ", "))
	}
	return frame, nil
}

// jsonScalar renders a JSON string, number or bool as a string. Null and
// composite values are skipped.
func jsonScalar(value json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[':
		return "", false
	default:
		return trimmed, true
	}
}
