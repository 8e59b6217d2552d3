package device

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// AxisCenter is the raw reading of a centered joystick axis.
	AxisCenter = 512
	// AxisMax is the largest raw reading of an axis or potentiometer.
	AxisMax = 1023
)

// ParseJoystick splits a raw "X-Y" reading into its two integers.
func ParseJoystick(raw string) (x, y int, err error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: joystick value %q is not X-Y", ErrMalformedFrame, raw)
	}
	x, err = strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: joystick x %q", ErrMalformedFrame, xs)
	}
	y, err = strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: joystick y %q", ErrMalformedFrame, ys)
	}
	return x, y, nil
}

// NormalizeAxis maps a raw 0-1023 reading to [-1, 1] around AxisCenter.
// Values whose magnitude is below deadzone become exactly 0.
func NormalizeAxis(raw int, deadzone float64) float64 {
	v := float64(raw-AxisCenter) / float64(AxisMax-AxisCenter)
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	if v < deadzone && v > -deadzone {
		return 0
	}
	return v
}

// NormalizeJoystick parses and normalizes a raw "X-Y" reading.
func NormalizeJoystick(raw string, deadzone float64) (x, y float64, err error) {
	rx, ry, err := ParseJoystick(raw)
	if err != nil {
		return 0, 0, err
	}
	return NormalizeAxis(rx, deadzone), NormalizeAxis(ry, deadzone), nil
}

// ParsePot parses a potentiometer reading clamped to 0-1023.
func ParsePot(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: pot value %q", ErrMalformedFrame, raw)
	}
	if v < 0 {
		v = 0
	} else if v > AxisMax {
		v = AxisMax
	}
	return v, nil
}

// IsPressed reports whether a raw button value means pressed.
func IsPressed(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "pressed", "true", "on", "down":
		return true
	}
	return false
}
