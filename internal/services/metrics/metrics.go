// Package metrics exposes Prometheus collectors for the exhibit services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DeviceFrames counts device lines by outcome (applied, dropped).
	DeviceFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "museo",
			Name:      "device_frames_total",
			Help:      "Device frames received from the microcontroller, by outcome.",
		},
		[]string{"outcome"},
	)

	// ConnectionTransitions counts serial link state changes by target state.
	ConnectionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "museo",
			Name:      "link_state_transitions_total",
			Help:      "Serial link state transitions, by new state.",
		},
		[]string{"state"},
	)

	// LinkConnected is 1 while a device is connected.
	LinkConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "museo",
			Name:      "link_connected",
			Help:      "Whether the device link is connected.",
		},
	)

	// InstructionsExecuted counts executed sequence instructions by kind.
	InstructionsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "museo",
			Name:      "sequence_instructions_total",
			Help:      "Executed sequence instructions, by kind.",
		},
		[]string{"kind"},
	)

	// InstructionDuration observes instruction execution time by kind.
	InstructionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "museo",
			Name:      "sequence_instruction_seconds",
			Help:      "Time spent executing a sequence instruction, by kind.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	// TriviaAnswers counts trivia answers by outcome (correct, incorrect).
	TriviaAnswers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "museo",
			Name:      "trivia_answers_total",
			Help:      "Trivia answers confirmed by visitors, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		DeviceFrames,
		ConnectionTransitions,
		LinkConnected,
		InstructionsExecuted,
		InstructionDuration,
		TriviaAnswers,
	)
}
