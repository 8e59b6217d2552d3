package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAreRegistered(t *testing.T) {
	// Touch every vector so it reports a series
	DeviceFrames.WithLabelValues("applied")
	ConnectionTransitions.WithLabelValues("SEARCHING")
	InstructionsExecuted.WithLabelValues("Text")
	InstructionDuration.WithLabelValues("Text")
	TriviaAnswers.WithLabelValues("correct")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	for _, name := range []string{
		"museo_device_frames_total",
		"museo_link_state_transitions_total",
		"museo_link_connected",
		"museo_sequence_instructions_total",
		"museo_sequence_instruction_seconds",
		"museo_trivia_answers_total",
	} {
		assert.True(t, names[name], "%s is not registered", name)
	}
}

func TestCountersIncrement(t *testing.T) {
	dropped := DeviceFrames.WithLabelValues("dropped")
	before := testutil.ToFloat64(dropped)
	dropped.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(dropped))

	LinkConnected.Set(1)
	assert.Equal(t, float64(1), testutil.ToFloat64(LinkConnected))
	LinkConnected.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(LinkConnected))
}
