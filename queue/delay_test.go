package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelaySeconds(t *testing.T) {
	now := time.Now()
	const nativeMax = int32(900)

	tests := []struct {
		name  string
		delay Delay
		want  int32
	}{
		{"immediate", Immediate{}, 0},
		{"fixed passes through", FixedDelay{Seconds: 45}, 45},
		{"fixed is not clamped", FixedDelay{Seconds: 5000}, 5000},
		{"process-after within ceiling", ProcessAfter{At: now.Add(50 * time.Second)}, 50},
		{"process-after beyond ceiling clamps", ProcessAfter{At: now.Add(2 * time.Hour)}, nativeMax},
		{"process-after in the past sends immediately", ProcessAfter{At: now.Add(-time.Minute)}, 0},
		{"process-after honors override ceiling", ProcessAfter{At: now.Add(2 * time.Hour), MaxVisibilityTimeout: 600}, 600},
		{"override above remaining has no effect", ProcessAfter{At: now.Add(10 * time.Second), MaxVisibilityTimeout: 600}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.delay.delaySeconds(now, nativeMax))
		})
	}
}
