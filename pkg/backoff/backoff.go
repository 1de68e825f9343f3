package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Strategy calculates the delay before a reconnect attempt.
// Implementations should be safe for concurrent use.
type Strategy interface {
	// NextInterval returns the delay before the given attempt.
	// Attempt starts at 1 for the first retry.
	NextInterval(attempt int) time.Duration
}

// Fixed implements a constant delay between attempts.
type Fixed struct {
	Interval time.Duration
}

// NextInterval always returns the same interval regardless of attempt number.
func (f Fixed) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// Linear implements linearly increasing delays.
// Formula: min(Interval * attempt, MaxInterval)
type Linear struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

func (l Linear) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := l.Interval
	if interval == 0 {
		interval = time.Second
	}

	max := l.MaxInterval
	if max == 0 {
		max = 30 * time.Second
	}

	delay := interval * time.Duration(attempt)
	if delay > max {
		delay = max
	}
	return delay
}

// Exponential implements exponential backoff with jitter.
// Jitter spreads reconnect times so that many clients dropped by the same
// server outage do not retry in lockstep.
type Exponential struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// NextInterval calculates the delay for the given attempt.
// Formula: min(InitialInterval * (Multiplier ^ (attempt-1)) * (1 ± JitterFactor), MaxInterval)
func (e Exponential) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = time.Second
	}

	max := e.MaxInterval
	if max == 0 {
		max = 30 * time.Second
	}

	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))

	// Zero jitter is intentionally allowed for deterministic behavior.
	if e.JitterFactor > 0 {
		randomJitter := (rand.Float64()*2 - 1) * e.JitterFactor
		interval = interval * (1 + randomJitter)
	}

	if interval > float64(max) {
		interval = float64(max)
	}

	return time.Duration(interval)
}

// Default returns the reconnect strategy used by the realtime transport when
// none is configured: exponential growth from one second, capped at thirty,
// with enough jitter to avoid coordinated retry storms.
func Default() Strategy {
	return Exponential{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		JitterFactor:    0.1,
	}
}
