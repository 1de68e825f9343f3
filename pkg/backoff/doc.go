// Package backoff provides delay strategies for the realtime transport's
// reconnect loop: fixed, linear, and exponential with jitter.
package backoff
