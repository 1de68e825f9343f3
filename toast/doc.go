// Package toast provides the ephemeral UI signal sink for toast-worthy
// events: fire, display, auto-expire. Signals are derived from
// notifications but never persisted, which is what lets system
// notifications be shown without entering the store.
package toast
