// Package reconciler binds a realtime transport to the notification
// store and keeps the cache consistent across connection loss.
//
// A Session owns exactly one transport at a time. Realtime events are
// applied to the store idempotently, new and system notifications are
// forwarded to a toast notifier, and every healed connection triggers
// a single full refresh so nothing missed while offline stays missing.
// Replacing the auth token tears the transport down and builds a fresh
// one, which guarantees no event authenticated under the old identity
// reaches the store afterwards.
//
//	sess := reconciler.NewSession(token, factory, st,
//		reconciler.WithToasts(toasts),
//		reconciler.WithRoom("notifications"),
//	)
//	if err := sess.Start(ctx); err != nil {
//		return err
//	}
//	defer sess.Close()
package reconciler
