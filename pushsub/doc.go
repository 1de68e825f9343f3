// Package pushsub manages web push subscription registration with the
// notification backend: fetching the VAPID public key and registering
// or removing subscription endpoints. The browser-side mechanics of
// producing a subscription are out of scope.
package pushsub
