// Package notifsync keeps a client-side notification cache synchronized
// with a backend over two channels: a REST API for reads and mutations,
// and a websocket for realtime push events. The engine tolerates
// dropped, duplicated, and reordered events; applying the realtime
// stream is idempotent, and every healed connection triggers one full
// re-fetch so missed events cannot leave the cache stale.
//
// Typical use:
//
//	cfg, err := notifsync.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	engine, err := notifsync.New(cfg, notifsync.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	if err := engine.StartSession(ctx, authToken); err != nil {
//		log.Fatal(err)
//	}
//	list, _ := engine.Store().GetAll(ctx)
//
// Mutations are optimistic: the local cache updates first and the REST
// call follows, with the cache left in the optimistic state even when
// the call fails. Toast signals for newly arrived notifications are
// available through engine.Toasts().
package notifsync
