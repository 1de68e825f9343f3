package realtime

import (
	"slices"
	"sync"

	"github.com/dmitrymomot/notifsync/notification"
)

// Callbacks is the event sink registered on a Transport. Any subset of
// fields may be set; nil fields are ignored.
type Callbacks struct {
	OnConnectionStatus   func(connected bool)
	OnConnectionError    func(err error)
	OnNewNotification    func(n notification.Notification)
	OnUnreadCount        func(count int)
	OnNotificationRead   func(id string)
	OnAllRead            func(count int)
	OnNotificationUpdate func(n notification.Notification)
	OnNotificationDelete func(id string)
	OnSystemNotification func(n notification.Notification)
}

// callbackSet stores handler registrations additively: registering a second
// Callbacks value appends to the handler lists instead of replacing earlier
// registrations. Last-write-wins here would silently drop the reconciler's
// handlers whenever a second caller registered its own.
type callbackSet struct {
	mu       sync.RWMutex
	status   []func(bool)
	errs     []func(error)
	created  []func(notification.Notification)
	counts   []func(int)
	read     []func(string)
	allRead  []func(int)
	updated  []func(notification.Notification)
	deleted  []func(string)
	system   []func(notification.Notification)
}

func (s *callbackSet) merge(cb Callbacks) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb.OnConnectionStatus != nil {
		s.status = append(s.status, cb.OnConnectionStatus)
	}
	if cb.OnConnectionError != nil {
		s.errs = append(s.errs, cb.OnConnectionError)
	}
	if cb.OnNewNotification != nil {
		s.created = append(s.created, cb.OnNewNotification)
	}
	if cb.OnUnreadCount != nil {
		s.counts = append(s.counts, cb.OnUnreadCount)
	}
	if cb.OnNotificationRead != nil {
		s.read = append(s.read, cb.OnNotificationRead)
	}
	if cb.OnAllRead != nil {
		s.allRead = append(s.allRead, cb.OnAllRead)
	}
	if cb.OnNotificationUpdate != nil {
		s.updated = append(s.updated, cb.OnNotificationUpdate)
	}
	if cb.OnNotificationDelete != nil {
		s.deleted = append(s.deleted, cb.OnNotificationDelete)
	}
	if cb.OnSystemNotification != nil {
		s.system = append(s.system, cb.OnSystemNotification)
	}
}

func (s *callbackSet) emitStatus(connected bool) {
	s.mu.RLock()
	fns := slices.Clone(s.status)
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(connected)
	}
}

func (s *callbackSet) emitError(err error) {
	s.mu.RLock()
	fns := slices.Clone(s.errs)
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(err)
	}
}

// emitEvent fans a decoded event out to the matching handler list. Handlers
// run outside the lock so they may register further callbacks.
func (s *callbackSet) emitEvent(ev notification.Event) {
	switch ev.Name {
	case notification.EventNew:
		s.mu.RLock()
		fns := slices.Clone(s.created)
		s.mu.RUnlock()
		for _, fn := range fns {
			fn(*ev.Notification)
		}
	case notification.EventUnreadCount:
		s.mu.RLock()
		fns := slices.Clone(s.counts)
		s.mu.RUnlock()
		for _, fn := range fns {
			fn(ev.Count)
		}
	case notification.EventRead:
		s.mu.RLock()
		fns := slices.Clone(s.read)
		s.mu.RUnlock()
		for _, fn := range fns {
			fn(ev.ID)
		}
	case notification.EventAllRead:
		s.mu.RLock()
		fns := slices.Clone(s.allRead)
		s.mu.RUnlock()
		for _, fn := range fns {
			fn(ev.Count)
		}
	case notification.EventUpdated:
		s.mu.RLock()
		fns := slices.Clone(s.updated)
		s.mu.RUnlock()
		for _, fn := range fns {
			fn(*ev.Notification)
		}
	case notification.EventDeleted:
		s.mu.RLock()
		fns := slices.Clone(s.deleted)
		s.mu.RUnlock()
		for _, fn := range fns {
			fn(ev.ID)
		}
	case notification.EventSystem:
		s.mu.RLock()
		fns := slices.Clone(s.system)
		s.mu.RUnlock()
		for _, fn := range fns {
			fn(*ev.Notification)
		}
	}
}
