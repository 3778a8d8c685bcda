package registry

const subscriberBuffer = 100

// Subscribe returns a channel receiving a snapshot of every record change.
//
// The channel is buffered; if it fills, further updates are dropped for this
// subscriber. Callers must call [Registry.Unsubscribe] when done.
func (r *Registry) Subscribe() <-chan Endpoint {
	ch := make(chan Endpoint, subscriberBuffer)

	r.subMu.Lock()
	r.subscribers[ch] = struct{}{}
	r.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// more than once or with an unknown channel.
func (r *Registry) Unsubscribe(ch <-chan Endpoint) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for subCh := range r.subscribers {
		if subCh == ch {
			delete(r.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// publish sends the snapshot to all subscribers without blocking.
func (r *Registry) publish(ep Endpoint) {
	r.subMu.RLock()
	defer r.subMu.RUnlock()

	for ch := range r.subscribers {
		select {
		case ch <- ep:
		default:
			// slow subscriber, drop
		}
	}
}
