package lifecycle

const defaultEventBuffer = 64

// SubscribeEvents registers a new subscriber and returns a channel that will
// receive orchestrator events. Callers must not close the returned channel;
// use UnsubscribeEvents when finished.
func (o *Orchestrator) SubscribeEvents() chan Event {
	ch := make(chan Event, defaultEventBuffer)
	o.eventMu.Lock()
	o.eventSubs[ch] = struct{}{}
	o.eventMu.Unlock()
	return ch
}

// UnsubscribeEvents removes the subscriber and closes the channel.
func (o *Orchestrator) UnsubscribeEvents(ch chan Event) {
	o.eventMu.Lock()
	if _, ok := o.eventSubs[ch]; ok {
		delete(o.eventSubs, ch)
		close(ch)
	}
	o.eventMu.Unlock()
}

func (o *Orchestrator) publishEvent(evt Event) {
	o.eventMu.RLock()
	for ch := range o.eventSubs {
		select {
		case ch <- evt:
		default:
		}
	}
	o.eventMu.RUnlock()
}

func (o *Orchestrator) emitSessionChanged(prev Status, sess Session) {
	payload := map[string]any{
		"from":       string(prev),
		"status":     string(sess.Status),
		"reachable":  sess.Reachable,
		"generation": sess.Generation,
	}
	if sess.URL != "" {
		payload["url"] = sess.URL
	}
	if sess.LANURL != "" {
		payload["lan_url"] = sess.LANURL
	}
	if sess.PID != 0 {
		payload["pid"] = sess.PID
	}
	if sess.LastError != "" {
		payload["error"] = sess.LastError
	}
	o.publishEvent(newEvent(EventTypeServerState, payload))
}

func (o *Orchestrator) emitConfigChanged() {
	o.publishEvent(newEvent(EventTypeConfigChanged, nil))
}
