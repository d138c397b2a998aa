package power

// Change is passed to observer hooks after every notify cycle.
type Change struct {
	Reason      string `json:"reason"`
	Turn        uint64 `json:"turn"`
	Generation  uint64 `json:"generation"`
	Highlighted int    `json:"highlighted"`
	Stats       Stats  `json:"stats"`
}

// Hook is an observer callback. Returned errors and panics are logged and
// discarded.
type Hook func(Change) error

// OnRefreshNeeded registers the single refresh hook. Nil unregisters.
func (e *Engine) OnRefreshNeeded(h Hook) { e.onRefresh = h }

// OnOverlayNeeded registers the single overlay hook. Nil unregisters.
func (e *Engine) OnOverlayNeeded(h Hook) { e.onOverlay = h }

// Notifying reports whether a notify cycle is running.
func (e *Engine) Notifying() bool { return e.notifying }

// NotifyChanged rebuilds if needed, recomputes stats and runs the hooks.
// Calls made from inside a hook do not recurse; they are queued and drained
// as follow-up cycles, at most MaxNotifyCycles in total.
func (e *Engine) NotifyChanged(reason string) {
	if e.notifying {
		e.pending = true
		e.pendingReason = reason
		return
	}
	e.notifying = true
	defer func() { e.notifying = false }()

	for cycle := 1; ; cycle++ {
		e.EnsureCurrent()
		ch := Change{
			Reason:      reason,
			Turn:        e.turn,
			Generation:  e.generation,
			Highlighted: e.highlighted,
			Stats:       e.stats(),
		}
		e.dispatch("refresh", e.onRefresh, ch)
		e.dispatch("overlay", e.onOverlay, ch)

		if !e.pending {
			return
		}
		next := e.pendingReason
		e.pending = false
		e.pendingReason = ""
		if cycle >= e.tun.MaxNotifyCycles {
			e.droppedCycles++
			e.logf("notify: dropping follow-up %q after %d cycles", next, cycle)
			return
		}
		reason = next
	}
}

func (e *Engine) dispatch(name string, h Hook, ch Change) {
	if h == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.hookFailures++
			e.logf("notify: %s hook panic (reason=%s): %v", name, ch.Reason, r)
		}
	}()
	if err := h(ch); err != nil {
		e.hookFailures++
		e.logf("notify: %s hook failed (reason=%s): %v", name, ch.Reason, err)
	}
}
