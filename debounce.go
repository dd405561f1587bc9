package main

import "time"

// DebounceWindow is how long the raw input must stay untouched before the
// pending value is committed as the query.
const DebounceWindow = 500 * time.Millisecond

// Debouncer coalesces a burst of input edits into a single commit. Touch
// invalidates whatever emission was pending and hands out a new token;
// Fire reports whether that token is still the live one, consuming it if
// so. The host owns the clock: it schedules Fire(token) one DebounceWindow
// after each Touch and drops the superseded firings.
type Debouncer struct {
	current int
}

func (d *Debouncer) Touch() int {
	d.current++
	return d.current
}

func (d *Debouncer) Fire(token int) bool {
	if token != d.current {
		return false
	}
	d.current++
	return true
}
