// Package multiclick groups consecutive clicks into double or triple clicks.
package multiclick

import "time"

// Detector counts clusters of Target clicks whose consecutive gaps are at
// most Window. A completed cluster starts a fresh streak.
type Detector struct {
	Target int
	Window time.Duration

	streak int
	first  time.Time
	last   time.Time
	hits   int
	best   time.Duration
}

// New returns a detector for clusters of target clicks.
func New(target int, window time.Duration) *Detector {
	return &Detector{Target: target, Window: window}
}

// Feed registers a click at the given instant and reports whether it
// completed a cluster.
func (d *Detector) Feed(at time.Time) bool {
	if d.Target < 2 {
		return false
	}
	if d.streak == 0 || at.Sub(d.last) > d.Window || at.Before(d.last) {
		d.streak = 1
		d.first = at
		d.last = at
		return false
	}
	d.streak++
	d.last = at
	if d.streak < d.Target {
		return false
	}
	span := d.last.Sub(d.first)
	if d.hits == 0 || span < d.best {
		d.best = span
	}
	d.hits++
	d.streak = 0
	return true
}

// Hits returns the number of completed clusters.
func (d *Detector) Hits() int {
	return d.hits
}

// Best returns the fastest cluster span, zero until the first hit.
func (d *Detector) Best() time.Duration {
	return d.best
}

// Streak returns the clicks in the current incomplete cluster.
func (d *Detector) Streak() int {
	return d.streak
}

// Reset clears all counters.
func (d *Detector) Reset() {
	d.streak = 0
	d.first = time.Time{}
	d.last = time.Time{}
	d.hits = 0
	d.best = 0
}
