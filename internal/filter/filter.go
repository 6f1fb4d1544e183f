// Package filter decides whether a raw input counts as a click.
package filter

import "github.com/verte-zerg/cpstest/internal/model"

// Match selects how a policy compares events.
type Match int

const (
	MatchButton Match = iota
	MatchKey
	MatchAny
)

// Policy is the per-variant input predicate.
type Policy struct {
	Match  Match
	Button model.Button
	Key    string
	// DropRepeats rejects key events flagged as auto-repeat.
	DropRepeats bool
}

// ButtonPolicy accepts presses of a single mouse button.
func ButtonPolicy(b model.Button) Policy {
	return Policy{Match: MatchButton, Button: b}
}

// KeyPolicy accepts presses of a single key.
func KeyPolicy(key string, dropRepeats bool) Policy {
	return Policy{Match: MatchKey, Button: model.ButtonNone, Key: key, DropRepeats: dropRepeats}
}

// Accept reports whether ev counts as a click under p. It has no side effects.
func (p Policy) Accept(ev model.InputEvent) bool {
	switch p.Match {
	case MatchButton:
		return ev.Source == model.SourceMouse && ev.Button == p.Button
	case MatchKey:
		if ev.Source != model.SourceKey || ev.Key != p.Key {
			return false
		}
		return !(p.DropRepeats && ev.Repeat)
	case MatchAny:
		return true
	default:
		return false
	}
}

// WithButton returns a copy of p selecting b.
func (p Policy) WithButton(b model.Button) Policy {
	p.Button = b
	return p
}
