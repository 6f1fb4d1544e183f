// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Variant identifies a test type.
type Variant string

const (
	VariantClick  Variant = "click"
	VariantSpace  Variant = "space"
	VariantKohi   Variant = "kohi"
	VariantDouble Variant = "double"
	VariantTriple Variant = "triple"
)

// State is the lifecycle state of a test session.
type State int

const (
	StateIdle State = iota
	StateActive
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Button is a mouse button identifier. Values follow the DOM numbering.
type Button int

const (
	ButtonNone   Button = -1
	ButtonLeft   Button = 0
	ButtonMiddle Button = 1
	ButtonRight  Button = 2
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return "none"
	}
}

// ParseButton parses a button name such as "left" or "right".
func ParseButton(name string) (Button, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "left", "primary", "":
		return ButtonLeft, nil
	case "middle", "wheel":
		return ButtonMiddle, nil
	case "right", "secondary":
		return ButtonRight, nil
	default:
		return ButtonNone, fmt.Errorf("unknown mouse button %q (use left, middle or right)", name)
	}
}

// Source tells whether an input came from the mouse or the keyboard.
type Source int

const (
	SourceMouse Source = iota
	SourceKey
)

// KeySpace is the key identifier of the space bar.
const KeySpace = "space"

// InputEvent is a raw press delivered by the UI layer.
type InputEvent struct {
	Source Source
	Button Button
	Key    string
	At     time.Time
	// Repeat marks a key event the host considers an auto-repeat duplicate.
	Repeat bool
}

// MouseEvent builds a mouse press event.
func MouseEvent(b Button, at time.Time) InputEvent {
	return InputEvent{Source: SourceMouse, Button: b, At: at}
}

// KeyEvent builds a key press event.
func KeyEvent(key string, at time.Time) InputEvent {
	return InputEvent{Source: SourceKey, Button: ButtonNone, Key: key, At: at}
}

// HistoryRecord is a persisted summary of a finished test.
type HistoryRecord struct {
	ID       int64   `json:"id"`
	TestTime int     `json:"testTime"`
	Clicks   int     `json:"clicks"`
	CPS      float64 `json:"cps"`
	Date     string  `json:"date"`
	Multi    int     `json:"multi,omitempty"`
}

// RecordedAt returns the instant encoded in the record id.
func (r HistoryRecord) RecordedAt() time.Time {
	return time.UnixMilli(r.ID)
}

// Result is delivered once per completed test.
type Result struct {
	Variant  Variant
	Duration int
	Clicks   int
	FinalCPS float64
	Multi    int
	BestMs   int64
	Record   HistoryRecord
}
