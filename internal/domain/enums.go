package domain

import "fmt"

// Segment classifies the customer relationship stage
type Segment string

const (
	SegmentNew       Segment = "new"
	SegmentReturning Segment = "returning"
	SegmentVIP       Segment = "vip"
)

// Segments lists every valid segment in lexicographic order
func Segments() []Segment {
	return []Segment{SegmentNew, SegmentReturning, SegmentVIP}
}

// Valid reports whether the segment is a known value
func (s Segment) Valid() bool {
	switch s {
	case SegmentNew, SegmentReturning, SegmentVIP:
		return true
	}
	return false
}

// ParseSegment parses a raw string into a Segment
func ParseSegment(raw string) (Segment, error) {
	s := Segment(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown segment: %q", raw)
	}
	return s, nil
}

// Touchpoint identifies the channel an interaction arrived through
type Touchpoint string

const (
	TouchpointWeb   Touchpoint = "web"
	TouchpointApp   Touchpoint = "app"
	TouchpointStore Touchpoint = "store"
	TouchpointCall  Touchpoint = "call"
)

// Valid reports whether the touchpoint is a known value
func (t Touchpoint) Valid() bool {
	switch t {
	case TouchpointWeb, TouchpointApp, TouchpointStore, TouchpointCall:
		return true
	}
	return false
}

// ParseTouchpoint parses a raw string into a Touchpoint
func ParseTouchpoint(raw string) (Touchpoint, error) {
	t := Touchpoint(raw)
	if !t.Valid() {
		return "", fmt.Errorf("unknown touchpoint: %q", raw)
	}
	return t, nil
}

// Action identifies what the customer did during the interaction
type Action string

const (
	ActionView     Action = "view"
	ActionClick    Action = "click"
	ActionPurchase Action = "purchase"
	ActionAbandon  Action = "abandon"
)

// Valid reports whether the action is a known value
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionClick, ActionPurchase, ActionAbandon:
		return true
	}
	return false
}

// ParseAction parses a raw string into an Action
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if !a.Valid() {
		return "", fmt.Errorf("unknown action: %q", raw)
	}
	return a, nil
}

// SignalType identifies an external signal feed
type SignalType string

const (
	SignalWeather SignalType = "weather"
	SignalMarket  SignalType = "market"
	SignalNews    SignalType = "news"
)

// Valid reports whether the signal type is a known value
func (s SignalType) Valid() bool {
	switch s {
	case SignalWeather, SignalMarket, SignalNews:
		return true
	}
	return false
}

// ParseSignalType parses a raw string into a SignalType
func ParseSignalType(raw string) (SignalType, error) {
	s := SignalType(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown signal type: %q", raw)
	}
	return s, nil
}
