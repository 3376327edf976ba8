// Package browser defines the narrow interface to the live web environment.
// Rendering, DOM extraction, and screenshots live outside this module; the
// execution engine only ever sees the stable primitive set below.
package browser

// Environment is the stable browser-primitive set exposed to action code.
// Element ids are the opaque ids assigned by the page observer.
type Environment interface {
	Click(id string) error
	Fill(id string, value string) error
	Press(key string) error
	Goto(url string) error
	Scroll(dx, dy float64) error
	Back() error
	// URL reports the active page address.
	URL() string
	// Text reports the visible page text, used by the trajectory judge.
	Text() string
}

// Messenger carries the two outgoing channels an action may use: sending a
// message to the user ends the turn; reporting infeasibility ends the task.
type Messenger interface {
	SendMessage(text string) error
	ReportInfeasible(reason string) error
}
