// Package models holds the JSON types exchanged over the control API and
// the event bus.
package models

import "time"

// RadioStatus describes one radio's power controller.
type RadioStatus struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Blocked  bool   `json:"blocked"`
	Attached bool   `json:"attached"`
}

// Function is a user on/off switch for an audio output.
type Function string

const (
	FunctionOn  Function = "On"
	FunctionOff Function = "Off"
)

// Valid reports whether f is one of the known values.
func (f Function) Valid() bool { return f == FunctionOn || f == FunctionOff }

// Output names an audio output path.
type Output string

const (
	OutputNone      Output = "none"
	OutputHeadphone Output = "headphone"
	OutputSpeaker   Output = "speaker"
)

// JackStatus describes headphone detection and audio routing.
type JackStatus struct {
	Available       bool     `json:"available"`
	Armed           bool     `json:"armed"`
	Inserted        bool     `json:"inserted"`
	JackFunction    Function `json:"jack_function"`
	SpeakerFunction Function `json:"speaker_function"`
	Output          Output   `json:"output"`
}

// SystemStatus is the full daemon status.
type SystemStatus struct {
	Suspended bool          `json:"suspended"`
	Radios    []RadioStatus `json:"radios"`
	Jack      *JackStatus   `json:"jack,omitempty"`
}

// Info identifies the daemon.
type Info struct {
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
	Model    string `json:"model,omitempty"`
	Mock     bool   `json:"mock"`
}

// EventKind classifies bus events.
type EventKind string

const (
	EventRadio  EventKind = "radio"
	EventJack   EventKind = "jack"
	EventSystem EventKind = "system"
)

// Event is published on the bus for every state change.
type Event struct {
	Kind      EventKind    `json:"kind"`
	Time      time.Time    `json:"time"`
	Radio     *RadioStatus `json:"radio,omitempty"`
	Jack      *JackStatus  `json:"jack,omitempty"`
	Suspended *bool        `json:"suspended,omitempty"`
}

// RadioUpdate is the PATCH body for a radio.
type RadioUpdate struct {
	Blocked *bool `json:"blocked"`
}

// JackUpdate is the PATCH body for audio routing.
type JackUpdate struct {
	JackFunction    *Function `json:"jack_function,omitempty"`
	SpeakerFunction *Function `json:"speaker_function,omitempty"`
}
