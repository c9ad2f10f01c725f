package models

// StateVersion is the current SavedState schema version.
const StateVersion = 1

// SavedState is the user-controlled state persisted across daemon restarts.
type SavedState struct {
	// Version is the state file schema version.
	Version int `json:"version"`
	// Radios maps radio name to its last requested blocked state.
	Radios          map[string]bool `json:"radios,omitempty"`
	JackFunction    Function        `json:"jack_function"`
	SpeakerFunction Function        `json:"speaker_function"`
}

// DefaultSavedState returns both audio functions On and no radio entries.
func DefaultSavedState() SavedState {
	return SavedState{
		Version:         StateVersion,
		Radios:          map[string]bool{},
		JackFunction:    FunctionOn,
		SpeakerFunction: FunctionOn,
	}
}

// DeepCopy returns a copy that shares no maps with s.
func (s SavedState) DeepCopy() SavedState {
	cp := s
	cp.Radios = make(map[string]bool, len(s.Radios))
	for k, v := range s.Radios {
		cp.Radios[k] = v
	}
	return cp
}
