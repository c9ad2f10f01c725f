package config

import (
	"log/slog"

	"github.com/micro-nova/periphd/internal/models"
)

// migrateState repairs fields missing or invalid in older state files.
func migrateState(state *models.SavedState) {
	if state.Version < models.StateVersion {
		slog.Info("config: upgrading state file", "from", state.Version, "to", models.StateVersion)
		state.Version = models.StateVersion
	}
	if state.Radios == nil {
		state.Radios = map[string]bool{}
	}
	if !state.JackFunction.Valid() {
		if state.JackFunction != "" {
			slog.Warn("config: invalid jack function, resetting", "value", state.JackFunction)
		}
		state.JackFunction = models.FunctionOn
	}
	if !state.SpeakerFunction.Valid() {
		if state.SpeakerFunction != "" {
			slog.Warn("config: invalid speaker function, resetting", "value", state.SpeakerFunction)
		}
		state.SpeakerFunction = models.FunctionOn
	}
}
