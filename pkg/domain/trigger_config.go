package domain

import "time"

// TriggerConfig is a named workflow definition kept in the trigger store,
// so clients can start sessions from it by ID.
type TriggerConfig struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	Definition GraphDefinition `json:"definition"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ScribeToken is a single-use credential for the realtime transcription service.
type ScribeToken struct {
	Token string `json:"token"`
}
