package model

import "time"

// SessionPhase 会话阶段
type SessionPhase string

const (
	PhaseIdle       SessionPhase = "idle"       // Between sessions (cycle delay)
	PhaseOpen       SessionPhase = "open"       // QR active, accepting requests
	PhaseProcessing SessionPhase = "processing" // Searching and downloading
	PhaseMixing     SessionPhase = "mixing"     // Building the final mix
)

// Session is the archived record of one request window.
type Session struct {
	ID           int64     `json:"id"`
	Token        string    `json:"token"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
	RequestCount int64     `json:"requestCount"`
	TopQueries   string    `json:"topQueries"` // JSON array of the winning queries
	Outcome      string    `json:"outcome"`    // mixed, no_requests, not_enough_tracks, failed
}

// Session outcome values.
const (
	OutcomeMixed          = "mixed"
	OutcomeNoRequests     = "no_requests"
	OutcomeNotEnoughSongs = "not_enough_tracks"
	OutcomeFailed         = "failed"
)

// SessionStatus is the live view exposed to the kiosk page and the API.
type SessionStatus struct {
	Phase        SessionPhase `json:"phase"`
	Token        string       `json:"token,omitempty"`
	RemainingSec int          `json:"remainingSec"`
	RequestCount int64        `json:"requestCount"`
	MixStatus    string       `json:"mixStatus,omitempty"` // mixing, ready, failed
}
