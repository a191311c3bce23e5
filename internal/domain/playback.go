package domain

import "time"

type PlaybackState string

const (
	PlaybackIdle     PlaybackState = "idle"
	PlaybackStarting PlaybackState = "starting"
	PlaybackRunning  PlaybackState = "running"
	PlaybackFinished PlaybackState = "finished"
	PlaybackStopped  PlaybackState = "stopped"
)

// PlaybackStatus is a point-in-time view of the player.
type PlaybackStatus struct {
	State         PlaybackState `json:"state"`
	Clip          string        `json:"clip,omitempty"`
	SessionID     string        `json:"session_id,omitempty"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	SamplesPlayed int64         `json:"samples_played"`
	LastOutcome   PlaybackState `json:"last_outcome,omitempty"`
	LastClip      string        `json:"last_clip,omitempty"`
}

// Recording describes a completed capture.
type Recording struct {
	Clip     string        `json:"clip"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

type Clip struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}
