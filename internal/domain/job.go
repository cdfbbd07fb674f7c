package domain

import (
	"fmt"
	"time"
)

// Status enumerates job lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// MaxDuration caps the requested clip length in seconds.
const MaxDuration = 60

var validStyles = map[string]bool{
	"cinematic":    true,
	"anime":        true,
	"3d_animation": true,
	"watercolor":   true,
	"pixel_art":    true,
}

var validResolutions = map[string]bool{
	"480p":  true,
	"720p":  true,
	"1080p": true,
}

// Parameters is the closed transformation parameter object. Intensity is
// canonically an integer on the 0-100 scale; boundary layers that accept
// fractional 0.0-1.0 input must convert before constructing Parameters.
// Immutable once the job is submitted.
type Parameters struct {
	Style          string `json:"style"`
	Intensity      int    `json:"intensity"`
	Duration       int    `json:"duration"`
	EnhanceQuality bool   `json:"enhanceQuality,omitempty"`
	Stabilize      bool   `json:"stabilize,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
}

// Validate checks the enumerated constraints. The returned error wraps
// ErrInvalidParameters and names the offending field.
func (p Parameters) Validate() error {
	if !validStyles[p.Style] {
		return fmt.Errorf("%w: style %q is not supported", ErrInvalidParameters, p.Style)
	}
	if p.Intensity < 0 || p.Intensity > 100 {
		return fmt.Errorf("%w: intensity %d outside [0, 100]", ErrInvalidParameters, p.Intensity)
	}
	if p.Duration < 1 || p.Duration > MaxDuration {
		return fmt.Errorf("%w: duration %d outside [1, %d]", ErrInvalidParameters, p.Duration, MaxDuration)
	}
	if p.Resolution != "" && !validResolutions[p.Resolution] {
		return fmt.Errorf("%w: resolution %q is not supported", ErrInvalidParameters, p.Resolution)
	}
	return nil
}

// JobRecord is the sole persistent entity: one transformation request and
// its lifecycle. DispatchID is an internal correlation token for the
// external processor and never leaves the service boundary.
type JobRecord struct {
	ID            string
	SourceURL     string
	SourceName    string
	Params        Parameters
	Status        Status
	ResultURL     string
	FailureReason string
	DispatchID    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// Outcome is a completion signal from the external processor, delivered
// via webhook or discovered by polling.
type Outcome struct {
	Success   bool
	ResultURL string
	Reason    string
}

// TerminalStatus maps the outcome onto the terminal state it commits.
func (o Outcome) TerminalStatus() Status {
	if o.Success {
		return StatusCompleted
	}
	return StatusFailed
}
