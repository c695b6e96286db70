package models

import "time"

// Status is the forecast session state.
type Status string

const (
	StatusIdle    Status = "Idle"
	StatusLoading Status = "Loading"
	StatusReady   Status = "Ready"
	StatusError   Status = "Error"
)

// SessionSnapshot is the only externally observable forecast session state.
type SessionSnapshot struct {
	Status       Status          `json:"status"`
	Result       *ForecastResult `json:"result,omitempty"`
	Error        *ErrorInfo      `json:"error,omitempty"`
	RequestEpoch uint64          `json:"request_epoch"`
	Horizon      int             `json:"horizon"`
	Identity     Identity        `json:"identity"`

	// Quantile ordering problems found in Result, if any.
	Violations []QuantileViolation `json:"violations,omitempty"`

	Saving      bool       `json:"saving"`
	SaveError   *ErrorInfo `json:"save_error,omitempty"`
	LastSavedAt *time.Time `json:"last_saved_at,omitempty"`

	// Set once an Unauthorized failure has been observed; the host should re-authenticate.
	ReauthRequired bool `json:"reauth_required"`
}

// Clone returns a deep copy of the snapshot.
func (s SessionSnapshot) Clone() SessionSnapshot {
	out := s
	out.Result = s.Result.Clone()
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	if s.SaveError != nil {
		e := *s.SaveError
		out.SaveError = &e
	}
	if s.LastSavedAt != nil {
		t := *s.LastSavedAt
		out.LastSavedAt = &t
	}
	out.Violations = append([]QuantileViolation(nil), s.Violations...)
	return out
}
