package mlflowapi

import (
	"encoding/json"
	"fmt"
)

// RunStatus is the wire form of a run's status.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusScheduled RunStatus = "SCHEDULED"
	RunStatusFinished  RunStatus = "FINISHED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusKilled    RunStatus = "KILLED"
)

// Valid reports whether s is one of the statuses the server understands.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusScheduled, RunStatusFinished, RunStatusFailed, RunStatusKilled:
		return true
	}
	return false
}

// UnmarshalJSON rejects tokens that are not a known status.
func (s *RunStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("mlflowapi: run status: %w", err)
	}
	if !RunStatus(raw).Valid() {
		return fmt.Errorf("mlflowapi: unknown run status %q", raw)
	}
	*s = RunStatus(raw)
	return nil
}

// ViewType selects runs or experiments by lifecycle stage.
type ViewType string

const (
	ViewTypeActiveOnly  ViewType = "ACTIVE_ONLY"
	ViewTypeDeletedOnly ViewType = "DELETED_ONLY"
	ViewTypeAll         ViewType = "ALL"
)

// Valid reports whether v is one of the known view types.
func (v ViewType) Valid() bool {
	switch v {
	case ViewTypeActiveOnly, ViewTypeDeletedOnly, ViewTypeAll:
		return true
	}
	return false
}

// UnmarshalJSON rejects tokens that are not a known view type.
func (v *ViewType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("mlflowapi: view type: %w", err)
	}
	if !ViewType(raw).Valid() {
		return fmt.Errorf("mlflowapi: unknown view type %q", raw)
	}
	*v = ViewType(raw)
	return nil
}

// Lifecycle stages reported for experiments and runs.
const (
	LifecycleActive  = "active"
	LifecycleDeleted = "deleted"
)
