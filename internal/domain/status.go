package domain

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of the loaded knowledge snapshot.
type Status string

const (
	StatusNotLoaded           Status = "not_loaded"
	StatusValid               Status = "valid"
	StatusInvalidSchema       Status = "invalid_schema"
	StatusConsistencyWarnings Status = "consistency_warnings"
	StatusError               Status = "error"
)

// Usable reports whether inference may run against a snapshot in this state.
func (s Status) Usable() bool {
	return s == StatusValid || s == StatusConsistencyWarnings
}

// LoadStatus is what the store reports about its most recent load.
type LoadStatus struct {
	Source      string    `json:"source,omitempty"`
	Version     string    `json:"version"`
	LastUpdated string    `json:"last_updated"`
	LoadTime    time.Time `json:"load_time,omitzero"`
	Status      Status    `json:"status"`
	Warnings    []string  `json:"warnings"`
	Errors      []string  `json:"errors,omitempty"`
}

// WarningKind classifies a consistency warning.
type WarningKind string

const (
	WarningDuplicateRule         WarningKind = "duplicate_rule"
	WarningConflictingConclusion WarningKind = "conflicting_conclusion"
	WarningDanglingReference     WarningKind = "dangling_reference"
)

// ConsistencyWarning is a non-fatal anomaly found in a schema-valid document.
// It is attached to the load status and never returned as an error.
type ConsistencyWarning struct {
	Kind    WarningKind `json:"kind"`
	RuleID  string      `json:"rule_id,omitempty"`
	Message string      `json:"message"`
}

func (w ConsistencyWarning) String() string {
	return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
}
