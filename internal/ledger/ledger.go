// Package ledger records one manifest per run so that every generation of
// the output tables can be traced back to the run that produced it.
package ledger

import (
	"context"
	"errors"
	"sort"
	"time"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrRunExists is returned by Begin when the run id was already recorded.
var ErrRunExists = errors.New("run already recorded")

// Manifest describes one run.
type Manifest struct {
	RunID        string         `json:"run_id" dynamodbav:"run_id"`
	StartedAt    time.Time      `json:"started_at" dynamodbav:"started_at"`
	FinishedAt   time.Time      `json:"finished_at" dynamodbav:"finished_at"`
	Status       Status         `json:"status" dynamodbav:"status"`
	Tables       map[string]int `json:"tables,omitempty" dynamodbav:"tables,omitempty"`
	EventDateMin string         `json:"event_date_min,omitempty" dynamodbav:"event_date_min,omitempty"`
	EventDateMax string         `json:"event_date_max,omitempty" dynamodbav:"event_date_max,omitempty"`
	Error        string         `json:"error,omitempty" dynamodbav:"error,omitempty"`
}

type Ledger interface {
	// Begin records a new run. It fails with ErrRunExists for a reused id.
	Begin(ctx context.Context, m *Manifest) error
	// Finish overwrites the manifest with its final state.
	Finish(ctx context.Context, m *Manifest) error
	// List returns all manifests, newest first.
	List(ctx context.Context) ([]Manifest, error)
	Close() error
}

// Nop discards manifests.
type Nop struct{}

func (Nop) Begin(context.Context, *Manifest) error   { return nil }
func (Nop) Finish(context.Context, *Manifest) error  { return nil }
func (Nop) List(context.Context) ([]Manifest, error) { return nil, nil }
func (Nop) Close() error                             { return nil }

func sortNewestFirst(ms []Manifest) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].StartedAt.Equal(ms[j].StartedAt) {
			return ms[i].RunID > ms[j].RunID
		}
		return ms[i].StartedAt.After(ms[j].StartedAt)
	})
}
