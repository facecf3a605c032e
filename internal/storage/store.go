// Package storage persists the full event collection and the next-id counter as one unit.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"go-gin-event-scheduler/internal/model"
)

// Snapshot is the whole repository state. Events are in insertion (ascending id) order.
type Snapshot struct {
	Events []*model.Event
	NextID int
}

func EmptySnapshot() *Snapshot {
	return &Snapshot{Events: []*model.Event{}, NextID: 1}
}

// Store loads and overwrites a Snapshot wholesale.
type Store interface {
	// Load returns an empty snapshot when nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// persistedState is the on-disk layout: events keyed by their id plus the counter.
type persistedState struct {
	Events map[string]*model.Event `json:"events"`
	NextID int                     `json:"next_id"`
}

func encodeSnapshot(s *Snapshot) ([]byte, error) {
	state := persistedState{
		Events: make(map[string]*model.Event, len(s.Events)),
		NextID: s.NextID,
	}
	for _, e := range s.Events {
		state.Events[strconv.Itoa(e.ID)] = e
	}
	return json.MarshalIndent(state, "", "  ")
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	snap := &Snapshot{Events: make([]*model.Event, 0, len(state.Events)), NextID: state.NextID}
	maxID := 0
	for key, e := range state.Events {
		if e == nil {
			return nil, fmt.Errorf("event %s is null", key)
		}
		id, err := strconv.Atoi(key)
		if err != nil || id != e.ID || id < 1 {
			return nil, fmt.Errorf("event key %q does not match id %d", key, e.ID)
		}
		if e.Title == "" || e.StartTime.IsZero() || e.EndTime.IsZero() {
			return nil, fmt.Errorf("event %d is missing required fields", id)
		}
		if id > maxID {
			maxID = id
		}
		snap.Events = append(snap.Events, e)
	}
	if snap.NextID < 1 || snap.NextID <= maxID {
		return nil, fmt.Errorf("next_id %d must exceed every stored id (max %d)", snap.NextID, maxID)
	}

	sort.Slice(snap.Events, func(i, j int) bool { return snap.Events[i].ID < snap.Events[j].ID })
	return snap, nil
}
