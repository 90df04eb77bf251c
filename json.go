package pfsm

import (
	"encoding/json"
	"fmt"

	"github.com/enetx/g"
)

// Snapshot is the serializable form of a SyncState. States are stored by name.
type Snapshot struct {
	Current string   `json:"current"`
	History []string `json:"history"`
}

// MarshalJSON implements the json.Marshaler interface.
func (ss *SyncState[S]) MarshalJSON() ([]byte, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	snapshot := Snapshot{
		Current: ss.current.String(),
		History: make([]string, 0, len(ss.history)),
	}

	for _, s := range ss.history {
		snapshot.History = append(snapshot.History, s.String())
	}

	return json.Marshal(snapshot)
}

// UnmarshalJSON implements the json.Unmarshaler interface. It only restores
// into a holder that has not transitioned yet, every state name must belong
// to the machine, and the history must end in the current state. On error
// the holder is left unchanged.
func (ss *SyncState[S]) UnmarshalJSON(data []byte) error {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to unmarshal state snapshot: %w", err)
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.machine == nil {
		return fmt.Errorf("%w: holder has no machine", ErrRestore)
	}

	if len(ss.history) > 1 {
		return fmt.Errorf("%w: holder has already transitioned to %s", ErrRestore, ss.current)
	}

	current, ok := ss.machine.byName[snapshot.Current]
	if !ok {
		return &ErrUnknownState{State: snapshot.Current}
	}

	history := make(g.Slice[S], 0, len(snapshot.History))

	for _, name := range snapshot.History {
		s, ok := ss.machine.byName[name]
		if !ok {
			return &ErrUnknownState{State: name}
		}

		history.Push(s)
	}

	if len(history) == 0 {
		history.Push(current)
	}

	if last := history[len(history)-1]; last != current {
		return fmt.Errorf("%w: history ends in %s, current is %s", ErrRestore, last, current)
	}

	ss.current = current
	ss.history = history

	return nil
}

// RestoreSyncState creates a holder from a snapshot written by MarshalJSON.
func RestoreSyncState[S State](machine *Machine[S], data []byte) (*SyncState[S], error) {
	ss := &SyncState[S]{machine: machine}
	if err := ss.UnmarshalJSON(data); err != nil {
		return nil, err
	}

	return ss, nil
}

// MarshalJSON renders the table as {"state": {"event": "outcome"}}. Keys are
// sorted, so the output is byte-stable.
func (t Table[S]) MarshalJSON() ([]byte, error) {
	rows := make(map[string]map[string]string, len(t.Rows))

	for _, row := range t.Rows {
		cells := make(map[string]string, len(row.Cells))
		for _, cell := range row.Cells {
			cells[string(cell.Event)] = cell.Outcome.String()
		}

		rows[row.State.String()] = cells
	}

	return json.Marshal(rows)
}
