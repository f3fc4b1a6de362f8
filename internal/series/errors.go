package series

import (
	"fmt"
	"sort"
)

// ValidationError reports a rejected draft or edit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports that a referenced record does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// PersistenceError wraps a failure from the underlying store where no partial
// state was left behind: the operation did not apply at all.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// PartialFailureError reports a batch write that applied to some series
// members but not others. Callers must treat the series as partially updated
// and can use the id lists to reconcile.
type PartialFailureError struct {
	Op        string
	Succeeded []int64
	Failed    []int64
	Causes    map[int64]error
}

func (e *PartialFailureError) Error() string {
	total := len(e.Succeeded) + len(e.Failed)
	return fmt.Sprintf("%s partially applied: %d of %d members updated", e.Op, len(e.Succeeded), total)
}

// partialFromOutcomes builds a PartialFailureError from per-id outcomes, or
// returns nil when every member succeeded.
func partialFromOutcomes(op string, outcomes map[int64]error) error {
	var succeeded, failed []int64
	causes := make(map[int64]error)
	for id, err := range outcomes {
		if err != nil {
			failed = append(failed, id)
			causes[id] = err
		} else {
			succeeded = append(succeeded, id)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	sort.Slice(succeeded, func(i, j int) bool { return succeeded[i] < succeeded[j] })
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	return &PartialFailureError{Op: op, Succeeded: succeeded, Failed: failed, Causes: causes}
}
