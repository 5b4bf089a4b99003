package api

import (
	"photomatch/internal/mapping"
	"photomatch/internal/task"
)

// FromSnapshot converts a published mapping snapshot into its API view.
func FromSnapshot(snap *mapping.Snapshot) MappingListResponse {
	resp := MappingListResponse{
		Total:       snap.RowCount,
		ContentHash: snap.ContentHash,
	}
	if !snap.RefreshedAt.IsZero() {
		resp.RefreshedAt = snap.RefreshedAt.Format(dateTimeFormat)
	}
	for _, entry := range snap.SortedEntries() {
		resp.Entries = append(resp.Entries, MappingEntry{
			Source: entry.SourceCode,
			Target: entry.TargetCode,
		})
	}
	return resp
}

// FromTaskState converts an engine snapshot into a poll payload. Results are
// attached once terminal, or earlier when includeResults is set.
func FromTaskState(state *task.State, includeResults bool) TaskStatus {
	status := TaskStatus{
		ID:             state.ID,
		Status:         string(state.Status),
		Total:          state.Total,
		Completed:      state.Completed,
		Matched:        state.Matched,
		Unmatched:      state.Unmatched,
		InputErrors:    state.InputErrors,
		CurrentInput:   state.CurrentInput,
		ElapsedSeconds: state.Elapsed().Seconds(),
		Error:          state.Error,
		SessionID:      state.SessionID,
	}
	if includeResults || state.Status.Terminal() {
		status.Results = make([]TaskResult, 0, len(state.Results))
		for _, result := range state.Results {
			status.Results = append(status.Results, TaskResult{
				Input:        result.Input,
				Status:       string(result.Status),
				ProducedName: result.ProducedName,
				Message:      result.Message,
			})
		}
	}
	return status
}

// FromRun converts a recorded run into its API view.
func FromRun(run task.Run) RunSummary {
	summary := RunSummary{
		ID:          run.ID,
		Status:      string(run.Status),
		Total:       run.Total,
		Matched:     run.Matched,
		Unmatched:   run.Unmatched,
		InputErrors: run.InputErrors,
		Error:       run.Error,
	}
	if !run.StartedAt.IsZero() {
		summary.StartedAt = run.StartedAt.Format(dateTimeFormat)
	}
	if !run.FinishedAt.IsZero() {
		summary.FinishedAt = run.FinishedAt.Format(dateTimeFormat)
	}
	return summary
}

// FromRuns converts a run list, preserving order.
func FromRuns(runs []task.Run) RunListResponse {
	resp := RunListResponse{Runs: make([]RunSummary, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, FromRun(run))
	}
	return resp
}
