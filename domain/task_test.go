package domain

import "testing"

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TaskStatus
		wantErr bool
	}{
		{name: "pending", input: "pending", want: StatusPending},
		{name: "in_progress", input: "in_progress", want: StatusInProgress},
		{name: "completed", input: "completed", want: StatusCompleted},
		{name: "empty string rejected", input: "", wantErr: true},
		{name: "unknown value rejected", input: "done", wantErr: true},
		{name: "case sensitive", input: "Pending", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTaskStatus(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTaskStatus(%q) expected error, got %q", tt.input, got)
				}
				if !IsDomainError(err, ErrCodeInvalid) {
					t.Errorf("ParseTaskStatus(%q) error code = %v, want INVALID", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTaskStatus(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTaskStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTaskStatusValid(t *testing.T) {
	for _, s := range []TaskStatus{StatusPending, StatusInProgress, StatusCompleted} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []TaskStatus{"", "archived", "DONE"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

func TestTaskIsCompleted(t *testing.T) {
	var nilTask *Task
	if nilTask.IsCompleted() {
		t.Error("nil task must not report completed")
	}
	if (&Task{Status: StatusPending}).IsCompleted() {
		t.Error("pending task must not report completed")
	}
	if !(&Task{Status: StatusCompleted}).IsCompleted() {
		t.Error("completed task must report completed")
	}
}

func TestTaskPatchIsEmpty(t *testing.T) {
	if !(TaskPatch{}).IsEmpty() {
		t.Error("zero patch must be empty")
	}
	title := "x"
	if (TaskPatch{Title: &title}).IsEmpty() {
		t.Error("patch with title must not be empty")
	}
	status := StatusCompleted
	if (TaskPatch{Status: &status}).IsEmpty() {
		t.Error("patch with status must not be empty")
	}
}
