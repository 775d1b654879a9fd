package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"repoedit/internal/edit"
	apperrors "repoedit/internal/errors"
	"repoedit/internal/store"
)

type memJournal struct {
	batches map[string]bool
	results []Result
	fail    bool
}

func (j *memJournal) Record(_ context.Context, batchID string, res Result) error {
	if j.fail {
		return errors.New("disk full")
	}
	if j.batches == nil {
		j.batches = map[string]bool{}
	}
	j.batches[batchID] = true
	j.results = append(j.results, res)
	return nil
}

func TestOrchestrator_PartialFailure(t *testing.T) {
	st := store.NewMemory(map[string]string{
		"a.txt": "one\ntwo",
		"b.txt": "keep",
	})
	journal := &memJournal{}
	o := NewOrchestrator(NewReconciler(st, nil), journal, nil)

	results, err := o.Apply(context.Background(), []edit.Edit{
		{FileName: "a.txt", Action: edit.ActionDelete, Line: 2, Content: "two"},
		{FileName: "b.txt", Action: edit.ActionDelete, Line: 1, Content: "wrong"},
		{FileName: "c.txt", Action: edit.ActionWrite, Content: "new"},
		{FileName: "a.txt", Action: edit.ActionInsert, Line: 1, Content: "zero"},
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}

	want := []struct {
		file    string
		success bool
		action  Outcome
		code    apperrors.ErrorCode
	}{
		{"a.txt", true, OutcomeUpdated, ""},
		{"b.txt", false, "", apperrors.DeleteMismatch},
		{"c.txt", true, OutcomeCreated, ""},
	}
	for i, w := range want {
		r := results[i]
		if r.File != w.file || r.Success != w.success || r.Action != w.action || r.Code != w.code {
			t.Errorf("results[%d] = %+v, want %+v", i, r, w)
		}
	}

	files := st.Snapshot()
	if files["a.txt"] != "zero\none" || files["b.txt"] != "keep" || files["c.txt"] != "new" {
		t.Errorf("files = %#v", files)
	}

	if len(journal.results) != 3 || len(journal.batches) != 1 {
		t.Errorf("journal = %d results in %d batches", len(journal.results), len(journal.batches))
	}
	if s := Summarize(results); s.Succeeded != 2 || s.Failed != 1 {
		t.Errorf("Summarize() = %+v", s)
	}
}

func TestOrchestrator_TransportFailureStopsRun(t *testing.T) {
	st := store.NewMemory(nil)
	st.Fail = func(op, path string) error {
		if path == "b.txt" {
			return fmt.Errorf("%w: rate limited", store.ErrTransport)
		}
		return nil
	}
	o := NewOrchestrator(NewReconciler(st, nil), nil, nil)

	results, err := o.Apply(context.Background(), []edit.Edit{
		{FileName: "a.txt", Action: edit.ActionWrite, Content: "a"},
		{FileName: "b.txt", Action: edit.ActionWrite, Content: "b"},
		{FileName: "c.txt", Action: edit.ActionWrite, Content: "c"},
	})
	if !errors.Is(err, store.ErrTransport) {
		t.Fatalf("Apply() error = %v, want transport failure", err)
	}
	if len(results) != 2 || !results[0].Success || results[1].Success {
		t.Errorf("results = %+v", results)
	}
	files := st.Snapshot()
	if files["a.txt"] != "a" {
		t.Error("a.txt should stay committed")
	}
	if _, ok := files["c.txt"]; ok {
		t.Error("c.txt should not be processed after a fatal failure")
	}
}

func TestOrchestrator_JournalFailureIgnored(t *testing.T) {
	o := NewOrchestrator(NewReconciler(store.NewMemory(nil), nil), &memJournal{fail: true}, nil)

	results, err := o.Apply(context.Background(), []edit.Edit{
		{FileName: "a.txt", Action: edit.ActionWrite, Content: "a"},
	})
	if err != nil || len(results) != 1 || !results[0].Success {
		t.Errorf("Apply() = %+v, %v", results, err)
	}
}

func TestOrchestrator_Empty(t *testing.T) {
	o := NewOrchestrator(NewReconciler(store.NewMemory(nil), nil), nil, nil)
	results, err := o.Apply(context.Background(), nil)
	if err != nil || results == nil || len(results) != 0 {
		t.Errorf("Apply(nil) = %#v, %v", results, err)
	}
}

func TestOrchestrator_Preview(t *testing.T) {
	st := store.NewMemory(map[string]string{"a.txt": "one\ntwo\n", "gone.txt": "x"})
	o := NewOrchestrator(NewReconciler(st, nil), nil, nil)

	previews, err := o.Preview(context.Background(), []edit.Edit{
		{FileName: "a.txt", Action: edit.ActionInsert, Line: 2, Content: "one and a half"},
		{FileName: "gone.txt", Action: edit.ActionDeleteFile},
		{FileName: "bad.txt", Action: edit.ActionDelete, Line: 1, Content: "nothing here"},
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if len(previews) != 3 {
		t.Fatalf("len(previews) = %d", len(previews))
	}

	a := previews[0]
	if a.Action != OutcomeUpdated || a.After != "one\none and a half\ntwo\n" {
		t.Errorf("a.txt preview = %+v", a)
	}
	if !strings.Contains(a.Diff, "+one and a half") {
		t.Errorf("a.txt diff missing insertion:\n%s", a.Diff)
	}

	if previews[1].Action != OutcomeDeleted || !strings.Contains(previews[1].Diff, "-x") {
		t.Errorf("gone.txt preview = %+v", previews[1])
	}
	if previews[2].Code != apperrors.DeleteMismatch {
		t.Errorf("bad.txt preview = %+v", previews[2])
	}

	if st.Snapshot()["a.txt"] != "one\ntwo\n" {
		t.Error("Preview() committed changes")
	}
}
