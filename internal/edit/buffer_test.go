package edit

import (
	"errors"
	"reflect"
	"testing"
)

func TestFromText_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"\n",
		"\n\n",
		"a",
		"a\n",
		"\na",
		"one\ntwo\nthree",
		"one\ntwo\nthree\n",
		"  leading spaces\n\ttab\n",
		"crlf\r\nline\r\n",
	}

	for _, s := range inputs {
		if got := FromText(s).Text(); got != s {
			t.Errorf("FromText(%q).Text() = %q", s, got)
		}
	}
}

func TestFromText_Convention(t *testing.T) {
	tests := []struct {
		in   string
		want Buffer
	}{
		{"", Buffer{}},
		{"\n", Buffer{"", ""}},
		{"a", Buffer{"a"}},
		{"a\n", Buffer{"a", ""}},
		{"a\nb", Buffer{"a", "b"}},
	}

	for _, tt := range tests {
		got := FromText(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FromText(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestInsertAt(t *testing.T) {
	tests := []struct {
		name string
		buf  Buffer
		line int
		text string
		want Buffer
	}{
		{"prepend", Buffer{"a", "b"}, 1, "x", Buffer{"x", "a", "b"}},
		{"middle", Buffer{"a", "b"}, 2, "x", Buffer{"a", "x", "b"}},
		{"append", Buffer{"a", "b"}, 3, "x", Buffer{"a", "b", "x"}},
		{"empty buffer", Buffer{}, 1, "x", Buffer{"x"}},
		{"pad past end", Buffer{"a"}, 4, "x", Buffer{"a", "", "", "x"}},
		{"pad empty buffer", Buffer{}, 3, "x", Buffer{"", "", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.buf.InsertAt(tt.line, tt.text)
			if err != nil {
				t.Fatalf("InsertAt() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("InsertAt() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestInsertAt_BeyondEnd(t *testing.T) {
	buf := Buffer{"one", "two", "three"}

	got, err := buf.InsertAt(10, "ten")
	if err != nil {
		t.Fatalf("InsertAt() error = %v", err)
	}
	if got.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", got.Len())
	}
	for i := 3; i < 9; i++ {
		if got[i] != "" {
			t.Errorf("line %d = %q, want empty", i+1, got[i])
		}
	}
	if got[9] != "ten" {
		t.Errorf("line 10 = %q, want %q", got[9], "ten")
	}
}

func TestInsertAt_DoesNotAlias(t *testing.T) {
	buf := make(Buffer, 2, 10)
	buf[0], buf[1] = "a", "b"

	got, err := buf.InsertAt(2, "x")
	if err != nil {
		t.Fatalf("InsertAt() error = %v", err)
	}
	if !reflect.DeepEqual(buf, Buffer{"a", "b"}) {
		t.Errorf("original buffer modified: %#v", buf)
	}
	if !reflect.DeepEqual(got, Buffer{"a", "x", "b"}) {
		t.Errorf("InsertAt() = %#v", got)
	}
}

func TestInsertAt_InvalidLine(t *testing.T) {
	if _, err := (Buffer{"a"}).InsertAt(0, "x"); !errors.Is(err, ErrInvalidLine) {
		t.Errorf("InsertAt(0) error = %v, want ErrInvalidLine", err)
	}
}

func TestDeleteAt(t *testing.T) {
	buf := Buffer{"one", "two", "three"}

	got, err := buf.DeleteAt(2, "two")
	if err != nil {
		t.Fatalf("DeleteAt() error = %v", err)
	}
	if !reflect.DeepEqual(got, Buffer{"one", "three"}) {
		t.Errorf("DeleteAt() = %#v", got)
	}
	if !reflect.DeepEqual(buf, Buffer{"one", "two", "three"}) {
		t.Errorf("original buffer modified: %#v", buf)
	}
}

func TestDeleteAt_Mismatch(t *testing.T) {
	buf := Buffer{"a", "b", "bar"}

	got, err := buf.DeleteAt(3, "foo")
	if !errors.Is(err, ErrDeleteMismatch) {
		t.Fatalf("DeleteAt() error = %v, want ErrDeleteMismatch", err)
	}
	var mismatch *DeleteMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error is not *DeleteMismatchError: %T", err)
	}
	if mismatch.Found != "bar" || mismatch.Expected != "foo" || mismatch.Line != 3 {
		t.Errorf("mismatch = %+v", mismatch)
	}
	if !reflect.DeepEqual(got, buf) {
		t.Errorf("buffer changed on mismatch: %#v", got)
	}
}

func TestDeleteAt_ExactEquality(t *testing.T) {
	buf := Buffer{"  indented"}
	if _, err := buf.DeleteAt(1, "indented"); !errors.Is(err, ErrDeleteMismatch) {
		t.Errorf("whitespace-insensitive match accepted: err = %v", err)
	}
}

func TestDeleteAt_MissingLine(t *testing.T) {
	_, err := (Buffer{"a"}).DeleteAt(5, "a")
	var mismatch *DeleteMismatchError
	if !errors.As(err, &mismatch) || !mismatch.Missing {
		t.Errorf("DeleteAt(5) error = %v, want missing-line mismatch", err)
	}
}

func TestReplaceAll_Idempotent(t *testing.T) {
	w := Edit{FileName: "f", Action: ActionWrite, Content: "x\ny\n"}

	once, err := (Buffer{"old"}).Apply(w)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := once.Apply(w)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("write not idempotent: %#v vs %#v", once, twice)
	}
	if twice.Text() != "x\ny\n" {
		t.Errorf("Text() = %q", twice.Text())
	}
}

func TestApply_DeleteFileRejected(t *testing.T) {
	_, err := (Buffer{"a"}).Apply(Edit{Action: ActionDeleteFile})
	if !errors.Is(err, ErrInvalidEdit) {
		t.Errorf("Apply(delete_file) error = %v, want ErrInvalidEdit", err)
	}
}

func TestApplyAll_StopsOnMismatch(t *testing.T) {
	buf := Buffer{"a", "b", "c"}
	edits := []Edit{
		{FileName: "f", Action: ActionDelete, Line: 3, Content: "c"},
		{FileName: "f", Action: ActionDelete, Line: 1, Content: "nope"},
	}

	got, err := buf.ApplyAll(edits)
	if !errors.Is(err, ErrDeleteMismatch) {
		t.Fatalf("ApplyAll() error = %v, want ErrDeleteMismatch", err)
	}
	if !reflect.DeepEqual(got, buf) {
		t.Errorf("ApplyAll() returned partial buffer %#v", got)
	}
}
