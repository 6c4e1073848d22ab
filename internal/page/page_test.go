package page

import (
	"errors"
	"testing"
)

func TestRecord_Preview(t *testing.T) {
	r := &Record{Text: "héllo world"}

	tests := []struct {
		n    int
		want string
	}{
		{0, "héllo world"},
		{-1, "héllo world"},
		{5, "héllo..."},
		{11, "héllo world"},
		{50, "héllo world"},
	}
	for _, tt := range tests {
		if got := r.Preview(tt.n); got != tt.want {
			t.Errorf("Preview(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestRecord_Cause(t *testing.T) {
	ok := &Record{Status: StatusExtracted}
	if ok.Failed() || ok.Cause() != "" {
		t.Errorf("expected successful record, got failed=%v cause=%q", ok.Failed(), ok.Cause())
	}

	bad := &Record{Status: StatusFailed, Err: errors.New("boom")}
	if !bad.Failed() || bad.Cause() != "boom" {
		t.Errorf("expected failed record with cause boom, got failed=%v cause=%q", bad.Failed(), bad.Cause())
	}
}
