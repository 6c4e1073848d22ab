package serp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
)

// fakeProvider serves canned pages keyed by start offset.
type fakeProvider struct {
	pages  map[int][]Item
	errs   map[int]error
	starts []int
}

func (f *fakeProvider) Page(ctx context.Context, q Query, start int) ([]Item, error) {
	f.starts = append(f.starts, start)
	if err := f.errs[start]; err != nil {
		return nil, err
	}
	return f.pages[start], nil
}

func items(links ...string) []Item {
	out := make([]Item, len(links))
	for i, l := range links {
		out[i] = Item{Link: l}
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStarts(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{1, nil},
		{2, []int{1}},
		{5, []int{1}},
		{10, []int{1}},
		{11, []int{1}},
		{12, []int{1, 11}},
		{21, []int{1, 11}},
		{22, []int{1, 11, 21}},
	}
	for _, tt := range tests {
		if got := Starts(tt.n); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Starts(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}

	// request count is ceil((n-1)/10)
	for n := 2; n <= 105; n++ {
		want := (n - 1 + PageSize - 1) / PageSize
		if got := len(Starts(n)); got != want {
			t.Errorf("len(Starts(%d)) = %d, want %d", n, got, want)
		}
	}
}

func TestQuery_Values(t *testing.T) {
	q := Query{Text: "golang", APIKey: "k", SearchEngineID: "cx1", Country: "countryUS"}
	v := q.Values(11)

	want := map[string]string{"q": "golang", "key": "k", "cx": "cx1", "cr": "countryUS", "start": "11"}
	for k, val := range want {
		if got := v.Get(k); got != val {
			t.Errorf("%s = %q, want %q", k, got, val)
		}
	}
	if v.Has("dateRestrict") {
		t.Errorf("expected empty dateRestrict to be omitted")
	}

	if got := (Query{Text: "x"}).Values(1); got.Has("key") || got.Has("cr") {
		t.Errorf("expected empty optional params to be omitted, got %v", got)
	}
}

func TestCollector_OrderAndDuplicates(t *testing.T) {
	p := &fakeProvider{pages: map[int][]Item{
		1:  items("https://a", "https://b"),
		11: items("https://b", "https://c"),
		21: items("https://a"),
	}}

	links, err := NewCollector(p, PolicyAbort, quietLogger()).Collect(context.Background(), Query{Text: "q"}, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"https://a", "https://b", "https://b", "https://c", "https://a"}
	if !reflect.DeepEqual(links, want) {
		t.Errorf("links = %v, want %v", links, want)
	}
	if !reflect.DeepEqual(p.starts, []int{1, 11, 21}) {
		t.Errorf("starts = %v, want [1 11 21]", p.starts)
	}
}

func TestCollector_AbortStopsAtFailedPage(t *testing.T) {
	p := &fakeProvider{
		pages: map[int][]Item{1: items("https://a"), 21: items("https://c")},
		errs:  map[int]error{11: ErrMissingItems},
	}

	links, err := NewCollector(p, PolicyAbort, quietLogger()).Collect(context.Background(), Query{}, 30)
	if !errors.Is(err, ErrMissingItems) {
		t.Fatalf("expected ErrMissingItems, got %v", err)
	}
	if links != nil {
		t.Errorf("expected no links on abort, got %v", links)
	}
	if !reflect.DeepEqual(p.starts, []int{1, 11}) {
		t.Errorf("expected collection to stop after the failed page, requested %v", p.starts)
	}
}

func TestCollector_SkipPolicy(t *testing.T) {
	p := &fakeProvider{
		pages: map[int][]Item{1: items("https://a"), 21: items("https://c")},
		errs:  map[int]error{11: ErrMissingItems},
	}

	links, err := NewCollector(p, PolicySkip, quietLogger()).Collect(context.Background(), Query{}, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(links, []string{"https://a", "https://c"}) {
		t.Errorf("links = %v", links)
	}
}

func TestCollector_NoPages(t *testing.T) {
	p := &fakeProvider{}
	links, err := CollectLinks(context.Background(), p, Query{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 0 || len(p.starts) != 0 {
		t.Errorf("expected no requests and no links, got %v / %v", p.starts, links)
	}
}

func TestCollector_CancelledContext(t *testing.T) {
	p := &fakeProvider{pages: map[int][]Item{1: items("https://a")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCollector(p, PolicySkip, quietLogger()).Collect(ctx, Query{}, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(p.starts) != 0 {
		t.Errorf("expected no requests after cancellation, got %v", p.starts)
	}
}

func TestParsePageErrorPolicy(t *testing.T) {
	for in, want := range map[string]PageErrorPolicy{"": PolicyAbort, "abort": PolicyAbort, " Skip ": PolicySkip} {
		got, err := ParsePageErrorPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePageErrorPolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePageErrorPolicy("retry"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
