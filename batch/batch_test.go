package batch

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestChunk(t *testing.T) {
	cases := []struct {
		n    int
		want []int
	}{
		{n: 0, want: nil},
		{n: 1, want: []int{1}},
		{n: 10, want: []int{10}},
		{n: 11, want: []int{10, 1}},
		{n: 23, want: []int{10, 10, 3}},
	}
	for _, tc := range cases {
		chunks := Chunk(seq(tc.n), Size)
		var sizes []int
		for _, c := range chunks {
			sizes = append(sizes, len(c))
		}
		if !reflect.DeepEqual(sizes, tc.want) {
			t.Fatalf("Chunk(%d) sizes = %v, want %v", tc.n, sizes, tc.want)
		}
		if got := Flatten(chunks); tc.n > 0 && !reflect.DeepEqual(got, seq(tc.n)) {
			t.Fatalf("Flatten(Chunk(%d)) = %v", tc.n, got)
		}
	}
}

func TestChunkDoesNotAlias(t *testing.T) {
	items := seq(12)
	chunks := Chunk(items, 10)
	chunks[0] = append(chunks[0], 99)
	if items[10] != 10 {
		t.Fatalf("appending to a chunk overwrote the input: %v", items)
	}
}

func TestChunkDefaultSize(t *testing.T) {
	if got := len(Chunk(seq(25), 0)); got != 3 {
		t.Fatalf("Chunk with size 0 = %d chunks, want 3", got)
	}
}

func TestResultList(t *testing.T) {
	if got := One("a").List(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("One.List() = %v", got)
	}
	if got := Many([]string{"a", "b"}).List(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Many.List() = %v", got)
	}
	var absent Result[string]
	if got := absent.List(); got == nil || len(got) != 0 {
		t.Fatalf("zero Result.List() = %#v, want empty list", got)
	}
}

func TestMirror(t *testing.T) {
	if r := Mirror(1, []int{7}); !r.IsOne() {
		t.Fatalf("Mirror(1) should produce a bare value")
	}
	if r := Mirror(2, []int{7, 8}); r.IsOne() || r.Len() != 2 {
		t.Fatalf("Mirror(2) = %#v", r)
	}
	if r := Mirror[int](1, nil); r.IsOne() || r.Len() != 0 {
		t.Fatalf("Mirror(1, nil) = %#v", r)
	}
}

func TestFanOutKeepsChunkOrder(t *testing.T) {
	chunks := Chunk(seq(35), Size)
	got, err := FanOut(context.Background(), chunks, 0, nil, func(_ context.Context, in []int) ([]int, error) {
		// Later chunks finish first.
		time.Sleep(time.Duration(40-in[0]) * time.Millisecond)
		out := make([]int, len(in))
		for i, v := range in {
			out[i] = v * 2
		}
		return out, nil
	})
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
	flat := Flatten(got)
	for i, v := range flat {
		if v != i*2 {
			t.Fatalf("result %d = %d, want %d", i, v, i*2)
		}
	}
}

func TestFanOutFirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	_, err := FanOut(context.Background(), Chunk(seq(30), Size), 0, nil, func(ctx context.Context, in []int) ([]int, error) {
		calls.Add(1)
		if in[0] == 10 {
			return nil, boom
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestFanOutLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	_, err := FanOut(context.Background(), Chunk(seq(60), Size), 2, nil, func(_ context.Context, in []int) ([]int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return in, nil
	})
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
	if peak.Load() > 2 {
		t.Fatalf("peak in-flight = %d, want <= 2", peak.Load())
	}
}

type recordingTracker struct {
	mu     sync.Mutex
	stages map[string]int
	last   map[string]int
}

func (r *recordingTracker) Track(stage string, chunks int) Progress {
	r.mu.Lock()
	r.stages[stage] = chunks
	r.mu.Unlock()
	return func(done, total int) {
		r.mu.Lock()
		r.last[stage] = done
		r.mu.Unlock()
	}
}

func TestDoReportsProgress(t *testing.T) {
	tr := &recordingTracker{stages: map[string]int{}, last: map[string]int{}}
	out, err := Do(context.Background(), "read", seq(21), Options{Tracker: tr}, func(_ context.Context, in []int) ([]string, error) {
		s := make([]string, len(in))
		return s, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(out) != 21 {
		t.Fatalf("len(out) = %d, want 21", len(out))
	}
	if tr.stages["read"] != 3 || tr.last["read"] != 3 {
		t.Fatalf("tracker = %v / %v", tr.stages, tr.last)
	}
}

func TestDoEmpty(t *testing.T) {
	called := false
	out, err := Do(context.Background(), "noop", []int{}, Options{}, func(_ context.Context, in []int) ([]int, error) {
		called = true
		return in, nil
	})
	if err != nil || called || len(out) != 0 {
		t.Fatalf("Do(empty) = %v, %v, called=%v", out, err, called)
	}
}
