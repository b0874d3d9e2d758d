package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/podtail/internal/source"
	"github.com/five82/podtail/internal/state"
)

type fakeStream struct {
	lines     []string
	next      int
	endErr    error
	block     bool
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *fakeStream) Next() (string, error) {
	if s.next < len(s.lines) {
		line := s.lines[s.next]
		s.next++
		return line, nil
	}
	if s.block {
		<-s.closed
		return "", errors.New("stream closed")
	}
	if s.endErr != nil {
		return "", s.endErr
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

type fakeReader struct {
	lines     map[string][]string
	launchErr map[string]error
	endErr    map[string]error
	block     bool

	opened atomic.Int32
	mu     sync.Mutex
	closed []*fakeStream
}

func (r *fakeReader) Open(ctx context.Context, src source.Source, opts source.ReadOptions) (source.Stream, error) {
	r.opened.Add(1)
	if err := r.launchErr[src.ID]; err != nil {
		return nil, err
	}
	s := &fakeStream{
		lines:  r.lines[src.ID],
		endErr: r.endErr[src.ID],
		block:  r.block,
		closed: make(chan struct{}),
	}
	r.mu.Lock()
	r.closed = append(r.closed, s)
	r.mu.Unlock()
	return s, nil
}

type collector struct {
	mu    sync.Mutex
	lines map[string][]source.LogLine
}

func (c *collector) Deliver(ctx context.Context, line source.LogLine) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lines == nil {
		c.lines = make(map[string][]source.LogLine)
	}
	c.lines[line.Source.ID] = append(c.lines[line.Source.ID], line)
	return nil
}

func (c *collector) texts(id string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.lines[id]))
	for _, l := range c.lines[id] {
		out = append(out, l.Text)
	}
	return out
}

func sources(ids ...string) []source.Source {
	out := make([]source.Source, len(ids))
	for i, id := range ids {
		out[i] = source.Source{ID: id, Name: id, Kind: source.KindKubectl}
	}
	return out
}

func numbered(id string, n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("%s line %d", id, i)
	}
	return lines
}

func statusOf(t *testing.T, store *state.Store, id string) state.SourceState {
	t.Helper()
	for _, st := range store.Snapshot().Sources {
		if st.ID == id {
			return st
		}
	}
	t.Fatalf("source %s not tracked", id)
	return state.SourceState{}
}

func TestRun_BoundedDeliversEveryLine(t *testing.T) {
	const k = 25
	reader := &fakeReader{lines: map[string][]string{
		"a": numbered("a", k),
		"b": numbered("b", k),
		"c": numbered("c", k),
	}}
	out := &collector{}
	store := &state.Store{}
	sup := New(reader, out, WithTracker(store), WithSeed(1))

	err := sup.Run(context.Background(), sources("a", "b", "c"), ModeBounded, source.ReadOptions{Tail: 10})
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		require.Equal(t, numbered(id, k), out.texts(id))
		require.Equal(t, state.StatusCompleted, statusOf(t, store, id).Status)
	}
	require.Equal(t, 3, sup.Registry().Len())
	require.Equal(t, []string{"a", "b", "c"}, sup.Registry().IDs())
}

func TestRun_AssignsStableColors(t *testing.T) {
	reader := &fakeReader{lines: map[string][]string{"a": {"1", "2"}, "b": {"1"}}}
	out := &collector{}
	sup := New(reader, out, WithSeed(3))

	require.NoError(t, sup.Run(context.Background(), sources("a", "b"), ModeBounded, source.ReadOptions{}))

	out.mu.Lock()
	defer out.mu.Unlock()
	first := out.lines["a"][0].Source.Color
	require.NotNil(t, first)
	require.Same(t, first, out.lines["a"][1].Source.Color)
	require.NotSame(t, first, out.lines["b"][0].Source.Color)

	w, ok := sup.Registry().Get("a")
	require.True(t, ok)
	require.Same(t, first, w.Source.Color)
}

func TestRun_NoSources(t *testing.T) {
	reader := &fakeReader{}
	sup := New(reader, &collector{})

	err := sup.Run(context.Background(), nil, ModeFollow, source.ReadOptions{})
	require.ErrorIs(t, err, source.ErrNotFound)
	require.Nil(t, sup.Registry())
	require.Zero(t, reader.opened.Load())
}

func TestRun_DuplicateIDSpawnsNothing(t *testing.T) {
	reader := &fakeReader{}
	sup := New(reader, &collector{})

	err := sup.Run(context.Background(), sources("a", "b", "a"), ModeBounded, source.ReadOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), `duplicate source "a"`)
	require.Zero(t, reader.opened.Load())
}

func TestRun_LaunchFailureIsIsolated(t *testing.T) {
	reader := &fakeReader{
		lines:     map[string][]string{"a": numbered("a", 3), "c": numbered("c", 3)},
		launchErr: map[string]error{"b": errors.New("executable not found")},
	}
	out := &collector{}
	store := &state.Store{}

	var mu sync.Mutex
	reported := map[string]error{}
	sup := New(reader, out, WithTracker(store), WithReporter(func(src source.Source, err error) {
		mu.Lock()
		defer mu.Unlock()
		reported[src.ID] = err
	}))

	require.NoError(t, sup.Run(context.Background(), sources("a", "b", "c"), ModeBounded, source.ReadOptions{}))

	require.Len(t, out.texts("a"), 3)
	require.Len(t, out.texts("c"), 3)
	require.Empty(t, out.texts("b"))

	require.Len(t, reported, 1)
	var launchErr *source.LaunchError
	require.ErrorAs(t, reported["b"], &launchErr)
	require.Equal(t, "b", launchErr.Source)

	st := statusOf(t, store, "b")
	require.Equal(t, state.StatusFailed, st.Status)
	require.ErrorContains(t, st.LastError, "executable not found")

	w, ok := sup.Registry().Get("b")
	require.True(t, ok)
	require.ErrorAs(t, w.Err(), &launchErr)
}

func TestRun_StreamFailureIsReported(t *testing.T) {
	exit := errors.New("exit status 1")
	reader := &fakeReader{
		lines:  map[string][]string{"a": {"partial"}, "b": {"fine"}},
		endErr: map[string]error{"a": exit},
	}
	store := &state.Store{}
	var reports atomic.Int32
	sup := New(reader, &collector{}, WithTracker(store), WithReporter(func(source.Source, error) { reports.Add(1) }))

	require.NoError(t, sup.Run(context.Background(), sources("a", "b"), ModeBounded, source.ReadOptions{}))

	require.Equal(t, int32(1), reports.Load())
	require.Equal(t, state.StatusFailed, statusOf(t, store, "a").Status)
	require.Equal(t, state.StatusCompleted, statusOf(t, store, "b").Status)
	w, _ := sup.Registry().Get("a")
	require.ErrorIs(t, w.Err(), exit)
}

func TestRun_FollowRunsUntilCancelled(t *testing.T) {
	const n = 4
	reader := &fakeReader{block: true, lines: map[string][]string{"s0": {"hello"}}}
	store := &state.Store{}
	sup := New(reader, &collector{}, WithTracker(store))

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("s%d", i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sup.Run(ctx, sources(ids...), ModeFollow, source.ReadOptions{Follow: true})
	}()

	require.Eventually(t, func() bool {
		return store.Snapshot().Counts()[state.StatusStreaming] == n
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, n, sup.Registry().Len())

	select {
	case err := <-done:
		t.Fatalf("follow run ended before cancellation: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("follow run did not stop after cancellation")
	}

	for _, id := range ids {
		require.Equal(t, state.StatusCancelled, statusOf(t, store, id).Status)
		w, _ := sup.Registry().Get(id)
		require.NoError(t, w.Err())
	}
	reader.mu.Lock()
	defer reader.mu.Unlock()
	for _, s := range reader.closed {
		select {
		case <-s.closed:
		default:
			t.Fatal("stream left open after run")
		}
	}
}

func TestRun_FollowOutlivesFinishedStreams(t *testing.T) {
	reader := &fakeReader{lines: map[string][]string{"a": {"x"}}}
	store := &state.Store{}
	sup := New(reader, &collector{}, WithTracker(store))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx, sources("a"), ModeFollow, source.ReadOptions{Follow: true}) }()

	require.Eventually(t, func() bool {
		return store.Snapshot().Counts()[state.StatusCompleted] == 1
	}, 5*time.Second, 10*time.Millisecond)

	select {
	case <-done:
		t.Fatal("follow run ended without cancellation")
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
	require.NoError(t, <-done)
}

func TestRun_BoundedInterrupted(t *testing.T) {
	reader := &fakeReader{block: true}
	sup := New(reader, &collector{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx, sources("a", "b"), ModeBounded, source.ReadOptions{}) }()

	require.Eventually(t, func() bool { return reader.opened.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bounded run did not stop after cancellation")
	}
}

func TestModeFor(t *testing.T) {
	require.Equal(t, ModeFollow, ModeFor(true))
	require.Equal(t, ModeBounded, ModeFor(false))
	require.Equal(t, "follow", ModeFollow.String())
	require.Equal(t, "bounded", ModeBounded.String())
}
