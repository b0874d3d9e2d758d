//go:build !windows

package kubectl

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/podtail/internal/source"
)

// shellFactory runs script with /bin/sh in place of kubectl and records the
// arguments each invocation received.
type shellFactory struct {
	script string
	mu     sync.Mutex
	calls  [][]string
}

func (f *shellFactory) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	return exec.CommandContext(ctx, "/bin/sh", "-c", f.script)
}

func readAll(t *testing.T, s source.Stream) ([]string, error) {
	t.Helper()
	var lines []string
	for {
		line, err := s.Next()
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}

func TestLogsArgs(t *testing.T) {
	tests := []struct {
		name   string
		client *Client
		src    source.Source
		opts   source.ReadOptions
		want   []string
	}{
		{
			name:   "bounded default namespace",
			client: New(),
			src:    source.Source{Name: "api-0"},
			opts:   source.ReadOptions{Tail: 1000},
			want:   []string{"logs", "api-0", "--tail=1000"},
		},
		{
			name:   "follow with namespace and context",
			client: New(WithKubeContext("staging")),
			src:    source.Source{Name: "api-0", Namespace: "web"},
			opts:   source.ReadOptions{Tail: 10, Follow: true},
			want:   []string{"logs", "api-0", "--context", "staging", "-n", "web", "--tail=10", "--follow"},
		},
		{
			name:   "all lines all containers",
			client: New(),
			src:    source.Source{Name: "db-0", Namespace: "data"},
			opts:   source.ReadOptions{Tail: -5, AllContainers: true},
			want:   []string{"logs", "db-0", "-n", "data", "--tail=-1", "--all-containers"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.client.LogsArgs(tt.src, tt.opts))
		})
	}
}

func TestListArgs(t *testing.T) {
	require.Equal(t,
		[]string{"get", "pods", "-o", podColumns, "--no-headers", "-n", "web"},
		New().ListArgs("web"))
	require.Equal(t,
		[]string{"get", "pods", "-o", podColumns, "--no-headers", "--context", "prod", "--all-namespaces"},
		New(WithKubeContext("prod"), WithAllNamespaces(true)).ListArgs("ignored"))
}

func TestOpen_MergesStdoutAndStderrInOrder(t *testing.T) {
	f := &shellFactory{script: `printf 'one\n'; printf 'two\n' >&2; printf 'three\n'`}
	c := New(WithPath("/usr/local/bin/kubectl"), WithCommandFactory(f.command))

	stream, err := c.Open(context.Background(), source.Source{ID: "api-0", Name: "api-0", Namespace: "web"}, source.ReadOptions{Tail: 5})
	require.NoError(t, err)
	defer stream.Close()

	lines, err := readAll(t, stream)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, []string{"one", "two", "three"}, lines)

	require.Len(t, f.calls, 1)
	require.Equal(t, []string{"/usr/local/bin/kubectl", "logs", "api-0", "-n", "web", "--tail=5"}, f.calls[0])
}

func TestOpen_NonZeroExitFailsStream(t *testing.T) {
	f := &shellFactory{script: `echo partial; exit 3`}
	c := New(WithCommandFactory(f.command))

	stream, err := c.Open(context.Background(), source.Source{ID: "api-0", Name: "api-0"}, source.ReadOptions{})
	require.NoError(t, err)
	defer stream.Close()

	lines, err := readAll(t, stream)
	require.Equal(t, []string{"partial"}, lines)
	require.Error(t, err)
	require.NotErrorIs(t, err, io.EOF)
	require.ErrorContains(t, err, "kubectl logs api-0")
	require.ErrorContains(t, err, "exit status 3")

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
}

func TestOpen_LaunchError(t *testing.T) {
	c := New(WithCommandFactory(func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "/nonexistent/kubectl", args...)
	}))

	_, err := c.Open(context.Background(), source.Source{ID: "api-0", Name: "api-0"}, source.ReadOptions{})
	var launchErr *source.LaunchError
	require.ErrorAs(t, err, &launchErr)
	require.Equal(t, "api-0", launchErr.Source)
}

func TestOpen_CancelKillsProcessGroup(t *testing.T) {
	// The background sleep keeps the pipe open unless the whole group dies.
	f := &shellFactory{script: `sleep 30 & while true; do echo tick; sleep 0.05; done`}
	c := New(WithCommandFactory(f.command))

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := c.Open(ctx, source.Source{ID: "api-0", Name: "api-0"}, source.ReadOptions{Follow: true})
	require.NoError(t, err)
	defer stream.Close()

	line, err := stream.Next()
	require.NoError(t, err)
	require.Equal(t, "tick", line)

	cancel()
	done := make(chan error, 1)
	go func() {
		_, err := readAll(t, stream)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		require.NotErrorIs(t, err, io.EOF)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after cancellation")
	}
}

func TestOpen_OversizedLineDoesNotStallBoundedStream(t *testing.T) {
	f := &shellFactory{script: `head -c 2097152 /dev/zero | tr '\0' 'a'; echo; echo after`}
	c := New(WithCommandFactory(f.command))

	stream, err := c.Open(context.Background(), source.Source{ID: "big", Name: "big"}, source.ReadOptions{Tail: 10})
	require.NoError(t, err)
	defer stream.Close()

	type result struct {
		lines []string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		lines, err := readAll(t, stream)
		done <- result{lines, err}
	}()

	select {
	case r := <-done:
		require.ErrorIs(t, r.err, io.EOF)
		require.NotEmpty(t, r.lines)
		require.Equal(t, "after", r.lines[len(r.lines)-1])
		total := 0
		for _, line := range r.lines[:len(r.lines)-1] {
			require.LessOrEqual(t, len(line), source.MaxLineBytes)
			total += len(line)
		}
		require.Equal(t, 2097152, total)
	case <-time.After(10 * time.Second):
		t.Fatal("bounded stream stalled on an oversized line")
	}
}

func TestList_CancelledDuringDiscovery(t *testing.T) {
	f := &shellFactory{script: `sleep 5`}
	c := New(WithCommandFactory(f.command))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	_, err := c.List(ctx, source.Filter{})
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 4*time.Second)
}

func TestClose_UnblocksNext(t *testing.T) {
	f := &shellFactory{script: `sleep 30`}
	c := New(WithCommandFactory(f.command))

	stream, err := c.Open(context.Background(), source.Source{ID: "idle", Name: "idle"}, source.ReadOptions{Follow: true})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := stream.Next()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	_ = stream.Close()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Next still blocked after Close")
	}
}

func TestList(t *testing.T) {
	f := &shellFactory{script: `printf 'web api-1 Running\nweb api-2 Pending\nweb db-0 Running\n'`}
	c := New(WithKubeContext("prod"), WithCommandFactory(f.command))

	got, err := c.List(context.Background(), source.Filter{Pattern: "^api", Namespaces: []string{"web"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "api-1", got[0].ID)
	require.Equal(t, "web", got[0].Namespace)
	require.Equal(t, source.KindKubectl, got[0].Kind)
	require.Equal(t, "Pending", got[1].Meta["phase"])

	require.Len(t, f.calls, 1)
	require.Contains(t, f.calls[0], "--context")
	require.Equal(t, []string{"-n", "web"}, f.calls[0][len(f.calls[0])-2:])
}

func TestList_AllNamespacesQualifiesIDs(t *testing.T) {
	f := &shellFactory{script: `printf 'a api Running\nb api Running\n'`}
	c := New(WithAllNamespaces(true), WithCommandFactory(f.command))

	got, err := c.List(context.Background(), source.Filter{Namespaces: []string{"ignored"}})
	require.NoError(t, err)
	require.Equal(t, "a/api", got[0].ID)
	require.Equal(t, "b/api", got[1].ID)
	require.Contains(t, f.calls[0], "--all-namespaces")
}

func TestList_NoMatch(t *testing.T) {
	f := &shellFactory{script: `printf 'web db-0 Running\n'`}
	c := New(WithCommandFactory(f.command))

	_, err := c.List(context.Background(), source.Filter{Pattern: "api"})
	require.ErrorIs(t, err, source.ErrNotFound)
}

func TestList_CommandFailureIncludesStderr(t *testing.T) {
	f := &shellFactory{script: `echo 'pods is forbidden' >&2; exit 1`}
	c := New(WithCommandFactory(f.command))

	_, err := c.List(context.Background(), source.Filter{})
	require.ErrorContains(t, err, "pods is forbidden")
	require.NotErrorIs(t, err, source.ErrNotFound)
}

func TestParsePods(t *testing.T) {
	got := parsePods([]byte("pod/legacy\n\nns name Running\n"), "default")
	require.Equal(t, []source.Candidate{
		{Name: "legacy", Namespace: "default"},
		{Name: "name", Namespace: "ns", Meta: map[string]string{"phase": "Running"}},
	}, got)
}
