// Package kubectl discovers pods and streams their logs through the kubectl
// binary.
package kubectl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/five82/podtail/internal/source"
)

// DefaultPath is the kubectl executable looked up on PATH.
const DefaultPath = "kubectl"

// waitDelay bounds how long Wait lingers on I/O after the process is killed.
const waitDelay = 2 * time.Second

// podColumns asks for namespace, name and phase in whitespace-separated columns.
const podColumns = "custom-columns=NAMESPACE:.metadata.namespace,NAME:.metadata.name,PHASE:.status.phase"

// CommandFactoryFunc creates an exec.Cmd. Implementations must use
// exec.CommandContext so cancellation reaches the process.
type CommandFactoryFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Client runs kubectl for discovery and log streaming. It implements both
// source.Discovery and source.Reader.
type Client struct {
	path          string
	kubeContext   string
	allNamespaces bool
	factory       CommandFactoryFunc
	logger        *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithPath sets the kubectl executable.
func WithPath(path string) Option {
	return func(c *Client) {
		if path = strings.TrimSpace(path); path != "" {
			c.path = path
		}
	}
}

// WithKubeContext passes --context to every invocation.
func WithKubeContext(name string) Option {
	return func(c *Client) { c.kubeContext = strings.TrimSpace(name) }
}

// WithAllNamespaces lists pods across every namespace.
func WithAllNamespaces(all bool) Option {
	return func(c *Client) { c.allNamespaces = all }
}

// WithCommandFactory replaces exec.CommandContext, mainly for tests.
func WithCommandFactory(factory CommandFactoryFunc) Option {
	return func(c *Client) {
		if factory != nil {
			c.factory = factory
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Client.
func New(opts ...Option) *Client {
	c := &Client{
		path:    DefaultPath,
		factory: exec.CommandContext,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := c.factory(ctx, c.path, args...)
	configureCommandProcess(cmd)
	cmd.Cancel = func() error {
		terminateCommandProcess(cmd)
		return nil
	}
	cmd.WaitDelay = waitDelay
	return cmd
}

func (c *Client) contextArgs() []string {
	if c.kubeContext == "" {
		return nil
	}
	return []string{"--context", c.kubeContext}
}

// List implements source.Discovery.
func (c *Client) List(ctx context.Context, filter source.Filter) ([]source.Source, error) {
	namespaces := filter.Namespaces
	if c.allNamespaces {
		namespaces = nil
	}
	candidates, err := source.ListNamespaces(ctx, namespaces, c.listPods)
	if err != nil {
		return nil, err
	}
	return source.Select(source.KindKubectl, candidates, filter)
}

// ListArgs returns the kubectl arguments used to list pods in namespace.
func (c *Client) ListArgs(namespace string) []string {
	args := []string{"get", "pods", "-o", podColumns, "--no-headers"}
	args = append(args, c.contextArgs()...)
	switch {
	case c.allNamespaces:
		args = append(args, "--all-namespaces")
	case namespace != "":
		args = append(args, "-n", namespace)
	}
	return args
}

func (c *Client) listPods(ctx context.Context, namespace string) ([]source.Candidate, error) {
	args := c.ListArgs(namespace)
	c.logger.Debug("listing pods", zap.Strings("args", args))

	out, err := c.command(ctx, args...).Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("kubectl get pods: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg := strings.TrimSpace(string(exitErr.Stderr)); msg != "" {
				return nil, fmt.Errorf("kubectl get pods: %s: %w", msg, err)
			}
		}
		return nil, fmt.Errorf("kubectl get pods: %w", err)
	}
	return parsePods(out, namespace), nil
}

// parsePods reads "NAMESPACE NAME PHASE" rows. Rows with a single column are
// treated as bare pod names in fallback.
func parsePods(out []byte, fallback string) []source.Candidate {
	var pods []source.Candidate
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		switch len(fields) {
		case 0:
			continue
		case 1:
			pods = append(pods, source.Candidate{Name: strings.TrimPrefix(fields[0], "pod/"), Namespace: fallback})
		default:
			pod := source.Candidate{Namespace: fields[0], Name: fields[1]}
			if len(fields) > 2 {
				pod.Meta = map[string]string{"phase": fields[2]}
			}
			pods = append(pods, pod)
		}
	}
	return pods
}

// LogsArgs returns the kubectl arguments that stream src's logs.
func (c *Client) LogsArgs(src source.Source, opts source.ReadOptions) []string {
	args := []string{"logs", src.Name}
	args = append(args, c.contextArgs()...)
	if src.Namespace != "" {
		args = append(args, "-n", src.Namespace)
	}
	tail := opts.Tail
	if tail < 0 {
		tail = -1
	}
	args = append(args, "--tail="+strconv.Itoa(tail))
	if opts.Follow {
		args = append(args, "--follow")
	}
	if opts.AllContainers {
		args = append(args, "--all-containers")
	}
	return args
}

// Open implements source.Reader. The process's stdout and stderr share one
// pipe so their lines stay in the order kubectl wrote them.
func (c *Client) Open(ctx context.Context, src source.Source, opts source.ReadOptions) (source.Stream, error) {
	args := c.LogsArgs(src, opts)
	cmd := c.command(ctx, args...)

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, &source.LaunchError{Source: src.ID, Err: fmt.Errorf("create pipe: %w", err)}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, &source.LaunchError{Source: src.ID, Err: err}
	}
	// The child holds its own copy; ours must go so EOF arrives on exit.
	_ = pw.Close()

	c.logger.Debug("kubectl started",
		zap.String("source", src.ID),
		zap.Int("pid", cmd.Process.Pid),
		zap.Strings("args", args))

	p := &process{cmd: cmd, name: src.Name}
	return source.NewLineStream(pr, p.wait, func() error {
		if !p.exited.Load() {
			terminateCommandProcess(cmd)
		}
		closeErr := pr.Close()
		_ = p.wait()
		return closeErr
	}), nil
}

type process struct {
	cmd    *exec.Cmd
	name   string
	once   sync.Once
	err    error
	exited atomic.Bool
}

// wait reaps the process exactly once and reports a non-zero exit.
func (p *process) wait() error {
	p.once.Do(func() {
		if err := p.cmd.Wait(); err != nil {
			p.err = fmt.Errorf("kubectl logs %s: %w", p.name, err)
		}
		p.exited.Store(true)
	})
	return p.err
}
