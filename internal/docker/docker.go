// Package docker discovers running containers and streams their logs from
// the Docker Engine API.
//
// A container's namespace is its Compose project, so `-n shop` selects the
// containers of the "shop" project.
package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"

	"github.com/five82/podtail/internal/source"
)

// ProjectLabel is the Compose label used as a container's namespace.
const ProjectLabel = "com.docker.compose.project"

// API is the subset of the Docker client used here.
type API interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
}

// Client implements source.Discovery and source.Reader for containers.
type Client struct {
	api    API
	closer io.Closer
	logger *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithAPI uses api instead of a client built from the environment.
func WithAPI(api API) Option {
	return func(c *Client) { c.api = api }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Client. Unless WithAPI is given it connects using DOCKER_HOST
// and related environment variables, negotiating the API version.
func New(opts ...Option) (*Client, error) {
	c := &Client{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.api == nil {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return nil, fmt.Errorf("docker client: %w", err)
		}
		c.api = cli
		c.closer = cli
	}
	return c, nil
}

// Close releases the underlying API connection.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// List implements source.Discovery. Only running containers are considered.
func (c *Client) List(ctx context.Context, filter source.Filter) ([]source.Source, error) {
	candidates, err := source.ListNamespaces(ctx, filter.Namespaces, c.listContainers)
	if err != nil {
		return nil, err
	}
	return source.Select(source.KindDocker, candidates, filter)
}

func (c *Client) listContainers(ctx context.Context, project string) ([]source.Candidate, error) {
	opts := container.ListOptions{}
	if project != "" {
		opts.Filters = filters.NewArgs(filters.Arg("label", ProjectLabel+"="+project))
	}
	containers, err := c.api.ContainerList(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]source.Candidate, 0, len(containers))
	for _, ctr := range containers {
		name := ctr.ID
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}
		out = append(out, source.Candidate{
			Name:      name,
			Namespace: ctr.Labels[ProjectLabel],
			Meta: map[string]string{
				"id":    ctr.ID,
				"image": ctr.Image,
				"state": ctr.State,
			},
		})
	}
	return out, nil
}

// LogsOptions maps read options onto the Engine API's log request.
func LogsOptions(opts source.ReadOptions) container.LogsOptions {
	tail := "all"
	if opts.Tail >= 0 {
		tail = strconv.Itoa(opts.Tail)
	}
	return container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       tail,
	}
}

// Open implements source.Reader. Containers without a TTY send stdout and
// stderr multiplexed; they are split with stdcopy and rejoined into one
// ordered line stream.
func (c *Client) Open(ctx context.Context, src source.Source, opts source.ReadOptions) (source.Stream, error) {
	id := src.Meta["id"]
	if id == "" {
		id = src.Name
	}

	info, err := c.api.ContainerInspect(ctx, id)
	if err != nil {
		return nil, &source.LaunchError{Source: src.ID, Err: fmt.Errorf("inspect container: %w", err)}
	}
	tty := info.Config != nil && info.Config.Tty

	rc, err := c.api.ContainerLogs(ctx, id, LogsOptions(opts))
	if err != nil {
		return nil, &source.LaunchError{Source: src.ID, Err: fmt.Errorf("container logs: %w", err)}
	}
	c.logger.Debug("docker log stream opened",
		zap.String("source", src.ID),
		zap.String("container", id),
		zap.Bool("tty", tty))

	if tty {
		return source.NewLineStream(rc, nil, rc.Close), nil
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, rc)
		_ = pw.CloseWithError(err)
	}()
	return source.NewLineStream(pr, nil, func() error {
		err := rc.Close()
		_ = pr.Close()
		return err
	}), nil
}
