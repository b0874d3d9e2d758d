// Package source defines the model shared by every log backend: sources,
// lines, discovery filters, and the Reader/Stream contract that workers drive.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
)

// Kind identifies which backend produces a source's logs.
type Kind string

const (
	KindKubectl Kind = "kubectl"
	KindDocker  Kind = "docker"
	KindFile    Kind = "file"
)

// Kinds lists every supported source kind.
func Kinds() []Kind {
	return []Kind{KindKubectl, KindDocker, KindFile}
}

// ErrNotFound is returned by discovery when no source matches the filter.
var ErrNotFound = errors.New("no sources found")

// Source is one log-emitting unit being tailed.
type Source struct {
	ID        string // unique within a run
	Name      string
	Namespace string
	Kind      Kind
	Color     *color.Color
	Meta      map[string]string
}

// Tag renders the source identifier in the source's color.
func (s Source) Tag() string {
	if s.Color == nil {
		return s.ID
	}
	return s.Color.Sprint(s.ID)
}

// LogLine is one line of output from a source, without its trailing newline.
type LogLine struct {
	Source Source
	Text   string
}

// ReadOptions configure how much of a source's log is read.
type ReadOptions struct {
	Tail          int // lines of backlog; negative reads everything
	Follow        bool
	AllContainers bool
}

// Filter selects sources by name.
type Filter struct {
	Pattern    string // regular expression; empty matches every name
	Namespaces []string
	Inverse    bool
}

// Discovery resolves a filter into the set of sources to tail.
type Discovery interface {
	List(ctx context.Context, filter Filter) ([]Source, error)
}

// Reader attaches to a source and streams its output.
type Reader interface {
	Open(ctx context.Context, src Source, opts ReadOptions) (Stream, error)
}

// Stream is a live sequence of lines from one source.
//
// Next blocks until a line is available. It returns io.EOF once the source's
// output has ended normally; any other error means the stream failed.
// Close may be called while Next is blocked and must unblock it.
type Stream interface {
	Next() (string, error)
	Close() error
}

// LaunchError reports that a source's stream could not be started.
type LaunchError struct {
	Source string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Source, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
