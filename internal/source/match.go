package source

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Candidate is a source reported by a backend before filtering.
type Candidate struct {
	Name      string
	Namespace string
	Meta      map[string]string
}

// Matcher applies a compiled Filter to source names.
type Matcher struct {
	re      *regexp.Regexp
	inverse bool
}

// Compile validates the filter pattern.
func (f Filter) Compile() (*Matcher, error) {
	m := &Matcher{inverse: f.Inverse}
	pattern := strings.TrimSpace(f.Pattern)
	if pattern == "" {
		return m, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", f.Pattern, err)
	}
	m.re = re
	return m, nil
}

// Match reports whether name is selected.
func (m *Matcher) Match(name string) bool {
	matched := m.re == nil || m.re.MatchString(name)
	if m.inverse {
		return !matched
	}
	return matched
}

// Select filters candidates and turns them into sources of the given kind.
// IDs are qualified as namespace/name when the matches span more than one
// namespace. It returns ErrNotFound when nothing matches.
func Select(kind Kind, candidates []Candidate, filter Filter) ([]Source, error) {
	matcher, err := filter.Compile()
	if err != nil {
		return nil, err
	}

	matched := make([]Candidate, 0, len(candidates))
	namespaces := make(map[string]struct{})
	for _, c := range candidates {
		if strings.TrimSpace(c.Name) == "" || !matcher.Match(c.Name) {
			continue
		}
		matched = append(matched, c)
		namespaces[c.Namespace] = struct{}{}
	}
	if len(matched) == 0 {
		return nil, notFound(filter)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Namespace != matched[j].Namespace {
			return matched[i].Namespace < matched[j].Namespace
		}
		return matched[i].Name < matched[j].Name
	})

	qualify := len(namespaces) > 1
	seen := make(map[string]struct{}, len(matched))
	sources := make([]Source, 0, len(matched))
	for _, c := range matched {
		id := c.Name
		if qualify && c.Namespace != "" {
			id = c.Namespace + "/" + c.Name
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sources = append(sources, Source{
			ID:        id,
			Name:      c.Name,
			Namespace: c.Namespace,
			Kind:      kind,
			Meta:      c.Meta,
		})
	}
	return sources, nil
}

func notFound(filter Filter) error {
	desc := strings.TrimSpace(filter.Pattern)
	switch {
	case desc == "":
		desc = "any name"
	case filter.Inverse:
		desc = fmt.Sprintf("names not matching %q", desc)
	default:
		desc = fmt.Sprintf("%q", desc)
	}
	if ns := strings.Join(filter.Namespaces, ","); ns != "" {
		return fmt.Errorf("%w matching %s in %s", ErrNotFound, desc, ns)
	}
	return fmt.Errorf("%w matching %s", ErrNotFound, desc)
}

// ListNamespaces calls list once per namespace concurrently and concatenates
// the results in namespace order. An empty namespace list means a single call
// with the backend's default namespace.
func ListNamespaces(ctx context.Context, namespaces []string, list func(ctx context.Context, namespace string) ([]Candidate, error)) ([]Candidate, error) {
	namespaces = normalizeNamespaces(namespaces)
	if len(namespaces) == 0 {
		return list(ctx, "")
	}

	results := make([][]Candidate, len(namespaces))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, ns := range namespaces {
		i, ns := i, ns
		eg.Go(func() error {
			found, err := list(egCtx, ns)
			if err != nil {
				return fmt.Errorf("list %s: %w", ns, err)
			}
			results[i] = found
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []Candidate
	for _, found := range results {
		all = append(all, found...)
	}
	return all, nil
}

func normalizeNamespaces(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if _, ok := seen[trimmed]; ok {
				continue
			}
			seen[trimmed] = struct{}{}
			out = append(out, trimmed)
		}
	}
	return out
}
