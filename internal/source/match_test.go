package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterCompile(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		input   string
		want    bool
		wantErr bool
	}{
		{name: "empty matches all", filter: Filter{}, input: "api-1", want: true},
		{name: "substring", filter: Filter{Pattern: "api"}, input: "web-api-7d9", want: true},
		{name: "no match", filter: Filter{Pattern: "^db"}, input: "api-1", want: false},
		{name: "inverse excludes match", filter: Filter{Pattern: "api", Inverse: true}, input: "api-1", want: false},
		{name: "inverse keeps others", filter: Filter{Pattern: "api", Inverse: true}, input: "db-0", want: true},
		{name: "inverse of empty matches nothing", filter: Filter{Inverse: true}, input: "db-0", want: false},
		{name: "invalid regex", filter: Filter{Pattern: "api("}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.filter.Compile()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, m.Match(tt.input))
		})
	}
}

func TestSelect_SortsAndBuildsSources(t *testing.T) {
	candidates := []Candidate{
		{Name: "web-2", Namespace: "prod"},
		{Name: "db-0", Namespace: "prod"},
		{Name: "web-1", Namespace: "prod", Meta: map[string]string{"phase": "Running"}},
	}

	got, err := Select(KindKubectl, candidates, Filter{Pattern: "web"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "web-1", got[0].ID)
	require.Equal(t, "web-2", got[1].ID)
	require.Equal(t, KindKubectl, got[0].Kind)
	require.Equal(t, "prod", got[0].Namespace)
	require.Equal(t, "Running", got[0].Meta["phase"])
}

func TestSelect_QualifiesIDsAcrossNamespaces(t *testing.T) {
	candidates := []Candidate{
		{Name: "api-0", Namespace: "staging"},
		{Name: "api-0", Namespace: "prod"},
	}

	got, err := Select(KindKubectl, candidates, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "prod/api-0", got[0].ID)
	require.Equal(t, "staging/api-0", got[1].ID)
	require.Equal(t, "api-0", got[0].Name)
}

func TestSelect_NotFound(t *testing.T) {
	_, err := Select(KindDocker, []Candidate{{Name: "redis"}}, Filter{Pattern: "nginx", Namespaces: []string{"web"}})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
	require.Contains(t, err.Error(), `"nginx"`)
	require.Contains(t, err.Error(), "web")

	_, err = Select(KindDocker, nil, Filter{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListNamespaces_FansOutAndKeepsOrder(t *testing.T) {
	var calls atomic.Int32
	got, err := ListNamespaces(context.Background(), []string{"b,a", " ", "b"}, func(ctx context.Context, ns string) ([]Candidate, error) {
		calls.Add(1)
		return []Candidate{{Name: "pod-" + ns, Namespace: ns}}, nil
	})
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, []Candidate{
		{Name: "pod-b", Namespace: "b"},
		{Name: "pod-a", Namespace: "a"},
	}, got)
}

func TestListNamespaces_DefaultNamespace(t *testing.T) {
	got, err := ListNamespaces(context.Background(), nil, func(ctx context.Context, ns string) ([]Candidate, error) {
		require.Equal(t, "", ns)
		return []Candidate{{Name: "only"}}, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestListNamespaces_PropagatesError(t *testing.T) {
	boom := errors.New("forbidden")
	_, err := ListNamespaces(context.Background(), []string{"a", "b"}, func(ctx context.Context, ns string) ([]Candidate, error) {
		if ns == "b" {
			return nil, boom
		}
		return nil, nil
	})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "list b")
}
