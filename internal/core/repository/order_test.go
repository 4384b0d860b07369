package repository

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repoUpdated(t *testing.T, name string, at time.Time, paths ...string) *Repository {
	t.Helper()
	f := newFakeForge()
	f.meta = Metadata{Owner: "o", Name: name, DefaultBranch: "main", UpdatedAt: at}
	f.paths["main"] = paths
	r := New(testEnv(f, nil, now), "o", name)
	require.NoError(t, r.EnsureBaseline(context.Background()))
	_, err := r.AnyFsh(context.Background())
	require.NoError(t, err)
	return r
}

func names(rs []*Repository) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name()
	}
	return out
}

func TestByRecency_StrictlyDescending(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	rs := []*Repository{
		repoUpdated(t, "b", base.Add(2*time.Hour)),
		repoUpdated(t, "a", base),
		repoUpdated(t, "c", base.Add(5*time.Hour)),
	}
	slices.SortFunc(rs, ByRecency)
	assert.Equal(t, []string{"c", "b", "a"}, names(rs))
}

func TestByFeaturesThenRecency(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	rs := []*Repository{
		repoUpdated(t, "none", base.Add(9*time.Hour)),
		repoUpdated(t, "old", base.Add(8*time.Hour), "fsh"),
		repoUpdated(t, "new", base, "input/fsh"),
		repoUpdated(t, "newer", base.Add(time.Hour), "input/fsh"),
	}
	slices.SortFunc(rs, ByFeaturesThenRecency)
	assert.Equal(t, []string{"newer", "new", "old", "none"}, names(rs))
}

func TestComparatorFor(t *testing.T) {
	for _, o := range []string{"", OrderRecency, OrderFeatures} {
		c, err := ComparatorFor(o)
		require.NoError(t, err)
		assert.NotNil(t, c)
	}
	_, err := ComparatorFor("stars")
	assert.Error(t, err)
}
