package feature

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perr "fshfinder/internal/platform/errors"
)

type stubForge struct {
	paths   map[string]bool
	queries []string
	total   int
	open    bool
	err     error
}

func (s *stubForge) PathExists(_ context.Context, owner, name, ref, path string) (bool, error) {
	return s.paths[owner+"/"+name+"@"+ref+":"+path], s.err
}

func (s *stubForge) SearchCode(_ context.Context, q string) (int, bool, error) {
	s.queries = append(s.queries, q)
	return s.total, s.open, s.err
}

type stubSubject struct{ current bool }

func (stubSubject) Owner() string                                  { return "HL7" }
func (stubSubject) Name() string                                   { return "ig" }
func (s stubSubject) UsesNewLineage(context.Context) (bool, error) { return s.current, nil }

func TestRegistry(t *testing.T) {
	names := map[string]bool{}
	all := append(Baseline(), Constructs()...)
	for _, f := range all {
		assert.False(t, names[f.Name()], "duplicate %s", f.Name())
		names[f.Name()] = true
		assert.NotEmpty(t, f.Title())
		assert.True(t, f.CachePolicy().Cacheable())
	}
	for _, f := range all {
		got, ok := ByName(f.Name())
		assert.True(t, ok, f.Name())
		assert.Equal(t, f, got)
	}
	for _, f := range Constructs() {
		assert.Equal(t, DefaultBranchOnly, f.Scope(), f.Name())
	}
	assert.Equal(t, AllBranches, UsesOldLineage.Scope())
	assert.Equal(t, AllBranches, UsesNewLineage.Scope())
	assert.Equal(t, DefaultBranchOnly, HasSushiConfig.Scope())
}

func TestByNames(t *testing.T) {
	fs, err := ByNames([]string{"fsh_profile", "uses_fsh_old", "fsh_profile"})
	require.NoError(t, err)
	require.Len(t, fs, 2)
	assert.Equal(t, "fsh_profile", fs[0].Name())

	_, err = ByNames([]string{"fsh_profile", "fsh_logical"})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))
}

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, `repo:HL7/ig path:input/fsh extension:fsh "Profile: "`,
		SearchQuery("HL7", "ig", "input/fsh", "fsh", "Profile: "))
	assert.Equal(t, `repo:HL7/ig extension:fsh "ValueSet: "`,
		SearchQuery("HL7", "ig", "", "fsh", "ValueSet: "))
}

func TestCachePolicy(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	p := TTL(24 * time.Hour)
	assert.True(t, p.Fresh(now.Add(-time.Hour), now))
	assert.False(t, p.Fresh(now.Add(-25*time.Hour), now))
	assert.False(t, p.Fresh(time.Time{}, now))
	assert.False(t, NotCacheable.Fresh(now, now))
	assert.False(t, TTL(-time.Second).Cacheable())
}

func TestPathFeature(t *testing.T) {
	f := &stubForge{paths: map[string]bool{"HL7/ig@dev:fsh": true}}
	ok, err := UsesOldLineage.Assess(context.Background(), f, stubSubject{}, "dev")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = UsesNewLineage.Assess(context.Background(), f, stubSubject{}, "dev")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchFeature(t *testing.T) {
	f := &stubForge{total: 2, open: true}
	ok, err := Instance.Assess(context.Background(), f, stubSubject{current: true}, "main")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `repo:HL7/ig extension:fsh "Instance: "`, f.queries[0], "searches cover the whole repo by default")

	ok, err = LineageScoped(Instance).Assess(context.Background(), f, stubSubject{current: true}, "main")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `repo:HL7/ig path:input/fsh extension:fsh "Instance: "`, f.queries[1])

	ok, err = LineageScoped(SearchParameter).Assess(context.Background(), f, stubSubject{}, "main")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `repo:HL7/ig path:fsh extension:fsh "InstanceOf: SearchParameter"`, f.queries[2])

	scoped := LineageScoped(Instance)
	assert.Equal(t, Instance.Name(), scoped.Name())
	assert.Equal(t, UsesOldLineage, LineageScoped(UsesOldLineage), "path features are left alone")

	f = &stubForge{total: 5, open: false}
	ok, err = Profile.Assess(context.Background(), f, stubSubject{}, "main")
	require.NoError(t, err)
	assert.False(t, ok, "inaccessible search is a negative")

	f = &stubForge{err: perr.Unavailablef("down")}
	_, err = Profile.Assess(context.Background(), f, stubSubject{}, "main")
	assert.Error(t, err, "remote failures are never a silent false")
}
