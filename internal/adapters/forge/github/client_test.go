package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perr "fshfinder/internal/platform/errors"
	"fshfinder/internal/platform/logger"
)

const testDelay = 30 * time.Second

// sleeps records requested retry delays instead of waiting
type sleeps struct {
	mu  sync.Mutex
	got []time.Duration
}

func (s *sleeps) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.got = append(s.got, d)
	s.mu.Unlock()
	return nil
}

func (s *sleeps) all() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.got...)
}

func newTestClient(base string, o Options) (*Client, *sleeps) {
	o.APIURL = base + "/api"
	o.WebURL = base + "/web"
	o.RawURL = base + "/raw"
	o.RetryDelay = testDelay
	c := NewClient(o).WithLogger(logger.Nop())
	s := &sleeps{}
	c.sleep = s.sleep
	return c, s
}

// statusServer answers every request with the next status in seq, repeating the last
func statusServer(t *testing.T, seq ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1)) - 1
		if n >= len(seq) {
			n = len(seq) - 1
		}
		w.WriteHeader(seq[n])
		if r.Method != http.MethodHead {
			_, _ = io.WriteString(w, `{"total_count":0}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestHead_NotFoundIsFalseWithoutRetry(t *testing.T) {
	srv, hits := statusServer(t, http.StatusNotFound)
	c, s := newTestClient(srv.URL, Options{})

	ok, err := c.RepoExists(context.Background(), "HL7", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 1, hits.Load())
	assert.Empty(t, s.all())
}

func TestGet_NotFoundIsDistinguishable(t *testing.T) {
	srv, hits := statusServer(t, http.StatusNotFound)
	c, s := newTestClient(srv.URL, Options{})

	_, err := c.GetAuthed(context.Background(), srv.URL+"/api/repos/HL7/missing", nil)
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
	assert.EqualValues(t, 1, hits.Load())
	assert.Empty(t, s.all())
}

func TestUnauthorized_AbortsImmediately(t *testing.T) {
	srv, hits := statusServer(t, http.StatusUnauthorized)
	c, s := newTestClient(srv.URL, Options{Token: "bad"})

	_, err := c.RepoByFullName(context.Background(), "HL7", "fhir")
	require.Error(t, err)
	assert.True(t, perr.IsFatal(err))
	assert.EqualValues(t, 1, hits.Load())
	assert.Empty(t, s.all())

	_, err = c.RepoExists(context.Background(), "HL7", "fhir")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeUnauthorized), "head surfaces 401 too")
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// flakyTransport times out n times then answers 200 with body
type flakyTransport struct {
	fails int32
	calls atomic.Int32
	body  string
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if f.calls.Add(1) <= f.fails {
		return nil, timeoutErr{}
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Request:    r,
	}, nil
}

func TestTimeouts_RetriedWithFixedDelay(t *testing.T) {
	tr := &flakyTransport{fails: 2, body: `{"full_name":"HL7/fhir-us-core","default_branch":"master"}`}
	c, s := newTestClient("http://forge.invalid", Options{Transport: tr})

	repo, err := c.RepoByFullName(context.Background(), "HL7", "fhir-us-core")
	require.NoError(t, err)
	assert.Equal(t, "master", repo.DefaultBranch)
	assert.EqualValues(t, 3, tr.calls.Load())
	assert.Equal(t, []time.Duration{testDelay, testDelay}, s.all())
}

func TestServerErrors_RetriedUntilOK(t *testing.T) {
	srv, hits := statusServer(t, http.StatusBadGateway, http.StatusInternalServerError, http.StatusOK)
	c, s := newTestClient(srv.URL, Options{})

	total, accessible, err := c.SearchCode(context.Background(), "repo:a/b extension:fsh")
	require.NoError(t, err)
	assert.True(t, accessible)
	assert.Zero(t, total)
	assert.EqualValues(t, 3, hits.Load())
	assert.Len(t, s.all(), 2)
}

func TestRetryAfter_ExtendsDelay(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "90")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	c, s := newTestClient(srv.URL, Options{})

	ok, err := c.Head(context.Background(), srv.URL+"/web/a/b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []time.Duration{90 * time.Second}, s.all())
}

func TestSearchCode_UnprocessableIsInaccessible(t *testing.T) {
	srv, hits := statusServer(t, http.StatusUnprocessableEntity)
	c, s := newTestClient(srv.URL, Options{})

	total, accessible, err := c.SearchCode(context.Background(), "repo:private/thing")
	require.NoError(t, err)
	assert.False(t, accessible)
	assert.Zero(t, total)
	assert.EqualValues(t, 1, hits.Load())
	assert.Empty(t, s.all())
}

func TestDo_CancelledContextStopsLoop(t *testing.T) {
	srv, _ := statusServer(t, http.StatusServiceUnavailable)
	c, _ := newTestClient(srv.URL, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(context.Context, time.Duration) error { cancel(); return nil }

	_, err := c.Get(ctx, srv.URL+"/feed", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_CancelInterruptsRateLimitWait(t *testing.T) {
	reset := strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", reset)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c, _ := newTestClient(srv.URL, Options{})
	c.sleep = sleepCtx
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Get(ctx, srv.URL+"/feed", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDo_OversizedBodyIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, maxBodyBytes+10))
	}))
	t.Cleanup(srv.Close)

	c, s := newTestClient(srv.URL, Options{})
	_, err := c.Get(context.Background(), srv.URL+"/feed", nil)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeUnavailable), "got %v", err)
	assert.Empty(t, s.all())
}

func TestHead_Memoized(t *testing.T) {
	srv, hits := statusServer(t, http.StatusOK)
	c, _ := newTestClient(srv.URL, Options{})

	for range 3 {
		ok, err := c.PathExists(context.Background(), "o", "n", "main", "input/fsh")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.EqualValues(t, 1, hits.Load())
}

func TestAuthorize(t *testing.T) {
	got := make(chan *http.Request, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, Options{Username: "octo", Token: "tok"})
	_, err := c.GetAuthed(context.Background(), srv.URL+"/api/user", nil)
	require.NoError(t, err)
	r := <-got
	u, p, ok := r.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "octo", u)
	assert.Equal(t, "tok", p)
	assert.Equal(t, "fshfinder", r.Header.Get("User-Agent"))

	c, _ = newTestClient(srv.URL, Options{Token: "tok"})
	_, err = c.GetAuthed(context.Background(), srv.URL+"/api/user", nil)
	require.NoError(t, err)
	assert.Equal(t, "token tok", (<-got).Header.Get("Authorization"))

	_, err = c.Get(context.Background(), srv.URL+"/feed", nil)
	require.NoError(t, err)
	assert.Empty(t, (<-got).Header.Get("Authorization"), "plain get is anonymous")
}

// fakeGitHub routes the endpoints the census reads
func fakeGitHub(t *testing.T, branches int) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Head("/web/{owner}/{name}/tree/*", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "*") == "main/input/fsh" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/api/repos/{owner}/{name}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"name":           "fhir-us-core",
			"full_name":      "HL7/fhir-us-core",
			"owner":          map[string]any{"login": "HL7"},
			"default_branch": "main",
			"updated_at":     "2024-03-04T05:06:07Z",
		})
	})
	r.Get("/api/repos/{owner}/{name}/branches", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		per, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		var out []map[string]string
		for i := (page - 1) * per; i < min(page*per, branches); i++ {
			out = append(out, map[string]string{"name": fmt.Sprintf("b%d", i)})
		}
		writeJSON(w, out)
	})
	r.Get("/api/users/{user}/repos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			writeJSON(w, []any{})
			return
		}
		writeJSON(w, []map[string]string{{"name": "one"}, {"name": "two"}})
	})
	r.Get("/raw/{owner}/{name}/{ref}/*", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "*") != "sushi-config.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "\ntitle: US Core\n")
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestForge_Metadata(t *testing.T) {
	srv := fakeGitHub(t, 1)
	c, _ := newTestClient(srv.URL, Options{})
	f := NewForge(c)

	m, err := f.Metadata(context.Background(), "hl7", "FHIR-US-CORE")
	require.NoError(t, err)
	assert.Equal(t, "HL7", m.Owner)
	assert.Equal(t, "fhir-us-core", m.Name)
	assert.Equal(t, "main", m.DefaultBranch)
	assert.Equal(t, time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC), m.UpdatedAt.UTC())
}

func TestForge_BranchesPaginated(t *testing.T) {
	srv := fakeGitHub(t, 203)
	c, _ := newTestClient(srv.URL, Options{})

	got, err := NewForge(c).Branches(context.Background(), "HL7", "fhir-us-core")
	require.NoError(t, err)
	assert.Len(t, got, 203)
	assert.Equal(t, "b202", got[202])
}

func TestForge_PathAndRaw(t *testing.T) {
	srv := fakeGitHub(t, 1)
	c, _ := newTestClient(srv.URL, Options{})
	f := NewForge(c)
	ctx := context.Background()

	ok, err := f.PathExists(ctx, "HL7", "fhir-us-core", "main", "input/fsh")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.PathExists(ctx, "HL7", "fhir-us-core", "main", "fsh")
	require.NoError(t, err)
	assert.False(t, ok)

	body, ok, err := f.RawContent(ctx, "HL7", "fhir-us-core", "main", "sushi-config.yaml")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "\ntitle: US Core\n", body)

	_, ok, err = f.RawContent(ctx, "HL7", "fhir-us-core", "main", "fsh/config.yaml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReposForUser_StopsOnEmptyPage(t *testing.T) {
	srv := fakeGitHub(t, 1)
	c, _ := newTestClient(srv.URL, Options{})

	got, err := c.ReposForUser(context.Background(), "HL7")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestCheckAuth_SkippedWithoutToken(t *testing.T) {
	srv, hits := statusServer(t, http.StatusUnauthorized)
	c, _ := newTestClient(srv.URL, Options{})
	require.NoError(t, c.CheckAuth(context.Background()))
	assert.Zero(t, hits.Load())

	c, _ = newTestClient(srv.URL, Options{Token: "bad"})
	assert.True(t, perr.IsFatal(c.CheckAuth(context.Background())))
}
