package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	perr "fshfinder/internal/platform/errors"
	"fshfinder/internal/platform/logger"
)

const pageSize = 100

// RepoExists HEADs the repository page, private and missing repos report false
func (c *Client) RepoExists(ctx context.Context, owner, name string) (bool, error) {
	return c.Head(ctx, joinURL(c.opts.WebURL, owner, name))
}

// PathExists HEADs the tree view of path at ref
func (c *Client) PathExists(ctx context.Context, owner, name, ref, path string) (bool, error) {
	return c.Head(ctx, joinURL(c.opts.WebURL, owner, name, "tree", ref, path))
}

// RepoByFullName fetches GET /repos/{owner}/{repo}
func (c *Client) RepoByFullName(ctx context.Context, owner, name string) (Repo, error) {
	resp, err := c.GetAuthed(ctx, joinURL(c.opts.APIURL, "repos", owner, name), nil)
	if err != nil {
		return Repo{}, err
	}
	var out Repo
	if err := decode(resp, &out); err != nil {
		return Repo{}, err
	}
	return out, nil
}

// Branches lists every branch name of a repo, following pages
func (c *Client) Branches(ctx context.Context, owner, name string) ([]string, error) {
	u := joinURL(c.opts.APIURL, "repos", owner, name, "branches")
	var names []string
	for page := 1; ; page++ {
		resp, err := c.GetAuthed(ctx, u, pageQuery(page))
		if err != nil {
			return nil, err
		}
		var batch []Branch
		if err := decode(resp, &batch); err != nil {
			return nil, err
		}
		for _, b := range batch {
			names = append(names, b.Name)
		}
		if len(batch) < pageSize {
			return names, nil
		}
	}
}

// RawContent returns the file body at ref, ok is false when the file does not exist
func (c *Client) RawContent(ctx context.Context, owner, name, ref, path string) (string, bool, error) {
	resp, err := c.GetAuthed(ctx, joinURL(c.opts.RawURL, owner, name, ref, path), nil)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if resp.Status != http.StatusOK {
		return "", false, nil
	}
	return string(resp.Body), true, nil
}

// SearchCode runs a code search query and returns the total hit count
// accessible is false when the forge answered 422 (private or unknown repo)
func (c *Client) SearchCode(ctx context.Context, query string) (total int, accessible bool, err error) {
	resp, err := c.GetAuthed(ctx, joinURL(c.opts.APIURL, "search", "code"), url.Values{"q": {query}})
	if err != nil {
		return 0, false, err
	}
	if resp.Status == http.StatusUnprocessableEntity {
		return 0, false, nil
	}
	var out SearchResult
	if err := decode(resp, &out); err != nil {
		return 0, false, err
	}
	return out.TotalCount, true, nil
}

// ReposForUser lists the repository names of a user or organisation until an empty page
func (c *Client) ReposForUser(ctx context.Context, user string) ([]string, error) {
	u := joinURL(c.opts.APIURL, "users", user, "repos")
	var names []string
	for page := 1; ; page++ {
		resp, err := c.GetAuthed(ctx, u, pageQuery(page))
		if err != nil {
			return nil, err
		}
		var batch []Repo
		if err := decode(resp, &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return names, nil
		}
		for _, r := range batch {
			names = append(names, r.Name)
		}
	}
}

// Fetch GETs a feed outside the forge API without credentials and returns the body
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, perr.Newf(perr.CodeForHTTPStatus(resp.Status), "fetch %s: status %d", rawURL, resp.Status)
	}
	return resp.Body, nil
}

// CheckAuth calls GET /user so bad credentials fail before any real work
func (c *Client) CheckAuth(ctx context.Context) error {
	if c.opts.Token == "" {
		logger.From(ctx, c.log).Warn().Msg("github token not configured, running with anonymous quota")
		return nil
	}
	_, err := c.GetAuthed(ctx, joinURL(c.opts.APIURL, "user"), nil)
	return err
}

func pageQuery(page int) url.Values {
	return url.Values{
		"per_page": {strconv.Itoa(pageSize)},
		"page":     {strconv.Itoa(page)},
	}
}

func decode(resp *Response, v any) error {
	if resp.Status != http.StatusOK {
		return perr.Newf(perr.CodeForHTTPStatus(resp.Status), "github unexpected status %d", resp.Status)
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "github decode %T failed", v)
	}
	return nil
}
