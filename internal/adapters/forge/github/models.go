package github

import "time"

// Repo is a partial GitHub repository document with fields we use
type Repo struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Private       bool      `json:"private"`
	Owner         User      `json:"owner"`
	DefaultBranch string    `json:"default_branch"`
	Fork          bool      `json:"fork"`
	PushedAt      time.Time `json:"pushed_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	HTMLURL       string    `json:"html_url"`
}

// User is a partial GitHub user or org document
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Type  string `json:"type"`
}

// Branch is a partial branch listing entry
type Branch struct {
	Name string `json:"name"`
}

// SearchResult is the code search envelope, items are not needed
type SearchResult struct {
	TotalCount        int  `json:"total_count"`
	IncompleteResults bool `json:"incomplete_results"`
}
