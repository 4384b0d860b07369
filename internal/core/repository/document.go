package repository

import (
	"context"

	pstrings "fshfinder/internal/platform/strings"
)

// UpdatedAtLayout is the report timestamp layout
const UpdatedAtLayout = "2006-01-02T15:04:05 -0700"

// Document is the report projection of a repository
type Document struct {
	Identifier         string                `json:"identifier"`
	CIBuildURL         *string               `json:"ciBuildUrl"`
	FeatureAssessments map[string]Assessment `json:"featureAssessments"`
	IGTitle            string                `json:"igTitle"`
	RepoHost           string                `json:"repoHost"`
	RepoName           string                `json:"repoName"`
	RepoOwner          string                `json:"repoOwner"`
	UpdatedAt          string                `json:"updatedAt"`
}

// Document projects the repository for the report
// It may reach the forge for metadata or the title when not yet memoized
func (r *Repository) Document(ctx context.Context) (Document, error) {
	meta, err := r.Metadata(ctx)
	if err != nil {
		return Document{}, err
	}
	title, err := r.IGTitle(ctx)
	if err != nil {
		return Document{}, err
	}

	owner, name := r.owner, r.name
	if meta.Owner != "" && meta.Name != "" {
		owner, name = meta.Owner, meta.Name
	}
	doc := Document{
		Identifier:         r.id.String(),
		FeatureAssessments: r.Assessments(),
		IGTitle:            title,
		RepoHost:           r.id.Host(),
		RepoName:           name,
		RepoOwner:          owner,
		CIBuildURL:         pstrings.Ptr(r.ciBuildURL),
	}
	if !meta.UpdatedAt.IsZero() {
		doc.UpdatedAt = meta.UpdatedAt.Format(UpdatedAtLayout)
	}
	return doc, nil
}
