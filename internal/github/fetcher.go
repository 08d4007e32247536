// Package github downloads documents from GitHub repositories for ingestion.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// ErrInvalidSource means a source reference is not "owner/repo/path[@ref]".
var ErrInvalidSource = errors.New("invalid github source, want owner/repo/path[@ref]")

// Source points at a single file in a repository.
type Source struct {
	Owner string
	Repo  string
	Path  string
	Ref   string // branch, tag or commit; empty means the default branch
}

// ParseSource parses "owner/repo/path/to/file.pdf" with an optional "@ref" suffix.
func ParseSource(s string) (Source, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "https://github.com/"))

	var src Source
	if at := strings.LastIndex(s, "@"); at >= 0 {
		src.Ref = s[at+1:]
		s = s[:at]
		if src.Ref == "" {
			return Source{}, fmt.Errorf("%w: empty ref", ErrInvalidSource)
		}
	}

	parts := strings.SplitN(strings.Trim(s, "/"), "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Source{}, fmt.Errorf("%w: %q", ErrInvalidSource, s)
	}
	src.Owner, src.Repo, src.Path = parts[0], parts[1], parts[2]
	return src, nil
}

// String formats the source the way ParseSource accepts it.
func (s Source) String() string {
	out := fmt.Sprintf("%s/%s/%s", s.Owner, s.Repo, s.Path)
	if s.Ref != "" {
		out += "@" + s.Ref
	}
	return out
}

// FetchedFile is a downloaded repository file.
type FetchedFile struct {
	Source    Source
	Name      string // base name, used for format detection
	Content   []byte
	SHA       string // blob SHA
	CommitSHA string // commit the file was read at
	URL       string // raw URL
}

// Fetcher downloads single files from GitHub.
type Fetcher struct {
	client *Client
}

// NewFetcher creates a new document fetcher
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads src. Without a ref the file is read at the latest commit
// touching it, so the recorded commit and the content always agree.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (*FetchedFile, error) {
	commitSHA := src.Ref
	if commitSHA == "" {
		sha, err := f.LatestCommitSHA(ctx, src)
		if err != nil {
			return nil, err
		}
		commitSHA = sha
	}

	body, meta, _, err := f.client.Repositories.DownloadContentsWithMeta(
		ctx,
		src.Owner,
		src.Repo,
		src.Path,
		&github.RepositoryContentGetOptions{Ref: commitSHA},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", src, err)
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src, err)
	}

	return &FetchedFile{
		Source:    src,
		Name:      path.Base(src.Path),
		Content:   content,
		SHA:       meta.GetSHA(),
		CommitSHA: commitSHA,
		URL: fmt.Sprintf(
			"https://raw.githubusercontent.com/%s/%s/%s/%s",
			src.Owner,
			src.Repo,
			commitSHA,
			src.Path,
		),
	}, nil
}

// LatestCommitSHA retrieves the SHA of the most recent commit affecting src.Path.
func (f *Fetcher) LatestCommitSHA(ctx context.Context, src Source) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		src.Owner,
		src.Repo,
		&github.CommitsListOptions{
			Path: src.Path,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", src.Path)
	}

	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}

	return *commits[0].SHA, nil
}
