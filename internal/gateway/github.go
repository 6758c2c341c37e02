// Package gateway provides gateways to the Code::Stats and GitHub APIs,
// abstracting away the underlying HTTP, REST and GraphQL clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/codestats-box/internal/domain"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// GistFileLimit is the number of files FetchGist reads from a gist.
const GistFileLimit = 100

// DefaultSingleSleepLimit caps how long one call may wait out a secondary rate limit.
const DefaultSingleSleepLimit = time.Minute

// GistSink defines the behavior of a gateway for reading and replacing gist files.
type GistSink interface {
	FetchGist(ctx context.Context, gistID string) (*domain.Gist, error)
	UpdateGist(ctx context.Context, update domain.GistUpdate) error
}

// GitHubGateway is the concrete implementation of the GistSink interface.
// Reads go through GraphQL, writes through REST.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

// gistQuery reads the viewer's gist by its id (the gist "name" in GraphQL).
// The files limit must match GistFileLimit.
type gistQuery struct {
	Viewer struct {
		Gist *struct {
			Description string
			Files       []struct {
				Name string
				Text string
			} `graphql:"files(limit: 100)"`
		} `graphql:"gist(name: $name)"`
	}
}

type gatewayOptions struct {
	singleSleepLimit time.Duration
}

// Option configures NewGitHubGateway.
type Option func(*gatewayOptions)

// WithSingleSleepLimit sets the longest secondary rate limit sleep a call accepts.
// Longer limits fail the call instead of waiting.
func WithSingleSleepLimit(d time.Duration) Option {
	return func(o *gatewayOptions) {
		if d > 0 {
			o.singleSleepLimit = d
		}
	}
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *log.Logger, opts ...Option) (GistSink, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty GitHub token", domain.ErrSinkUnauthorized)
	}
	o := gatewayOptions{singleSleepLimit: DefaultSingleSleepLimit}
	for _, opt := range opts {
		opt(&o)
	}

	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(o.singleSleepLimit, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// FetchGist reads the description and files of one of the viewer's gists.
// Only the first GistFileLimit files are returned; a file past that limit
// looks absent to callers, so it is always rewritten.
func (g *GitHubGateway) FetchGist(ctx context.Context, gistID string) (*domain.Gist, error) {
	if gistID == "" {
		return nil, fmt.Errorf("%w: empty gist id", domain.ErrSinkNotFound)
	}
	g.logger.Printf("Reading gist %s using GraphQL API...", gistID)

	var q gistQuery
	variables := map[string]interface{}{"name": githubv4.String(gistID)}
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to read gist %s: %w", gistID, classifyGraphQLError(err))
	}
	if q.Viewer.Gist == nil {
		return nil, fmt.Errorf("%w: %s is not a gist of the token owner", domain.ErrSinkNotFound, gistID)
	}

	gist := &domain.Gist{
		ID:          gistID,
		Description: q.Viewer.Gist.Description,
		Files:       make([]domain.GistFile, 0, len(q.Viewer.Gist.Files)),
	}
	for _, f := range q.Viewer.Gist.Files {
		gist.Files = append(gist.Files, domain.GistFile{Name: f.Name, Content: f.Text})
	}
	g.logger.Printf("Completed reading gist %s: %d files.", gistID, len(gist.Files))
	return gist, nil
}

// UpdateGist replaces the description and one file of a gist in a single PATCH.
func (g *GitHubGateway) UpdateGist(ctx context.Context, update domain.GistUpdate) error {
	if update.GistID == "" {
		return fmt.Errorf("%w: empty gist id", domain.ErrSinkNotFound)
	}
	if update.Filename == "" {
		return errors.New("gist file name must not be empty")
	}
	g.logger.Printf("Updating gist %s file %q using REST API...", update.GistID, update.Filename)

	file := github.GistFile{Content: github.String(update.Content)}
	if update.NewFilename != "" && update.NewFilename != update.Filename {
		file.Filename = github.String(update.NewFilename)
	}
	gist := &github.Gist{
		Description: github.String(update.Description),
		Files:       map[github.GistFilename]github.GistFile{github.GistFilename(update.Filename): file},
	}
	if _, _, err := g.restClient.Gists.Edit(ctx, update.GistID, gist); err != nil {
		return fmt.Errorf("failed to update gist %s: %w", update.GistID, classifyRESTError(err))
	}
	g.logger.Println("Completed updating gist.")
	return nil
}

// classifyRESTError maps go-github errors onto the sink error kinds.
func classifyRESTError(err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	var respErr *github.ErrorResponse
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return fmt.Errorf("%w: rate limited: %v", domain.ErrSinkUnavailable, err)
	case errors.As(err, &respErr) && respErr.Response != nil:
		return statusError(respErr.Response.StatusCode, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}
}

// classifyGraphQLError maps GraphQL client errors onto the sink error kinds.
// The client only reports non-200 statuses in the error text.
func classifyGraphQLError(err error) error {
	msg := err.Error()
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		if strings.Contains(msg, fmt.Sprintf("status code: %d ", code)) {
			return statusError(code, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
}

func statusError(code int, err error) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", domain.ErrSinkUnauthorized, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", domain.ErrSinkNotFound, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}
}
