// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/github-forker/internal/domain"
	"github.com/naka-gawa/github-forker/internal/retry"
)

// listingCap bounds how many source repositories a single run considers.
const listingCap = 1000

// Forge defines the behavior of a gateway to the remote hosting platform.
type Forge interface {
	// ListByUser returns descriptors for repositories owned by user, in a
	// stable order, up to the listing cap.
	ListByUser(ctx context.Context, user string) ([]domain.Repository, error)
	// Exists reports whether owner/name is visible to the caller.
	Exists(ctx context.Context, owner, name string) bool
	// CreateFork asks the remote to fork owner/name. An empty org forks
	// under the authenticated identity.
	CreateFork(ctx context.Context, owner, name, org string) error
	// Login returns the authenticated identity's login.
	Login(ctx context.Context) (string, error)
}

// GitHubForge is the concrete implementation of the Forge interface.
type GitHubForge struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	policy        retry.Policy
	logger        *log.Logger
}

// listRepositoriesQuery fetches the descriptor projection for repositories
// owned by a login. Ordering by name keeps the listing order stable across
// runs. The login field doubles as an existence check: a null
// repositoryOwner decodes to an empty login.
type listRepositoriesQuery struct {
	RepositoryOwner struct {
		Login        string
		Repositories struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				Name       string
				IsFork     bool
				IsArchived bool
				Owner      struct {
					Login string
				}
			}
		} `graphql:"repositories(first: 100, after: $cursor, ownerAffiliations: OWNER, orderBy: {field: NAME, direction: ASC})"`
	} `graphql:"repositoryOwner(login: $login)"`
}

// NewGitHubForge is a constructor that creates a new instance of GitHubForge.
func NewGitHubForge(token string, policy retry.Policy, logger *log.Logger) (Forge, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
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
	return &GitHubForge{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		policy:        policy,
		logger:        logger,
	}, nil
}

func (g *GitHubForge) ListByUser(ctx context.Context, user string) ([]domain.Repository, error) {
	g.logger.Printf("Fetching repositories owned by %s...", user)
	variables := map[string]interface{}{
		"login":  githubv4.String(user),
		"cursor": (*githubv4.String)(nil),
	}
	var repos []domain.Repository
	for {
		q, err := retry.Do(ctx, g.policy, func() (listRepositoriesQuery, error) {
			var q listRepositoriesQuery
			err := g.graphqlClient.Query(ctx, &q, variables)
			return q, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories for %s: %w", user, err)
		}
		if q.RepositoryOwner.Login == "" {
			return nil, fmt.Errorf("user %s not found", user)
		}
		for _, node := range q.RepositoryOwner.Repositories.Nodes {
			if len(repos) == listingCap {
				g.logger.Printf("Listing cap of %d repositories reached, ignoring the rest.", listingCap)
				return repos, nil
			}
			repos = append(repos, domain.Repository{
				Name:     node.Name,
				Owner:    node.Owner.Login,
				Fork:     node.IsFork,
				Archived: node.IsArchived,
			})
		}
		if !q.RepositoryOwner.Repositories.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.RepositoryOwner.Repositories.PageInfo.EndCursor)
		g.logger.Println("  Fetching next page of repositories...")
	}
	g.logger.Printf("Found %d repositories owned by %s.", len(repos), user)
	return repos, nil
}

// Exists treats not-found and permission-denied as a definitive "absent".
// Any other failure is retried and, once retries are exhausted, also
// reported as absent, so the caller attempts a fork instead of silently
// skipping a repository it merely failed to probe.
func (g *GitHubForge) Exists(ctx context.Context, owner, name string) bool {
	present, err := retry.Do(ctx, g.policy, func() (bool, error) {
		_, _, err := g.restClient.Repositories.Get(ctx, owner, name)
		if err == nil {
			return true, nil
		}
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil {
			switch errResp.Response.StatusCode {
			case http.StatusNotFound, http.StatusForbidden:
				return false, nil
			}
		}
		return false, err
	})
	if err != nil {
		g.logger.Printf("Existence probe for %s/%s kept failing, assuming absent: %v", owner, name, err)
		return false
	}
	return present
}

func (g *GitHubForge) CreateFork(ctx context.Context, owner, name, org string) error {
	opts := &github.RepositoryCreateForkOptions{Organization: org}
	err := retry.DoVoid(ctx, g.policy, func() error {
		_, _, err := g.restClient.Repositories.CreateFork(ctx, owner, name, opts)
		// GitHub forks asynchronously; a 202 means the fork was queued.
		var accepted *github.AcceptedError
		if errors.As(err, &accepted) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to fork %s/%s: %w", owner, name, err)
	}
	return nil
}

func (g *GitHubForge) Login(ctx context.Context) (string, error) {
	user, err := retry.Do(ctx, g.policy, func() (*github.User, error) {
		u, _, err := g.restClient.Users.Get(ctx, "")
		return u, err
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch the authenticated user: %w", err)
	}
	return user.GetLogin(), nil
}
