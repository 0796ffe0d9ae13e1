package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/recommendation"
	"github.com/pratik-mahalle/costpilot/internal/pkg/errors"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
)

// GitHubSink opens a pull request carrying the Terraform change proposal.
// It implements remediation.ProposalSink. The proposal content is written
// to the branch verbatim; no attempt is made to parse or validate the HCL,
// that is the reviewer's job.
type GitHubSink struct {
	client     *github.Client
	owner      string
	repo       string
	baseBranch string
	logger     *logger.Logger
}

// NewGitHubSink creates a proposal sink targeting the configured repository
func NewGitHubSink(cfg config.GitHubConfig, log *logger.Logger) *GitHubSink {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	return &GitHubSink{
		client:     github.NewClient(oauth2.NewClient(context.Background(), ts)),
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		baseBranch: cfg.BaseBranch,
		logger:     log,
	}
}

// Propose creates a branch off the base branch, commits the proposal file and
// opens a pull request. Returns the pull request URL.
func (s *GitHubSink) Propose(ctx context.Context, rec *recommendation.Recommendation) (string, error) {
	a := rec.Anomaly
	now := time.Now().UTC()
	branch := branchName(string(a.IssueType), a.ResourceID, a.Service, now)

	baseRef, _, err := s.client.Git.GetRef(ctx, s.owner, s.repo, "refs/heads/"+s.baseBranch)
	if err != nil {
		return "", errors.ProviderAPIError("github", fmt.Errorf("resolving base branch %s: %w", s.baseBranch, err))
	}

	_, _, err = s.client.Git.CreateRef(ctx, s.owner, s.repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: baseRef.Object,
	})
	if err != nil {
		return "", errors.ProviderAPIError("github", fmt.Errorf("creating branch %s: %w", branch, err))
	}

	path := fmt.Sprintf("proposals/%s-%s.tf", now.Format("20060102-150405"), slug(a.Service))
	commitMsg := fmt.Sprintf("Add cost optimization proposal for %s (%s)", a.Service, a.IssueType)
	_, _, err = s.client.Repositories.CreateFile(ctx, s.owner, s.repo, path, &github.RepositoryContentFileOptions{
		Message: github.String(commitMsg),
		Content: []byte(proposalFile(rec, now)),
		Branch:  github.String(branch),
	})
	if err != nil {
		return "", errors.ProviderAPIError("github", fmt.Errorf("committing proposal file: %w", err))
	}

	pr, _, err := s.client.PullRequests.Create(ctx, s.owner, s.repo, &github.NewPullRequest{
		Title: github.String(prTitle(rec)),
		Head:  github.String(branch),
		Base:  github.String(s.baseBranch),
		Body:  github.String(prBody(rec)),
	})
	if err != nil {
		return "", errors.ProviderAPIError("github", fmt.Errorf("opening pull request: %w", err))
	}

	s.logger.Infof("Opened proposal PR %s for %s", pr.GetHTMLURL(), a.Service)
	return pr.GetHTMLURL(), nil
}

func branchName(issueType, resourceID, service string, now time.Time) string {
	target := resourceID
	if target == "" {
		target = service
	}
	return fmt.Sprintf("costpilot/%s-%s-%s", slug(issueType), slug(target), now.Format("20060102150405"))
}

func proposalFile(rec *recommendation.Recommendation, now time.Time) string {
	a := rec.Anomaly
	var b strings.Builder
	fmt.Fprintf(&b, "# Cost optimization proposal generated %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "# Service: %s  Issue: %s  Waste score: %d\n", a.Service, a.IssueType, a.WasteScore)
	fmt.Fprintf(&b, "# Estimated savings: $%.2f/month  Risk: %s\n\n", rec.SavingsEstimate, rec.RiskLevel)
	b.WriteString(rec.ChangeProposal)
	if !strings.HasSuffix(rec.ChangeProposal, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func prTitle(rec *recommendation.Recommendation) string {
	a := rec.Anomaly
	return fmt.Sprintf("[costpilot] %s: %s ($%.2f/mo estimated savings)",
		a.Service, strings.ReplaceAll(string(a.IssueType), "_", " "), rec.SavingsEstimate)
}

func prBody(rec *recommendation.Recommendation) string {
	a := rec.Anomaly
	var b strings.Builder
	b.WriteString("## Automated cost optimization proposal\n\n")
	fmt.Fprintf(&b, "**Service:** %s\n", a.Service)
	if a.ResourceID != "" {
		fmt.Fprintf(&b, "**Resource:** `%s`\n", a.ResourceID)
	}
	fmt.Fprintf(&b, "**Issue type:** %s\n", a.IssueType)
	fmt.Fprintf(&b, "**Current cost:** $%.2f/month\n", a.CurrentCost)
	fmt.Fprintf(&b, "**Estimated savings:** $%.2f/month\n", rec.SavingsEstimate)
	fmt.Fprintf(&b, "**Risk level:** %s\n", rec.RiskLevel)
	fmt.Fprintf(&b, "**Confidence:** %.0f%%\n\n", rec.Confidence*100)
	fmt.Fprintf(&b, "### Root cause\n\n%s\n\n", rec.RootCause)
	if len(rec.Actions) > 0 {
		b.WriteString("### Recommended actions\n\n")
		for i, action := range rec.Actions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, action)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "### Rollback plan\n\n%s\n", rec.RollbackPlan)
	return b.String()
}

// slug lowercases and strips characters that are unsafe in branch names
func slug(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
