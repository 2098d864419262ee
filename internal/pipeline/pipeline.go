// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences one sync invocation: exchange credentials,
// page through published articles, normalize each one, and upsert it into
// the destination. Per-document failures are recorded and never abort the
// run; failures in the credential, fetch, or destination-identity stages
// are fatal.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kb-sync/internal/normalize"
	"github.com/pdiddy/kb-sync/pkg/types"
)

// ArticleSource yields source articles one at a time. Exhaustion is
// signalled by ok == false; any error is fatal to the run.
type ArticleSource interface {
	Next(ctx context.Context) (types.Article, bool, error)
}

// Destination receives canonical documents. Prepare failures are fatal;
// Upsert failures are isolated per document inside the returned outcome.
type Destination interface {
	Prepare(ctx context.Context) error
	Upsert(ctx context.Context, doc types.Document) types.UpsertOutcome
}

// Journal records finished runs. Satisfied by *runlog.Store.
type Journal interface {
	Record(ctx context.Context, rec types.RunRecord, outcomes []types.UpsertOutcome) (int64, error)
}

// Runner wires the stages of one invocation. Every run starts from
// scratch: no token, summary, or cursor survives between invocations.
type Runner struct {
	// Authenticate exchanges the credential bundle for an access token.
	Authenticate func(ctx context.Context) (types.Token, error)

	// OpenSource builds the lazy article sequence for an issued token.
	OpenSource func(token types.Token) ArticleSource

	// Destination is the document sink.
	Destination Destination

	// ArticleBaseURL shapes the canonical document links.
	ArticleBaseURL string

	// Journal, when non-nil, receives the finished run record.
	Journal Journal

	// SummaryFile, when set, receives a YAML dump of the run record.
	SummaryFile string
}

// Result is the terminal outcome of one invocation. Err is set only for
// the fatal states; a partially failed run is a finished run.
type Result struct {
	State    types.RunState
	Summary  types.RunSummary
	Outcomes []types.UpsertOutcome
	Err      error
}

// Run executes the pipeline once, writing per-document progress to w.
func (r *Runner) Run(ctx context.Context, w io.Writer) Result {
	started := time.Now()
	res := r.run(ctx, w)

	fmt.Fprintf(w, "\ntotal: %d, created: %d, updated: %d, failed: %d\n",
		res.Summary.Total, res.Summary.Created, res.Summary.Updated, res.Summary.Failed)
	if res.Err != nil {
		fmt.Fprintf(w, "run aborted: %v\n", res.Err)
	}

	rec := types.RunRecord{
		StartedAt:  started,
		FinishedAt: time.Now(),
		State:      res.State,
		Summary:    res.Summary,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}

	if r.Journal != nil {
		if _, err := r.Journal.Record(ctx, rec, res.Outcomes); err != nil {
			fmt.Fprintf(w, "warning: journal write failed: %v\n", err)
		}
	}
	if r.SummaryFile != "" {
		if err := writeSummaryFile(r.SummaryFile, rec); err != nil {
			fmt.Fprintf(w, "warning: summary write failed: %v\n", err)
		}
	}

	return res
}

func (r *Runner) run(ctx context.Context, w io.Writer) Result {
	res := Result{State: types.StateAuthenticating}

	token, err := r.Authenticate(ctx)
	if err != nil {
		res.State = types.StateFailed
		res.Err = err
		return res
	}

	res.State = types.StateFetching
	if err := r.Destination.Prepare(ctx); err != nil {
		res.State = types.StateFailed
		res.Err = err
		return res
	}
	source := r.OpenSource(token)

	res.State = types.StateProcessing
	for {
		if err := ctx.Err(); err != nil {
			res.State = types.StateFailed
			res.Err = err
			return res
		}

		article, ok, err := source.Next(ctx)
		if err != nil {
			// Documents already upserted stay in the destination; a
			// repeat run converges them to updates.
			res.State = types.StateFailed
			res.Err = err
			return res
		}
		if !ok {
			break
		}

		outcome := r.process(ctx, article)
		res.Summary.Add(outcome)
		res.Outcomes = append(res.Outcomes, outcome)

		switch outcome.Status {
		case types.StatusFailed:
			fmt.Fprintf(w, "failed  %s: %s\n", outcome.DocumentID, outcome.Error)
		default:
			fmt.Fprintf(w, "%s %s\n", outcome.Status, outcome.DocumentID)
		}
	}

	if res.Summary.HasFailures() {
		res.State = types.StatePartiallyFailed
	} else {
		res.State = types.StateCompleted
	}
	return res
}

// process normalizes one article and upserts the resulting document. Both
// failure modes are isolated to this article.
func (r *Runner) process(ctx context.Context, article types.Article) types.UpsertOutcome {
	doc, err := normalize.Normalize(article, r.ArticleBaseURL)
	if err != nil {
		return types.UpsertOutcome{
			DocumentID: article.ID,
			Status:     types.StatusFailed,
			Error:      err.Error(),
		}
	}
	return r.Destination.Upsert(ctx, doc)
}

func writeSummaryFile(path string, rec types.RunRecord) error {
	data, err := yaml.Marshal(&rec)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
