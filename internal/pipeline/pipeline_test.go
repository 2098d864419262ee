// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kb-sync/pkg/types"
)

// --- fakes ---

type fakeSource struct {
	articles  []types.Article
	nextCalls int

	// failAfter, when >= 0, makes Next fail once that many articles have
	// been yielded.
	failAfter int
	failErr   error
}

func newFakeSource(articles ...types.Article) *fakeSource {
	return &fakeSource{articles: articles, failAfter: -1}
}

func (f *fakeSource) Next(ctx context.Context) (types.Article, bool, error) {
	f.nextCalls++
	yielded := f.nextCalls - 1
	if f.failAfter >= 0 && yielded >= f.failAfter {
		return types.Article{}, false, f.failErr
	}
	if yielded >= len(f.articles) {
		return types.Article{}, false, nil
	}
	return f.articles[yielded], true, nil
}

type fakeDest struct {
	prepareErr   error
	prepareCalls int

	upserted []string
	existing map[string]bool
	failIDs  map[string]bool
}

func newFakeDest() *fakeDest {
	return &fakeDest{existing: map[string]bool{}, failIDs: map[string]bool{}}
}

func (f *fakeDest) Prepare(ctx context.Context) error {
	f.prepareCalls++
	return f.prepareErr
}

func (f *fakeDest) Upsert(ctx context.Context, doc types.Document) types.UpsertOutcome {
	f.upserted = append(f.upserted, doc.ID)
	if f.failIDs[doc.ID] {
		return types.UpsertOutcome{DocumentID: doc.ID, Status: types.StatusFailed, Error: "HTTP 500"}
	}
	if f.existing[doc.ID] {
		return types.UpsertOutcome{DocumentID: doc.ID, Status: types.StatusUpdated}
	}
	f.existing[doc.ID] = true
	return types.UpsertOutcome{DocumentID: doc.ID, Status: types.StatusCreated}
}

type fakeJournal struct {
	rec      types.RunRecord
	outcomes []types.UpsertOutcome
	calls    int
}

func (f *fakeJournal) Record(ctx context.Context, rec types.RunRecord, outcomes []types.UpsertOutcome) (int64, error) {
	f.calls++
	f.rec = rec
	f.outcomes = outcomes
	return int64(f.calls), nil
}

func article(id, body string) types.Article {
	return types.Article{ID: id, Title: "Title " + id, RawBody: body}
}

func runner(src ArticleSource, dest Destination) *Runner {
	return &Runner{
		Authenticate:   func(ctx context.Context) (types.Token, error) { return types.Token{AccessToken: "tok"}, nil },
		OpenSource:     func(types.Token) ArticleSource { return src },
		Destination:    dest,
		ArticleBaseURL: "https://kb.example/kav/",
	}
}

// --- tests ---

func TestRunEndToEnd(t *testing.T) {
	// Corpus of three articles; a2 has a malformed (empty) body. The
	// normalizer fails only for a2, the upserter sees a1 and a3, and the
	// summary still accounts for all three.
	src := newFakeSource(
		article("a1", "<p>First body</p>"),
		article("a2", ""),
		article("a3", "<p>Third body</p>"),
	)
	dest := newFakeDest()
	var out bytes.Buffer

	res := runner(src, dest).Run(context.Background(), &out)

	if res.State != types.StatePartiallyFailed {
		t.Errorf("State = %q, want partially_failed", res.State)
	}
	want := types.RunSummary{Total: 3, Created: 2, Failed: 1}
	if res.Summary != want {
		t.Errorf("Summary = %+v, want %+v", res.Summary, want)
	}
	if len(dest.upserted) != 2 || dest.upserted[0] != "a1" || dest.upserted[1] != "a3" {
		t.Errorf("upserted = %v, want [a1 a3]", dest.upserted)
	}
	if len(res.Outcomes) != 3 {
		t.Fatalf("got %d outcomes", len(res.Outcomes))
	}
	if res.Outcomes[1].DocumentID != "a2" || res.Outcomes[1].Status != types.StatusFailed {
		t.Errorf("outcome for a2 = %+v", res.Outcomes[1])
	}
	if !strings.Contains(out.String(), "created a1") || !strings.Contains(out.String(), "failed  a2") {
		t.Errorf("progress output missing expected lines:\n%s", out.String())
	}
}

func TestRunAuthFailureShortCircuits(t *testing.T) {
	src := newFakeSource(article("a1", "<p>x</p>"))
	dest := newFakeDest()
	r := runner(src, dest)
	authErr := errors.New("invalid_grant")
	r.Authenticate = func(ctx context.Context) (types.Token, error) { return types.Token{}, authErr }

	res := r.Run(context.Background(), io.Discard)

	if res.State != types.StateFailed {
		t.Errorf("State = %q, want failed", res.State)
	}
	if !errors.Is(res.Err, authErr) {
		t.Errorf("Err = %v, want the auth error", res.Err)
	}
	if src.nextCalls != 0 {
		t.Errorf("fetcher called %d times after auth failure", src.nextCalls)
	}
	if dest.prepareCalls != 0 || len(dest.upserted) != 0 {
		t.Errorf("destination touched after auth failure: prepare=%d upserts=%v",
			dest.prepareCalls, dest.upserted)
	}
	if res.Summary.Total != 0 {
		t.Errorf("Summary = %+v, want zero", res.Summary)
	}
}

func TestRunDestinationIdentityFailureIsFatal(t *testing.T) {
	src := newFakeSource(article("a1", "<p>x</p>"))
	dest := newFakeDest()
	dest.prepareErr = errors.New("metadata token request: HTTP 403")

	res := runner(src, dest).Run(context.Background(), io.Discard)

	if res.State != types.StateFailed {
		t.Errorf("State = %q, want failed", res.State)
	}
	if src.nextCalls != 0 {
		t.Errorf("fetcher called %d times after identity failure", src.nextCalls)
	}
	if len(dest.upserted) != 0 {
		t.Errorf("upserted = %v, want none", dest.upserted)
	}
}

func TestRunFetchFailureMidRunKeepsPartialResults(t *testing.T) {
	src := newFakeSource(
		article("a1", "<p>one</p>"),
		article("a2", "<p>two</p>"),
		article("a3", "<p>three</p>"),
	)
	src.failAfter = 2
	src.failErr = errors.New("salesforce fetch: HTTP 503")
	dest := newFakeDest()

	res := runner(src, dest).Run(context.Background(), io.Discard)

	if res.State != types.StateFailed {
		t.Errorf("State = %q, want failed", res.State)
	}
	if res.Summary.Total != 2 || res.Summary.Created != 2 {
		t.Errorf("Summary = %+v, want 2 created before the abort", res.Summary)
	}
	if len(dest.upserted) != 2 {
		t.Errorf("upserted = %v", dest.upserted)
	}
}

func TestRunUpsertFailureIsIsolated(t *testing.T) {
	src := newFakeSource(
		article("a1", "<p>one</p>"),
		article("a2", "<p>two</p>"),
		article("a3", "<p>three</p>"),
	)
	dest := newFakeDest()
	dest.failIDs["a2"] = true

	res := runner(src, dest).Run(context.Background(), io.Discard)

	if res.State != types.StatePartiallyFailed {
		t.Errorf("State = %q", res.State)
	}
	want := types.RunSummary{Total: 3, Created: 2, Failed: 1}
	if res.Summary != want {
		t.Errorf("Summary = %+v, want %+v", res.Summary, want)
	}
	// The two successes made it to the destination.
	if !dest.existing["a1"] || !dest.existing["a3"] {
		t.Errorf("existing = %v", dest.existing)
	}
}

func TestRunIdempotentSecondRun(t *testing.T) {
	corpus := []types.Article{
		article("a1", "<p>one</p>"),
		article("a2", "<p>two</p>"),
	}
	dest := newFakeDest()

	first := runner(newFakeSource(corpus...), dest).Run(context.Background(), io.Discard)
	if first.Summary.Created != 2 {
		t.Fatalf("first run summary = %+v", first.Summary)
	}

	second := runner(newFakeSource(corpus...), dest).Run(context.Background(), io.Discard)
	if second.State != types.StateCompleted {
		t.Errorf("second run state = %q", second.State)
	}
	if second.Summary.Updated != 2 || second.Summary.Created != 0 {
		t.Errorf("second run summary = %+v, want 2 updated", second.Summary)
	}
	if len(dest.existing) != 2 {
		t.Errorf("destination holds %d documents, want 2", len(dest.existing))
	}
}

func TestRunEmptyCorpus(t *testing.T) {
	res := runner(newFakeSource(), newFakeDest()).Run(context.Background(), io.Discard)
	if res.State != types.StateCompleted {
		t.Errorf("State = %q, want completed", res.State)
	}
	if res.Summary != (types.RunSummary{}) {
		t.Errorf("Summary = %+v, want zero", res.Summary)
	}
}

func TestRunRecordsJournal(t *testing.T) {
	src := newFakeSource(article("a1", "<p>one</p>"))
	journal := &fakeJournal{}
	r := runner(src, newFakeDest())
	r.Journal = journal

	res := r.Run(context.Background(), io.Discard)

	if journal.calls != 1 {
		t.Fatalf("journal recorded %d times", journal.calls)
	}
	if journal.rec.State != res.State {
		t.Errorf("journal state = %q, result state = %q", journal.rec.State, res.State)
	}
	if len(journal.outcomes) != 1 || journal.outcomes[0].DocumentID != "a1" {
		t.Errorf("journal outcomes = %+v", journal.outcomes)
	}
	if journal.rec.FinishedAt.Before(journal.rec.StartedAt) {
		t.Error("FinishedAt precedes StartedAt")
	}
}

func TestRunWritesSummaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yaml")
	r := runner(newFakeSource(article("a1", "<p>one</p>")), newFakeDest())
	r.SummaryFile = path

	r.Run(context.Background(), io.Discard)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("summary file not written: %v", err)
	}
	var rec types.RunRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		t.Fatalf("summary file not parseable: %v", err)
	}
	if rec.State != types.StateCompleted || rec.Summary.Created != 1 {
		t.Errorf("summary record = %+v", rec)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newFakeSource(article("a1", "<p>one</p>"))
	res := runner(src, newFakeDest()).Run(ctx, io.Discard)

	if res.State != types.StateFailed {
		t.Errorf("State = %q, want failed", res.State)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Err = %v", res.Err)
	}
}

func TestProcessOutcomeStatuses(t *testing.T) {
	dest := newFakeDest()
	dest.existing["seen"] = true
	r := runner(nil, dest)

	tests := []struct {
		name string
		a    types.Article
		want types.UpsertStatus
	}{
		{"new document", article("fresh", "<p>x</p>"), types.StatusCreated},
		{"existing document", article("seen", "<p>x</p>"), types.StatusUpdated},
		{"malformed body", article("bad", "   "), types.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.process(context.Background(), tt.a)
			if got.Status != tt.want {
				t.Errorf("process() status = %q, want %q", got.Status, tt.want)
			}
			if got.DocumentID != tt.a.ID {
				t.Errorf("DocumentID = %q", got.DocumentID)
			}
		})
	}
}
