// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"errors"
	"testing"

	"github.com/pdiddy/kb-sync/pkg/types"
)

const baseURL = "https://acme.lightning.force.com/lightning/r/Knowledge__kav/"

func article(id, body string) types.Article {
	return types.Article{
		ID:            id,
		ArticleNumber: "000123",
		Title:         "Resetting your password",
		URLName:       "resetting-your-password",
		RawBody:       body,
		LastPublished: "2026-08-01T00:00:00Z",
	}
}

func TestNormalizeStripsMarkup(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "simple paragraph",
			body: "<p>Hello world</p>",
			want: "Hello world",
		},
		{
			name: "nested markup",
			body: "<div><h2>Steps</h2><ol><li>Open <b>Settings</b></li><li>Click <i>Reset</i></li></ol></div>",
			want: "Steps Open Settings Click Reset",
		},
		{
			name: "whitespace collapsed",
			body: "<p>  Hello \n\n  world\t </p><p>again</p>",
			want: "Hello world again",
		},
		{
			name: "entities decoded",
			body: "<p>Fish &amp; chips</p>",
			want: "Fish & chips",
		},
		{
			name: "plain text passes through",
			body: "Already plain text",
			want: "Already plain text",
		},
		{
			name: "unclosed tags tolerated",
			body: "<p>First<p>Second",
			want: "First Second",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Normalize(article("ka001", tt.body), baseURL)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if doc.Text != tt.want {
				t.Errorf("Text = %q, want %q", doc.Text, tt.want)
			}
		})
	}
}

func TestNormalizeDocumentFields(t *testing.T) {
	doc, err := Normalize(article("ka001", "<p>Body</p>"), baseURL)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if doc.ID != "ka001" {
		t.Errorf("ID = %q", doc.ID)
	}
	if doc.Title != "Resetting your password" {
		t.Errorf("Title = %q", doc.Title)
	}
	if doc.URL != baseURL+"ka001/view" {
		t.Errorf("URL = %q", doc.URL)
	}
	if doc.ArticleNumber != "000123" {
		t.Errorf("ArticleNumber = %q", doc.ArticleNumber)
	}
	if doc.LastPublished != "2026-08-01T00:00:00Z" {
		t.Errorf("LastPublished = %q", doc.LastPublished)
	}
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"whitespace-only body", "   \n\t "},
		{"markup with no text", "<p><br/></p><img src=\"x.png\"/>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(article("ka002", tt.body), baseURL)
			var normErr *NormalizationError
			if !errors.As(err, &normErr) {
				t.Fatalf("error = %v, want *NormalizationError", err)
			}
			if normErr.ArticleID != "ka002" {
				t.Errorf("ArticleID = %q", normErr.ArticleID)
			}
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	a := article("ka003", "<div><p>Same  input</p><ul><li>same</li><li>output</li></ul></div>")
	first, err := Normalize(a, baseURL)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := Normalize(a, baseURL)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("run %d produced %+v, want %+v", i, again, first)
		}
	}
}

func TestArticleURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		id   string
		want string
	}{
		{"trailing slash", "https://x.example/kav/", "ka1", "https://x.example/kav/ka1/view"},
		{"no trailing slash", "https://x.example/kav", "ka1", "https://x.example/kav/ka1/view"},
		{"empty base", "", "ka1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArticleURL(tt.base, tt.id); got != tt.want {
				t.Errorf("ArticleURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
