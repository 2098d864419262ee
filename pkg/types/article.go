// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Token is the result of a successful credential exchange with the source
// org. It is owned by a single invocation and never cached across runs.
type Token struct {
	// AccessToken is the bearer token for subsequent REST calls.
	AccessToken string `json:"access_token"`

	// InstanceURL is the org-specific REST base URL returned by the grant.
	InstanceURL string `json:"instance_url"`
}

// Article is one published knowledge article as fetched from the source
// org: a read-only snapshot, body still in rich text.
type Article struct {
	// ID is the knowledge article version id (e.g. "ka0XX0000004Cd3").
	ID string `json:"id" yaml:"id"`

	// ArticleNumber is the org-assigned human-facing number.
	ArticleNumber string `json:"article_number" yaml:"article_number"`

	// Title is the article title, carried through unchanged.
	Title string `json:"title" yaml:"title"`

	// URLName is the article's URL slug in the source org.
	URLName string `json:"url_name" yaml:"url_name"`

	// RawBody is the rich-text article body before markup stripping.
	RawBody string `json:"raw_body" yaml:"raw_body"`

	// LastPublished is the source-reported publication timestamp, kept as
	// the source formats it.
	LastPublished string `json:"last_published" yaml:"last_published"`
}

// Document is the canonical, destination-ready representation of one
// article. Its ID is derived from the article id, so repeated runs
// overwrite the same destination record.
type Document struct {
	ID            string `json:"id" yaml:"id"`
	Title         string `json:"title" yaml:"title"`
	Text          string `json:"text" yaml:"text"`
	URL           string `json:"url" yaml:"url"`
	ArticleNumber string `json:"article_number" yaml:"article_number"`
	URLName       string `json:"url_name" yaml:"url_name"`
	LastPublished string `json:"last_published" yaml:"last_published"`
}
