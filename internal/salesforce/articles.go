// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/kb-sync/internal/httputil"
	"github.com/pdiddy/kb-sync/pkg/types"
)

// apiVersion pins the org REST API version the connector queries.
const apiVersion = "v61.0"

const defaultPageSize = 100

// articlePage is one page of the knowledge-article listing. NextPageURL is
// an opaque relative URL; its absence signals exhaustion.
type articlePage struct {
	Articles    []listedArticle `json:"articles"`
	NextPageURL string          `json:"nextPageUrl"`
}

type listedArticle struct {
	ID                string `json:"id"`
	ArticleNumber     string `json:"articleNumber"`
	Title             string `json:"title"`
	URLName           string `json:"urlName"`
	URL               string `json:"url"`
	LastPublishedDate string `json:"lastPublishedDate"`
}

// articleDetail carries the rendered layout of one article. The body is
// the first layout item's value.
type articleDetail struct {
	LayoutItems []struct {
		Value string `json:"value"`
	} `json:"layoutItems"`
}

// ArticleIterator is a lazy, finite, non-restartable sequence of published
// knowledge articles. Pages are fetched on demand; each yielded article
// already carries its rich-text body from the per-article detail call.
// Records come back in source-org order.
type ArticleIterator struct {
	client *http.Client
	cfg    types.SalesforceConfig
	token  types.Token
	base   string

	buf  []listedArticle
	next string // absolute URL of the next listing request; "" once exhausted
}

// NewArticleIterator prepares an iterator over all published articles.
// The org's instance URL from the token wins over the configured domain.
func NewArticleIterator(client *http.Client, cfg types.SalesforceConfig, token types.Token) *ArticleIterator {
	base := token.InstanceURL
	if base == "" {
		base = cfg.Domain
	}
	base = strings.TrimSuffix(base, "/")

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	q := url.Values{
		"pageSize":  {fmt.Sprintf("%d", pageSize)},
		"published": {"true"},
	}

	return &ArticleIterator{
		client: client,
		cfg:    cfg,
		token:  token,
		base:   base,
		next:   base + "/services/data/" + apiVersion + "/support/knowledgeArticles?" + q.Encode(),
	}
}

// Next yields the next article. ok is false once the listing is exhausted.
// A rejected token surfaces as ErrTokenExpired; any other non-recoverable
// HTTP failure as *FetchError. Both are fatal to the caller's run.
func (it *ArticleIterator) Next(ctx context.Context) (types.Article, bool, error) {
	for len(it.buf) == 0 {
		if it.next == "" {
			return types.Article{}, false, nil
		}
		if err := it.fetchPage(ctx); err != nil {
			return types.Article{}, false, err
		}
	}

	a := it.buf[0]
	it.buf = it.buf[1:]

	body, err := it.fetchBody(ctx, a.URL)
	if err != nil {
		return types.Article{}, false, err
	}

	return types.Article{
		ID:            a.ID,
		ArticleNumber: a.ArticleNumber,
		Title:         a.Title,
		URLName:       a.URLName,
		RawBody:       body,
		LastPublished: a.LastPublishedDate,
	}, true, nil
}

func (it *ArticleIterator) fetchPage(ctx context.Context) error {
	resp, err := it.get(ctx, it.next)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var page articlePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return &FetchError{URL: it.next, Err: fmt.Errorf("parsing article page: %w", err)}
	}

	it.buf = page.Articles
	it.next = it.resolve(page.NextPageURL)
	return nil
}

// fetchBody retrieves the rich-text body from the article's detail
// resource. An article without layout items yields an empty body; the
// normalizer decides what to do with it.
func (it *ArticleIterator) fetchBody(ctx context.Context, detailPath string) (string, error) {
	detailURL := it.resolve(detailPath)
	resp, err := it.get(ctx, detailURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var detail articleDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return "", &FetchError{URL: detailURL, Err: fmt.Errorf("parsing article detail: %w", err)}
	}

	if len(detail.LayoutItems) == 0 {
		return "", nil
	}
	return detail.LayoutItems[0].Value, nil
}

func (it *ArticleIterator) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+it.token.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US")
	if it.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", it.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, it.client, req, 0)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, ErrTokenExpired
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// resolve turns the org's relative paths into absolute request URLs.
func (it *ArticleIterator) resolve(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return it.base + path
}
