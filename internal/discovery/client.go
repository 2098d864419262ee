// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discovery is the destination-side adapter: it upserts canonical
// documents into a Discovery Engine data store over the v1beta REST
// surface. Authentication is ambient (the execution environment's service
// identity); the source token never crosses into this package.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/kb-sync/internal/httputil"
	"github.com/pdiddy/kb-sync/pkg/types"
)

// apiBase is the Discovery Engine REST endpoint. Declared as a var so
// tests can substitute an httptest server.
var apiBase = "https://discoveryengine.googleapis.com/v1beta"

// metadataTokenURL is where the execution environment hands out access
// tokens for the ambient service identity.
var metadataTokenURL = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"

// Client talks to one data store's document collection.
type Client struct {
	hc    *http.Client
	cfg   types.DatastoreConfig
	ua    string
	token string
}

// NewClient builds a client for the configured data store. Call Prepare
// before the first Upsert.
func NewClient(hc *http.Client, cfg types.DatastoreConfig, userAgent string) *Client {
	return &Client{hc: hc, cfg: cfg, ua: userAgent}
}

// Prepare resolves the ambient identity and makes sure the data store
// exists, creating it when absent. Failure here is fatal to the run:
// without a destination identity there is no per-document recovery.
func (c *Client) Prepare(ctx context.Context) error {
	token, err := c.resolveToken(ctx)
	if err != nil {
		return &IdentityError{Err: err}
	}
	c.token = token

	if err := c.ensureDataStore(ctx); err != nil {
		return fmt.Errorf("ensuring data store %s: %w", c.cfg.DataStoreID, err)
	}
	return nil
}

// resolveToken prefers the configured override (local runs, tests) and
// otherwise asks the metadata server for the service-account token.
func (c *Client) resolveToken(ctx context.Context) (string, error) {
	if c.cfg.AccessToken != "" {
		return c.cfg.AccessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataTokenURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Metadata-Flavor", "Google")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("metadata token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata token request: HTTP %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("parsing metadata token: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("metadata server returned no token")
	}
	return body.AccessToken, nil
}

// dataStoreList is the engine's answer to a data-store listing.
type dataStoreList struct {
	DataStores []struct {
		Name string `json:"name"`
	} `json:"dataStores"`
}

func (c *Client) ensureDataStore(ctx context.Context) error {
	listURL := fmt.Sprintf("%s/%s/dataStores", apiBase, c.cfg.Parent())
	resp, err := c.do(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiStatusError(resp)
	}

	var list dataStoreList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fmt.Errorf("parsing data store list: %w", err)
	}
	for _, ds := range list.DataStores {
		if strings.HasSuffix(ds.Name, "/"+c.cfg.DataStoreID) {
			return nil
		}
	}

	createURL := listURL + "?dataStoreId=" + c.cfg.DataStoreID
	payload := map[string]string{
		"displayName":      c.cfg.DisplayName,
		"industryVertical": "GENERIC",
	}
	resp, err = c.do(ctx, http.MethodPost, createURL, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// A concurrent invocation may win the creation race.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return apiStatusError(resp)
	}
	return nil
}

// document is the engine's wire representation. StructData carries the
// canonical fields; the engine indexes them for search.
type document struct {
	Name       string            `json:"name,omitempty"`
	StructData map[string]string `json:"structData"`
}

func structData(doc types.Document) map[string]string {
	return map[string]string{
		"articleNumber":     doc.ArticleNumber,
		"id":                doc.ID,
		"title":             doc.Title,
		"lastPublishedDate": doc.LastPublished,
		"text":              doc.Text,
		"url":               doc.URL,
		"urlName":           doc.URLName,
	}
}

// Upsert creates or replaces the destination record keyed by the document
// id. Failures are isolated: the outcome records them and the caller moves
// on to the next document.
func (c *Client) Upsert(ctx context.Context, doc types.Document) types.UpsertOutcome {
	exists, err := c.documentExists(ctx, doc.ID)
	if err != nil {
		return failedOutcome(doc.ID, err)
	}

	if exists {
		if err := c.updateDocument(ctx, doc); err != nil {
			return failedOutcome(doc.ID, err)
		}
		return types.UpsertOutcome{DocumentID: doc.ID, Status: types.StatusUpdated}
	}

	if err := c.createDocument(ctx, doc); err != nil {
		return failedOutcome(doc.ID, err)
	}
	return types.UpsertOutcome{DocumentID: doc.ID, Status: types.StatusCreated}
}

func (c *Client) documentExists(ctx context.Context, id string) (bool, error) {
	getURL := apiBase + "/" + c.cfg.DocumentName(id)
	resp, err := c.do(ctx, http.MethodGet, getURL, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, apiStatusError(resp)
	}
}

func (c *Client) createDocument(ctx context.Context, doc types.Document) error {
	createURL := fmt.Sprintf("%s/%s/documents?documentId=%s", apiBase, c.cfg.BranchPath(), doc.ID)
	resp, err := c.do(ctx, http.MethodPost, createURL, document{StructData: structData(doc)})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiStatusError(resp)
	}
	return nil
}

func (c *Client) updateDocument(ctx context.Context, doc types.Document) error {
	name := c.cfg.DocumentName(doc.ID)
	resp, err := c.do(ctx, http.MethodPatch, apiBase+"/"+name, document{
		Name:       name,
		StructData: structData(doc),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiStatusError(resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	return httputil.DoWithRetry(ctx, c.hc, req, 0)
}

func failedOutcome(id string, err error) types.UpsertOutcome {
	uerr := &UpsertError{DocumentID: id, Err: err}
	return types.UpsertOutcome{DocumentID: id, Status: types.StatusFailed, Error: uerr.Error()}
}

// apiStatusError reads the engine's error envelope off a non-2xx response.
func apiStatusError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, envelope.Error.Message)
	}
	return fmt.Errorf("HTTP %d", resp.StatusCode)
}
