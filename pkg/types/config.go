// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the configuration and domain types shared across the
// sync pipeline stages.
package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by the API clients.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "kb-sync/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// Credentials is the credential bundle for the source org. It is loaded
// once per invocation and passed by value into the credential exchange;
// nothing in the pipeline holds credentials in global state.
type Credentials struct {
	ClientID      string `json:"client_id" yaml:"client_id"`
	ClientSecret  string `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	Username      string `json:"username" yaml:"username"`
	Password      string `json:"password,omitempty" yaml:"password,omitempty"`
	SecurityToken string `json:"security_token,omitempty" yaml:"security_token,omitempty"`
}

// Complete reports whether every field required for the password grant is set.
// The security token is optional: orgs with relaxed IP restrictions omit it.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}

// SalesforceConfig holds settings for the source side of the sync:
// the org to query and how to shape article links.
type SalesforceConfig struct {
	HTTPConfig `yaml:",inline"`

	// Domain is the org's REST base URL
	// (e.g. "https://acme-dev-ed.develop.my.salesforce.com").
	Domain string `json:"domain" yaml:"domain"`

	// ArticleBaseURL is the public link prefix articles are published under
	// (e.g. "https://acme.lightning.force.com/lightning/r/Knowledge__kav/").
	// The canonical document URL is this prefix + article id + "/view".
	ArticleBaseURL string `json:"article_base_url" yaml:"article_base_url"`

	// PageSize is the number of articles requested per listing page (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`
}

// DatastoreConfig identifies the destination Discovery Engine data store.
// Authentication is ambient: the execution environment's service identity,
// optionally overridden by AccessToken for local runs.
type DatastoreConfig struct {
	ProjectID   string `json:"project_id" yaml:"project_id"`
	Location    string `json:"location" yaml:"location"`
	DataStoreID string `json:"data_store_id" yaml:"data_store_id"`

	// DisplayName labels the data store if it has to be created.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// CollectionID and BranchID default to the engine's well-known values.
	CollectionID string `json:"collection_id" yaml:"collection_id"`
	BranchID     string `json:"branch_id" yaml:"branch_id"`

	// AccessToken, when set, bypasses the metadata-server token fetch.
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty"`
}

const (
	DefaultCollectionID = "default_collection"
	DefaultBranchID     = "default_branch"
)

// Parent returns the project/location resource path the data store lives under.
func (c DatastoreConfig) Parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", c.ProjectID, c.Location)
}

// BranchPath returns the branch resource path documents are stored under.
func (c DatastoreConfig) BranchPath() string {
	collection := c.CollectionID
	if collection == "" {
		collection = DefaultCollectionID
	}
	branch := c.BranchID
	if branch == "" {
		branch = DefaultBranchID
	}
	return fmt.Sprintf("%s/collections/%s/dataStores/%s/branches/%s",
		c.Parent(), collection, c.DataStoreID, branch)
}

// DocumentName returns the full resource name of one document.
func (c DatastoreConfig) DocumentName(id string) string {
	return c.BranchPath() + "/documents/" + id
}

// ServerConfig holds settings for the HTTP trigger surface.
type ServerConfig struct {
	// Port is the listen port for the trigger server.
	Port string `json:"port" yaml:"port"`

	// APIKey, when set, is required in the X-API-Key header on trigger
	// and journal endpoints. Health stays open.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// SyncConfig groups all settings for one sync invocation.
type SyncConfig struct {
	Salesforce SalesforceConfig `json:"salesforce" yaml:"salesforce"`
	Datastore  DatastoreConfig  `json:"datastore" yaml:"datastore"`
	Server     ServerConfig     `json:"server" yaml:"server"`

	// RunLogPath is the SQLite run-journal location. Empty disables the journal.
	RunLogPath string `json:"runlog_path" yaml:"runlog_path"`

	// SummaryFile, when set, receives a YAML dump of the final run summary.
	SummaryFile string `json:"summary_file,omitempty" yaml:"summary_file,omitempty"`
}
