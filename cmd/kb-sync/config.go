// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/kb-sync/internal/discovery"
	"github.com/pdiddy/kb-sync/internal/pipeline"
	"github.com/pdiddy/kb-sync/internal/salesforce"
	"github.com/pdiddy/kb-sync/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultPageSize  = 100
	defaultUserAgent = "kb-sync/0.1"
	defaultPort      = "8080"
	defaultRunLog    = "data/runs.db"
)

// buildConfig assembles the invocation configuration from the config file,
// environment, and loaded secrets.
func buildConfig() types.SyncConfig {
	timeout := viper.GetDuration("http.timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	userAgent := viper.GetString("http.user_agent")
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	pageSize := viper.GetInt("salesforce.page_size")
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	port := viper.GetString("server.port")
	if port == "" {
		port = defaultPort
	}
	runLog := defaultRunLog
	if viper.IsSet("runlog.path") {
		runLog = viper.GetString("runlog.path")
	}

	return types.SyncConfig{
		Salesforce: types.SalesforceConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   timeout,
				UserAgent: userAgent,
			},
			Domain:         viper.GetString("salesforce.domain"),
			ArticleBaseURL: viper.GetString("salesforce.article_base_url"),
			PageSize:       pageSize,
		},
		Datastore: types.DatastoreConfig{
			ProjectID:    viper.GetString("datastore.project_id"),
			Location:     viper.GetString("datastore.location"),
			DataStoreID:  viper.GetString("datastore.data_store_id"),
			DisplayName:  viper.GetString("datastore.display_name"),
			CollectionID: viper.GetString("datastore.collection_id"),
			BranchID:     viper.GetString("datastore.branch_id"),
			AccessToken:  secretDefault("gcp-access-token", viper.GetString("datastore.access_token")),
		},
		Server: types.ServerConfig{
			Port:   port,
			APIKey: secretDefault("api-access-key", viper.GetString("server.api_key")),
		},
		RunLogPath:  runLog,
		SummaryFile: viper.GetString("summary_file"),
	}
}

// credentialBundle resolves the source credential bundle: explicit config
// or environment values win, the secrets directory fills the gaps.
func credentialBundle() types.Credentials {
	return types.Credentials{
		ClientID:      secretDefault("sf-client-id", viper.GetString("salesforce.client_id")),
		ClientSecret:  secretDefault("sf-client-secret", viper.GetString("salesforce.client_secret")),
		Username:      secretDefault("sf-username", viper.GetString("salesforce.username")),
		Password:      secretDefault("sf-password", viper.GetString("salesforce.password")),
		SecurityToken: secretDefault("sf-security-token", viper.GetString("salesforce.security_token")),
	}
}

// newRunner wires the pipeline stages for one configuration. The journal
// may be nil when disabled.
func newRunner(cfg types.SyncConfig, creds types.Credentials, journal pipeline.Journal) *pipeline.Runner {
	client := &http.Client{Timeout: cfg.Salesforce.Timeout}

	return &pipeline.Runner{
		Authenticate: func(ctx context.Context) (types.Token, error) {
			return salesforce.Authenticate(ctx, client, creds, cfg.Salesforce.HTTPConfig)
		},
		OpenSource: func(token types.Token) pipeline.ArticleSource {
			return salesforce.NewArticleIterator(client, cfg.Salesforce, token)
		},
		Destination:    discovery.NewClient(client, cfg.Datastore, cfg.Salesforce.UserAgent),
		ArticleBaseURL: cfg.Salesforce.ArticleBaseURL,
		Journal:        journal,
		SummaryFile:    cfg.SummaryFile,
	}
}
