// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "sf-client-id", "  3MVG9abc  \n")
				writeFile(t, dir, "sf-client-secret", "shh_xyz789")
				writeFile(t, dir, "sf-username", "sync@acme.example\n")
				return dir
			},
			want: map[string]string{
				"sf-client-id":     "3MVG9abc",
				"sf-client-secret": "shh_xyz789",
				"sf-username":      "sync@acme.example",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "sf-password", "hunter2")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"sf-password": "hunter2",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "gcp-access-token", "ya29.real")
				return dir
			},
			want: map[string]string{
				"gcp-access-token": "ya29.real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "sf-security-token", "tok123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"sf-security-token": "tok123",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCredentials(t *testing.T) {
	creds := Credentials(map[string]string{
		"sf-client-id":      "cid",
		"sf-client-secret":  "cs",
		"sf-username":       "user@acme.example",
		"sf-password":       "pw",
		"sf-security-token": "tok",
		"unrelated-key":     "ignored",
	})

	assert.Equal(t, "cid", creds.ClientID)
	assert.Equal(t, "cs", creds.ClientSecret)
	assert.Equal(t, "user@acme.example", creds.Username)
	assert.Equal(t, "pw", creds.Password)
	assert.Equal(t, "tok", creds.SecurityToken)
	assert.True(t, creds.Complete())
}

func TestCredentialsIncomplete(t *testing.T) {
	creds := Credentials(map[string]string{"sf-client-id": "cid"})
	assert.False(t, creds.Complete())
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
}
