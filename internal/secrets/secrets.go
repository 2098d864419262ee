// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
//
// Supported key files: sf-client-id, sf-client-secret, sf-username,
// sf-password, sf-security-token, gcp-access-token, api-access-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/kb-sync/pkg/types"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Credentials assembles the source credential bundle from a secrets map.
// Empty entries stay empty; the caller decides whether the bundle is usable.
func Credentials(secrets map[string]string) types.Credentials {
	return types.Credentials{
		ClientID:      secrets["sf-client-id"],
		ClientSecret:  secrets["sf-client-secret"],
		Username:      secrets["sf-username"],
		Password:      secrets["sf-password"],
		SecurityToken: secrets["sf-security-token"],
	}
}
