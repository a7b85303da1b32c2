// Package messages loads user-facing notification texts from a JSON file so
// copy changes never require a rebuild.
package messages

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type MessageText struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Messages struct {
	SyncComplete   MessageText `json:"sync_complete"`
	ReauthRequired MessageText `json:"reauth_required"`
}

// Defaults returns the built-in texts used when no messages file is configured
func Defaults() *Messages {
	return &Messages{
		SyncComplete: MessageText{
			Title: "Accounts updated",
			Body:  "Your account balances are up to date.",
		},
		ReauthRequired: MessageText{
			Title: "Action needed",
			Body:  "Your bank connection expired. Please re-link your account.",
		},
	}
}

var (
	loaded   Messages
	loadOnce sync.Once
	loadErr  error
)

// Load reads the notifications JSON file and caches the result. An empty
// path returns the built-in defaults. Safe to call from multiple goroutines.
func Load(path string) (*Messages, error) {
	if path == "" {
		return Defaults(), nil
	}
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read messages file: %w", err)
			return
		}
		loaded = *Defaults()
		if err := json.Unmarshal(data, &loaded); err != nil {
			loadErr = fmt.Errorf("failed to parse messages file: %w", err)
		}
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return &loaded, nil
}
