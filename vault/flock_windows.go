//go:build windows

package vault

import (
	"fmt"
	"os"
)

// lockDataDir only opens the lock file on Windows; submissions are
// serialized within the process by Vault.mu.
func lockDataDir(path string, _ bool) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return f, nil
}

func unlockDataDir(f *os.File) {
	if f == nil {
		return
	}
	_ = f.Close()
}
