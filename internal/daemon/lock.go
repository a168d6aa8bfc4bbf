package daemon

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/murmur-app/murmur/internal/config"
	"github.com/murmur-app/murmur/internal/procutil"
)

// IsRunning checks if a daemon is already running for the given instance.
// A lock file pointing at a dead process is treated as stale and removed.
func IsRunning(instanceName string) bool {
	paths := config.GetInstancePaths(instanceName)

	data, err := os.ReadFile(paths.Lock)
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		os.Remove(paths.Lock)
		return false
	}

	if !procutil.IsProcessAlive(pid) {
		os.Remove(paths.Lock)
		return false
	}

	return true
}

// Ping reports whether a daemon answers on the given gateway address.
func Ping(addr string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func writeLockFile(lockPath string, pid int) error {
	if lockPath == "" {
		return fmt.Errorf("lock file path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	data := []byte(strconv.Itoa(pid))
	if err := os.WriteFile(lockPath, data, 0o600); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}

	return nil
}

func removeLockFile(lockPath string) {
	if lockPath == "" {
		return
	}
	_ = os.Remove(lockPath)
}
