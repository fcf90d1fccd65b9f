// Package capture records raw provider payloads to disk for building test
// fixtures. It is off unless DEEPRESEARCH_CAPTURE_DIR is set or Enable is called.
package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// EnvCaptureDir turns capture on and names the output directory
const EnvCaptureDir = "DEEPRESEARCH_CAPTURE_DIR"

const defaultCaptureDir = "captures"

var (
	sessionID  = time.Now().Format("20060102-150405")
	captureSeq uint64

	mu         sync.RWMutex
	enabled    bool
	captureDir string
)

func init() {
	if dir := os.Getenv(EnvCaptureDir); dir != "" {
		Enable(dir)
	}
}

// Enabled reports whether capture is currently active
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Enable turns capture on, writing under dir (or ./captures when empty)
func Enable(dir string) {
	if dir == "" {
		dir = defaultCaptureDir
	}
	mu.Lock()
	enabled, captureDir = true, dir
	mu.Unlock()
}

// Disable turns capture off
func Disable() {
	mu.Lock()
	enabled = false
	mu.Unlock()
}

// Dir returns the directory of the current capture session
func Dir() string {
	mu.RLock()
	defer mu.RUnlock()
	return filepath.Join(captureDir, sessionID)
}

func writeFile(category, ext string, data []byte) {
	sessionDir := Dir()
	seq := atomic.AddUint64(&captureSeq, 1)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", sessionDir).Msg("capture: failed to create directory")
		return
	}

	path := filepath.Join(sessionDir, fmt.Sprintf("%s-%04d.%s", category, seq, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("capture: failed to write file")
		return
	}
	log.Debug().Str("path", path).Msg("capture: wrote payload")
}

// WriteJSON stores payload as indented JSON. Failures are logged and ignored.
func WriteJSON(category string, payload interface{}) {
	if !Enabled() {
		return
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Warn().Err(err).Str("category", category).Msg("capture: failed to marshal payload")
		return
	}
	writeFile(category, "json", data)
}

// WriteBlob stores raw bytes, e.g. an undecodable response body
func WriteBlob(category, ext string, data []byte) {
	if !Enabled() {
		return
	}
	writeFile(category, ext, data)
}
