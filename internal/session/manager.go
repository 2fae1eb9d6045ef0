// Package session keeps loaded capture files and their opened trend logs in
// memory between requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/trendlog-viewer/backend/internal/capture"
	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/parser"
	"github.com/trendlog-viewer/backend/internal/storage"
	"github.com/trendlog-viewer/backend/internal/trendlog"
)

// MaxSessions limits the number of captures held in memory
const MaxSessions = 10

// SessionMaxAge is how long an unused capture stays loaded
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow protects recently used captures from cleanup
const SessionKeepAliveWindow = 5 * time.Minute

var (
	// ErrCaptureNotFound is returned for file ids the store does not know.
	ErrCaptureNotFound = errors.New("capture not found")
	// ErrInvalidCapture is returned when a file is not a readable capture.
	ErrInvalidCapture = errors.New("invalid capture file")
)

// Manager loads captures on demand and caches the trend logs opened from them.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	store    storage.Store
	decoder  *parser.Decoder
}

// SessionState is one loaded capture file.
type SessionState struct {
	File         *models.FileInfo
	Capture      *capture.Capture
	LastAccessed time.Time

	logsMu sync.Mutex
	logs   map[models.ObjectIdentifier]*trendlog.TrendLog
}

// NewManager creates a manager over store. Trend logs decode with decoder.
func NewManager(store storage.Store, decoder *parser.Decoder) *Manager {
	if decoder == nil {
		decoder = parser.NewDecoder()
	}
	return &Manager{
		sessions: make(map[string]*SessionState),
		store:    store,
		decoder:  decoder,
	}
}

// Decoder returns the decoder trend logs are opened with.
func (m *Manager) Decoder() *parser.Decoder {
	return m.decoder
}

// AddCapture stores a new capture file and validates it. Files that fail to
// load are removed again and ErrInvalidCapture is returned.
func (m *Manager) AddCapture(name string, r io.Reader) (*models.CaptureSummary, error) {
	info, err := m.store.Save(name, r)
	if err != nil {
		return nil, fmt.Errorf("saving capture: %w", err)
	}

	c, err := m.loadFromStore(info.ID)
	if err != nil {
		if delErr := m.store.Delete(info.ID); delErr != nil {
			fmt.Printf("[Session] Failed to remove rejected capture %s: %v\n", info.ID, delErr)
		}
		return nil, err
	}

	if info, err = m.store.SetStatus(info.ID, storage.StatusValid); err != nil {
		return nil, fmt.Errorf("updating capture status: %w", err)
	}
	m.put(info, c)

	fmt.Printf("[Session] Added capture %s (%s): %d trend logs\n", info.ID, name, len(c.TrendLogs))
	return c.Summary(info), nil
}

// Get returns the loaded capture for fileID, loading it from the store if needed.
func (m *Manager) Get(fileID string) (*SessionState, error) {
	m.mu.Lock()
	if state, ok := m.sessions[fileID]; ok {
		state.LastAccessed = time.Now()
		m.mu.Unlock()
		return state, nil
	}
	m.mu.Unlock()

	info, err := m.store.Get(fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCaptureNotFound, fileID)
	}
	c, err := m.loadFromStore(fileID)
	if err != nil {
		return nil, err
	}
	return m.put(info, c), nil
}

// Summary describes a capture file.
func (m *Manager) Summary(fileID string) (*models.CaptureSummary, error) {
	state, err := m.Get(fileID)
	if err != nil {
		return nil, err
	}
	return state.Capture.Summary(state.File), nil
}

// List returns the stored capture files, newest first.
func (m *Manager) List(limit int) ([]*models.FileInfo, error) {
	return m.store.List(limit)
}

// DeleteCapture unloads and removes a capture file.
func (m *Manager) DeleteCapture(fileID string) error {
	m.mu.Lock()
	delete(m.sessions, fileID)
	m.mu.Unlock()

	if _, err := m.store.Get(fileID); err != nil {
		return fmt.Errorf("%w: %s", ErrCaptureNotFound, fileID)
	}
	return m.store.Delete(fileID)
}

// OpenTrendLog returns the trend log id of a capture. The descriptor is read
// once per loaded capture; later calls reuse the opened trend log.
func (m *Manager) OpenTrendLog(ctx context.Context, fileID string, id models.ObjectIdentifier) (*trendlog.TrendLog, error) {
	state, err := m.Get(fileID)
	if err != nil {
		return nil, err
	}

	state.logsMu.Lock()
	defer state.logsMu.Unlock()

	if tl, ok := state.logs[id]; ok {
		return tl, nil
	}
	tl, err := trendlog.Open(ctx, id, state.Capture, m.decoder)
	if err != nil {
		return nil, err
	}
	state.logs[id] = tl
	return tl, nil
}

// TouchSession updates the LastAccessed timestamp of a loaded capture.
func (m *Manager) TouchSession(fileID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[fileID]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// Loaded returns the number of captures held in memory.
func (m *Manager) Loaded() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) loadFromStore(fileID string) (*capture.Capture, error) {
	rc, err := m.store.Open(fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCaptureNotFound, fileID)
	}
	defer rc.Close()

	c, err := capture.Load(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCapture, err)
	}
	return c, nil
}

func (m *Manager) put(info *models.FileInfo, c *capture.Capture) *SessionState {
	m.cleanupOldSessionsIfNeeded()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another request may have loaded it meanwhile
	if state, ok := m.sessions[info.ID]; ok {
		state.LastAccessed = time.Now()
		return state
	}
	state := &SessionState{
		File:         info,
		Capture:      c,
		LastAccessed: time.Now(),
		logs:         make(map[models.ObjectIdentifier]*trendlog.TrendLog),
	}
	m.sessions[info.ID] = state
	return state
}

// cleanupOldSessionsIfNeeded unloads the least recently used captures if at capacity
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.sessions) >= MaxSessions {
		var oldestID string
		var oldest time.Time
		for id, state := range m.sessions {
			if oldestID == "" || state.LastAccessed.Before(oldest) {
				oldestID, oldest = id, state.LastAccessed
			}
		}
		delete(m.sessions, oldestID)
		fmt.Printf("[Session] Unloaded capture %s to free memory\n", shortID(oldestID))
	}
}

// CleanupOldSessions unloads captures not used within maxAge,
// but keeps those accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	removed := 0
	for id, state := range m.sessions {
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
			fmt.Printf("[Session] Unloaded aged capture %s (last accessed: %s ago)\n",
				shortID(id), time.Since(state.LastAccessed).Round(time.Second))
		}
	}
	return removed
}

// StartCleanup runs CleanupOldSessions every interval until ctx is done.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupOldSessions(SessionMaxAge)
			}
		}
	}()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
