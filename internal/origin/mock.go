package origin

import (
	"context"
	"sync"

	"descargo/internal/entity"
)

// Mock is a scripted origin for tests.
type Mock struct {
	// Meta is returned by ExtractMetadata when MetaErr is nil.
	Meta *Metadata
	// MetaErr fails ExtractMetadata.
	MetaErr error
	// DownloadFunc scripts Download. The call counter starts at 1.
	DownloadFunc func(call int, ref entity.MediaReference, formatID, template string) (string, error)

	mu            sync.Mutex
	metaCalls     int
	downloadCalls int
}

var _ Origin = (*Mock)(nil)

// ExtractMetadata returns the scripted metadata.
func (m *Mock) ExtractMetadata(_ context.Context, _ entity.MediaReference) (*Metadata, error) {
	m.mu.Lock()
	m.metaCalls++
	m.mu.Unlock()

	if m.MetaErr != nil {
		return nil, m.MetaErr
	}

	return m.Meta, nil
}

// Download invokes the scripted download function.
func (m *Mock) Download(_ context.Context, ref entity.MediaReference, formatID, template string) (string, error) {
	m.mu.Lock()
	m.downloadCalls++
	call := m.downloadCalls
	m.mu.Unlock()

	if m.DownloadFunc == nil {
		return "", nil
	}

	return m.DownloadFunc(call, ref, formatID, template)
}

// MetaCalls reports how many times ExtractMetadata ran.
func (m *Mock) MetaCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.metaCalls
}

// DownloadCalls reports how many times Download ran.
func (m *Mock) DownloadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.downloadCalls
}
