// Package analyses journals analysis outcomes in a write-ahead log.
package analyses

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/chartsense/internal/domain"
)

const (
	defaultDir        = "./wal/analyses"
	segmentThreshold  = 100
	maxSegments       = 10
	analysisKeyPrefix = "analysis_"
)

var (
	// ErrNotInitialized is returned by every method of a nil or closed store.
	ErrNotInitialized = errors.New("analysis journal is not initialized")
	// ErrMissingID is returned by Save for events without an id.
	ErrMissingID = errors.New("analysis event id is required")
)

// WALStore persists analysis events for streaming and audit.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens or creates the journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "analysis_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init analysis WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends the event at the next index and returns that index.
func (s *WALStore) Save(event domain.AnalysisEvent) (uint64, error) {
	if s == nil {
		return 0, ErrNotInitialized
	}
	if event.ID == "" {
		return 0, ErrMissingID
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return 0, errors.Wrap(err, "marshal analysis event")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wal == nil {
		return 0, ErrNotInitialized
	}

	next := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(next, analysisKeyPrefix+event.ID, payload); err != nil {
		return 0, errors.Wrap(err, "write analysis event")
	}
	return next, nil
}

// EventsAfter returns events written after index, oldest first. Entries that
// were rotated out of the log are skipped.
func (s *WALStore) EventsAfter(index uint64) ([]domain.AnalysisEventRecord, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wal == nil {
		return nil, ErrNotInitialized
	}

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.AnalysisEventRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, ok := s.wal.Get(idx)
		if !ok || !strings.HasPrefix(key, analysisKeyPrefix) {
			continue
		}
		var event domain.AnalysisEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrapf(err, "decode analysis event %d", idx)
		}
		records = append(records, domain.AnalysisEventRecord{Index: idx, Event: event})
	}

	return records, nil
}

// Latest returns up to limit most recent events, oldest first.
func (s *WALStore) Latest(limit int) ([]domain.AnalysisEventRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	current := s.CurrentIndex()
	var from uint64
	if current > uint64(limit) {
		from = current - uint64(limit)
	}
	return s.EventsAfter(from)
}

// CurrentIndex returns the latest index written, 0 for an empty journal.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wal == nil {
		return 0
	}
	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL. Further calls fail with ErrNotInitialized.
func (s *WALStore) Close() error {
	if s == nil {
		return ErrNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wal == nil {
		return ErrNotInitialized
	}
	err := s.wal.Close()
	s.wal = nil
	return err
}
