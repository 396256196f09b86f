package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ignite/bulletin-sync/internal/config"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

// Run kinds
const (
	KindImport   = "import"
	KindDispatch = "dispatch"
)

// RunEntry is one finished import or dispatch run
type RunEntry struct {
	Kind       string          `json:"kind"`
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Succeeded  bool            `json:"succeeded"`
	Report     json.RawMessage `json:"report"`
}

// NewRunEntry builds an entry, encoding report as JSON
func NewRunEntry(kind, runID string, started, finished time.Time, succeeded bool, report interface{}) (RunEntry, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return RunEntry{}, fmt.Errorf("marshaling report: %w", err)
	}
	return RunEntry{
		Kind:       kind,
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Succeeded:  succeeded,
		Report:     data,
	}, nil
}

// Storage keeps the history of runs and loads record files.
// Recent runs are always cached in memory; Type selects where they persist.
type Storage struct {
	config config.StorageConfig
	mu     sync.RWMutex

	// AWS storage (optional)
	aws    *AWSStorage
	getter ObjectGetter

	recent map[string][]RunEntry // keyed by kind, oldest first
}

// NewWithObjectGetter creates a Storage that reads S3 record sources through
// getter
func NewWithObjectGetter(cfg config.StorageConfig, getter ObjectGetter) *Storage {
	return &Storage{config: cfg, recent: make(map[string][]RunEntry), getter: getter}
}

// New creates a new Storage instance
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	s := &Storage{
		config: cfg,
		recent: make(map[string][]RunEntry),
	}

	switch cfg.Type {
	case "aws":
		awsStorage, err := NewAWSStorage(ctx, cfg.DynamoDBTable, cfg.S3Bucket, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		s.aws = awsStorage

		// Warm the cache with the last day of runs
		now := time.Now()
		for _, kind := range []string{KindImport, KindDispatch} {
			if runs, err := awsStorage.GetRuns(ctx, kind, now.Add(-24*time.Hour), now); err == nil {
				s.recent[kind] = runs
			}
		}

	case "local":
		if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
		if err := s.loadFromDisk(); err != nil {
			// Not fatal
			logger.Warn("could not load run history", "path", cfg.LocalPath, "error", err)
		}
	}

	return s, nil
}

// SaveRun records a finished run in the cache and the configured backend
func (s *Storage) SaveRun(ctx context.Context, entry RunEntry) error {
	s.mu.Lock()
	runs := append(s.recent[entry.Kind], entry)
	if limit := s.limit(); len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}
	s.recent[entry.Kind] = runs
	s.mu.Unlock()

	switch s.config.Type {
	case "aws":
		if err := s.aws.SaveRunToDynamoDB(ctx, entry); err != nil {
			return err
		}
		key := fmt.Sprintf("runs/%s/%s/%s.json", entry.Kind, entry.StartedAt.UTC().Format("2006/01/02"), entry.RunID)
		return s.aws.SaveToS3(ctx, key, entry)
	case "local":
		return s.saveToFile(entry.Kind, entry.RunID, entry)
	}
	return nil
}

// RecentRuns returns up to limit runs of kind, newest first
func (s *Storage) RecentRuns(kind string, limit int) []RunEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.recent[kind]
	if limit <= 0 || limit > len(runs) {
		limit = len(runs)
	}
	out := make([]RunEntry, 0, limit)
	for i := len(runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, runs[i])
	}
	return out
}

func (s *Storage) limit() int {
	if s.config.HistoryLimit > 0 {
		return s.config.HistoryLimit
	}
	return 50
}

// saveToFile saves data to a JSON file
func (s *Storage) saveToFile(category, key string, data interface{}) error {
	dir := filepath.Join(s.config.LocalPath, "runs", category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Sanitize key for filename
	safeKey := filepath.Base(key)
	path := filepath.Join(dir, safeKey+".json")

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// loadFromDisk loads existing run history from disk
func (s *Storage) loadFromDisk() error {
	root := filepath.Join(s.config.LocalPath, "runs")
	kinds, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, kind := range kinds {
		if !kind.IsDir() {
			continue
		}
		dir := filepath.Join(root, kind.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		var runs []RunEntry
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}
			var run RunEntry
			if err := json.Unmarshal(data, &run); err == nil {
				runs = append(runs, run)
			}
		}
		sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
		if limit := s.limit(); len(runs) > limit {
			runs = runs[len(runs)-limit:]
		}
		s.recent[kind.Name()] = runs
	}
	return nil
}
