package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"stays_observer/models"
)

// SnapshotKV is the durable key/value backend a snapshot lives in.
type SnapshotKV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// SnapshotSink receives every snapshot after it is persisted.
type SnapshotSink interface {
	Publish(ctx context.Context, snap *models.Snapshot) error
}

// Migration rewrites a stored document from one schema version to a newer
// one. The returned document must carry its new version.
type Migration func(raw []byte) ([]byte, error)

const maxMigrationSteps = 16

type SnapshotStore struct {
	kv         SnapshotKV
	key        string
	migrations map[int]Migration
	log        *zap.SugaredLogger
}

func NewSnapshotStore(kv SnapshotKV, key string, logger *zap.SugaredLogger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SnapshotStore{
		kv:         kv,
		key:        key,
		migrations: make(map[int]Migration),
		log:        logger,
	}
}

// RegisterMigration adds an upgrade step for documents stored at version from.
func (s *SnapshotStore) RegisterMigration(from int, m Migration) {
	s.migrations[from] = m
}

func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// Load returns the stored snapshot, or nil when none is usable. Documents
// with an unknown version or a broken shape are deleted.
func (s *SnapshotStore) Load(ctx context.Context) (*models.Snapshot, error) {
	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if !found {
		return nil, nil
	}

	snap, reason := s.decode(raw)
	if snap == nil {
		s.log.Warnw("discarding stored snapshot", "reason", reason)
		if err := s.kv.Delete(ctx, s.key); err != nil {
			s.log.Warnw("failed to delete snapshot", "error", err)
		}
		return nil, nil
	}
	return snap, nil
}

func (s *SnapshotStore) decode(raw []byte) (*models.Snapshot, string) {
	for step := 0; ; step++ {
		if !gjson.ValidBytes(raw) {
			return nil, "invalid json"
		}
		version := gjson.GetBytes(raw, "version")
		if version.Type != gjson.Number {
			return nil, "missing version"
		}
		v := int(version.Int())
		if v == models.SnapshotVersion {
			break
		}
		m, ok := s.migrations[v]
		if !ok || step >= maxMigrationSteps {
			return nil, fmt.Sprintf("unsupported version %d", v)
		}
		next, err := m(raw)
		if err != nil {
			return nil, fmt.Sprintf("migrate from version %d: %v", v, err)
		}
		raw = next
	}

	doc := gjson.ParseBytes(raw)
	if !doc.Get("bookings").IsArray() || !doc.Get("listingsMap").IsArray() {
		return nil, "bookings or listingsMap is not an array"
	}
	if doc.Get("timestamp").Type != gjson.Number || doc.Get("lastFetchTime").Type != gjson.Number {
		return nil, "missing timestamps"
	}

	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, "decode: " + err.Error()
	}
	return &snap, ""
}

func (s *SnapshotStore) Save(ctx context.Context, snap *models.Snapshot) error {
	snap.Version = models.SnapshotVersion
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
