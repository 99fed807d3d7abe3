package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/spendlens/spendlens/internal/domain/snapshot"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/pkg/logger"
	"github.com/spendlens/spendlens/internal/pkg/metrics"
)

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// FileStore persists snapshots as one JSON document per name under a
// directory. Writes to the same name are serialized through a per-name lock;
// the write itself goes through a temp file and rename so a crashed writer
// never leaves a torn document behind.
type FileStore struct {
	dir    string
	logger *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore builds a store rooted at dir, creating it if needed.
func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.SnapshotStore(fmt.Sprintf("create snapshot dir %s", dir), err)
	}
	return &FileStore{
		dir:    dir,
		logger: log,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

func (s *FileStore) nameLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func validName(name string) error {
	if name == "" {
		return apperrors.BadRequest("snapshot name is required")
	}
	if !nameRe.MatchString(name) {
		return apperrors.BadRequest(fmt.Sprintf("invalid snapshot name %q", name))
	}
	return nil
}

// Save writes a snapshot under its name. An existing name is rejected with a
// duplicate-name error unless overwrite is set.
func (s *FileStore) Save(ctx context.Context, snap *snapshot.Snapshot, overwrite bool) error {
	if err := validName(snap.Name); err != nil {
		metrics.RecordSnapshotWrite("invalid")
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.nameLock(snap.Name)
	lock.Lock()
	defer lock.Unlock()

	path := s.path(snap.Name)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			metrics.RecordSnapshotWrite("duplicate")
			return apperrors.DuplicateName(snap.Name)
		}
	}

	snap.SchemaVersion = snapshot.SchemaVersion
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		metrics.RecordSnapshotWrite("error")
		return apperrors.SnapshotStore("encode snapshot", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+snap.Name+"-*.tmp")
	if err != nil {
		metrics.RecordSnapshotWrite("error")
		return apperrors.SnapshotStore("create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		metrics.RecordSnapshotWrite("error")
		return apperrors.SnapshotStore("write snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		metrics.RecordSnapshotWrite("error")
		return apperrors.SnapshotStore("close snapshot", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		metrics.RecordSnapshotWrite("error")
		return apperrors.SnapshotStore("rename snapshot", err)
	}

	metrics.RecordSnapshotWrite("ok")
	s.logger.WithFields(map[string]interface{}{
		"name":      snap.Name,
		"provider":  snap.Provider,
		"resources": len(snap.Resources),
	}).Info("snapshot saved")
	return nil
}

// Get loads a snapshot by name.
func (s *FileStore) Get(ctx context.Context, name string) (*snapshot.Snapshot, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, apperrors.NotFound(fmt.Sprintf("snapshot %q", name))
	}
	if err != nil {
		return nil, apperrors.SnapshotStore(fmt.Sprintf("read snapshot %q", name), err)
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, apperrors.SnapshotStore(fmt.Sprintf("decode snapshot %q", name), err)
	}
	if snap.SchemaVersion > snapshot.SchemaVersion {
		return nil, apperrors.SnapshotStore(
			fmt.Sprintf("snapshot %q has schema version %d, newer than this build understands",
				name, snap.SchemaVersion), nil)
	}
	return &snap, nil
}

// List returns every stored snapshot, newest first.
func (s *FileStore) List(ctx context.Context) ([]*snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.SnapshotStore("list snapshots", err)
	}

	var snaps []*snapshot.Snapshot
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		snap, err := s.Get(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			s.logger.Warnf("skipping unreadable snapshot file %s: %v", name, err)
			continue
		}
		snaps = append(snaps, snap)
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CapturedAt.After(snaps[j].CapturedAt)
	})
	return snaps, nil
}

// Delete removes a snapshot by name.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.nameLock(name)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return apperrors.NotFound(fmt.Sprintf("snapshot %q", name))
	}
	if err != nil {
		return apperrors.SnapshotStore(fmt.Sprintf("delete snapshot %q", name), err)
	}
	s.logger.Infof("snapshot %q deleted", name)
	return nil
}
