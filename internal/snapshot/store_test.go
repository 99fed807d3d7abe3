package snapshot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spendlens/spendlens/internal/domain/cost"
	"github.com/spendlens/spendlens/internal/domain/resource"
	"github.com/spendlens/spendlens/internal/domain/snapshot"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func testStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func snap(name string, capturedAt time.Time) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Name:       name,
		CapturedAt: capturedAt,
		Provider:   cost.ProviderAWS,
		Window: cost.Window{
			Start: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
		},
		Resources: []resource.Resource{
			{ID: "i-1", Provider: cost.ProviderAWS, Type: resource.TypeComputeInstance, Cost30d: 50},
		},
		TotalCost: 50,
	}
}

func TestFileStore_SaveGetRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	captured := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Save(ctx, snap("july", captured), false); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(ctx, "july")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.SchemaVersion != snapshot.SchemaVersion {
		t.Errorf("schema_version = %d, want %d", got.SchemaVersion, snapshot.SchemaVersion)
	}
	if got.Name != "july" || got.TotalCost != 50 || len(got.Resources) != 1 {
		t.Errorf("round trip lost data: %+v", got)
	}
	if !got.CapturedAt.Equal(captured) {
		t.Errorf("captured_at = %v, want %v", got.CapturedAt, captured)
	}
}

func TestFileStore_DuplicateName(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.Save(ctx, snap("base", now), false); err != nil {
		t.Fatal(err)
	}

	err := s.Save(ctx, snap("base", now), false)
	if apperrors.Code(err) != apperrors.ErrCodeDuplicateName {
		t.Fatalf("second Save() error = %v, want duplicate name", err)
	}

	updated := snap("base", now)
	updated.TotalCost = 99
	if err := s.Save(ctx, updated, true); err != nil {
		t.Fatalf("Save(overwrite) error = %v", err)
	}
	got, err := s.Get(ctx, "base")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalCost != 99 {
		t.Errorf("overwrite did not replace: total = %v", got.TotalCost)
	}
}

func TestFileStore_InvalidName(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := s.Save(ctx, snap(name, time.Now()), false); err == nil {
			t.Errorf("Save(%q) accepted an invalid name", name)
		}
	}
}

func TestFileStore_GetMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "absent")
	if apperrors.Code(err) != apperrors.ErrCodeNotFound {
		t.Errorf("Get(absent) error = %v, want not found", err)
	}
}

func TestFileStore_ListNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		if err := s.Save(ctx, snap(name, base.Add(time.Duration(i)*time.Hour)), false); err != nil {
			t.Fatal(err)
		}
	}

	snaps, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("List() returned %d snapshots, want 3", len(snaps))
	}
	if snaps[0].Name != "third" || snaps[2].Name != "first" {
		t.Errorf("List() order = %s,%s,%s, want newest first",
			snaps[0].Name, snaps[1].Name, snaps[2].Name)
	}
}

func TestFileStore_Delete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, snap("gone", time.Now()), false); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "gone"); apperrors.Code(err) != apperrors.ErrCodeNotFound {
		t.Errorf("Get() after delete = %v, want not found", err)
	}
	if err := s.Delete(ctx, "gone"); apperrors.Code(err) != apperrors.ErrCodeNotFound {
		t.Errorf("Delete() on missing = %v, want not found", err)
	}
}

func TestFileStore_ConcurrentSavesOneName(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Save(ctx, snap("contended", time.Now()), true)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Save() error = %v", err)
		}
	}

	got, err := s.Get(ctx, "contended")
	if err != nil {
		t.Fatalf("Get() after concurrent saves error = %v", err)
	}
	if got.TotalCost != 50 {
		t.Errorf("document torn by concurrent writers: %+v", got)
	}
}
