package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

// stores returns every Store implementation under test, so the contract
// tests run against each.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"mem":    NewMemStore(),
		"sqlite": sqlite,
	}
}

func recvRecord(t *testing.T, ch <-chan Record) Record {
	t.Helper()
	select {
	case rec, ok := <-ch:
		if !ok {
			t.Fatal("stream closed unexpectedly")
		}
		return rec
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for record")
		return Record{}
	}
}

func TestStoreSaveAssignsIdentity(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			err := store.Save(ctx, Record{
				DeviceID: "AA:BB:CC:DD:EE:FF",
				Address:  "192.168.1.44:80",
				Name:     "Controller-AA11",
			})
			if err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := store.Get(ctx, "AA:BB:CC:DD:EE:FF")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.ID == uuid.Nil {
				t.Error("ID was not assigned")
			}
			if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
				t.Error("timestamps were not assigned")
			}
			if got.Address != "192.168.1.44:80" {
				t.Errorf("Address = %q, want \"192.168.1.44:80\"", got.Address)
			}
			if got.Configured {
				t.Error("Configured should default to false")
			}
		})
	}
}

func TestStoreSaveRejectsEmptyDeviceID(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Save(context.Background(), Record{Address: "10.0.0.1:80"})
			if !errors.Is(err, ErrEmptyDeviceID) {
				t.Errorf("Save() error = %v, want ErrEmptyDeviceID", err)
			}
		})
	}
}

// TestStoreUpsertKeepsIdentity verifies that re-saving the same device
// updates the existing record instead of creating a second one.
func TestStoreUpsertKeepsIdentity(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const deviceID = "AA:BB:CC:DD:EE:FF"

			if err := store.Save(ctx, Record{DeviceID: deviceID, Address: "192.168.1.44:80"}); err != nil {
				t.Fatalf("first Save: %v", err)
			}
			first, err := store.Get(ctx, deviceID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}

			if err := store.Save(ctx, Record{
				DeviceID:   deviceID,
				Address:    "192.168.1.90:80",
				Configured: true,
			}); err != nil {
				t.Fatalf("second Save: %v", err)
			}

			got, err := store.Get(ctx, deviceID)
			if err != nil {
				t.Fatalf("Get after update: %v", err)
			}
			if got.ID != first.ID {
				t.Errorf("ID changed on upsert: %v -> %v", first.ID, got.ID)
			}
			if !got.CreatedAt.Equal(first.CreatedAt) {
				t.Errorf("CreatedAt changed on upsert: %v -> %v", first.CreatedAt, got.CreatedAt)
			}
			if got.Address != "192.168.1.90:80" {
				t.Errorf("Address = %q, want the updated one", got.Address)
			}
			if !got.Configured {
				t.Error("Configured was not updated")
			}
		})
	}
}

func TestStoreGetMissing(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "absent")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const deviceID = "11:22:33:44:55:66"

			if err := store.Save(ctx, Record{DeviceID: deviceID, Address: "10.0.0.2:80"}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := store.Delete(ctx, deviceID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := store.Get(ctx, deviceID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
			}
			// Deleting an absent record is not an error.
			if err := store.Delete(ctx, deviceID); err != nil {
				t.Errorf("second Delete: %v", err)
			}
		})
	}
}

func TestStoreStreamSnapshotThenUpdates(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := store.Save(ctx, Record{DeviceID: "aa", Address: "10.0.0.1:80"}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := store.Save(ctx, Record{DeviceID: "bb", Address: "10.0.0.2:80"}); err != nil {
				t.Fatalf("Save: %v", err)
			}

			ch, err := store.Stream(ctx, "")
			if err != nil {
				t.Fatalf("Stream: %v", err)
			}

			snapshot := make(map[string]bool)
			snapshot[recvRecord(t, ch).DeviceID] = true
			snapshot[recvRecord(t, ch).DeviceID] = true
			if !snapshot["aa"] || !snapshot["bb"] {
				t.Errorf("snapshot = %v, want both aa and bb", snapshot)
			}

			if err := store.Save(ctx, Record{DeviceID: "cc", Address: "10.0.0.3:80"}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if got := recvRecord(t, ch); got.DeviceID != "cc" {
				t.Errorf("update DeviceID = %q, want \"cc\"", got.DeviceID)
			}

			cancel()
			select {
			case _, ok := <-ch:
				if ok {
					// A buffered update may still flush; drain until close.
					for range ch {
					}
				}
			case <-time.After(5 * time.Second):
				t.Error("stream did not close after cancellation")
			}
		})
	}
}

func TestStoreStreamOwnerFilter(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := store.Save(ctx, Record{DeviceID: "aa", OwnerID: "alice", Address: "10.0.0.1:80"}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := store.Save(ctx, Record{DeviceID: "bb", OwnerID: "bob", Address: "10.0.0.2:80"}); err != nil {
				t.Fatalf("Save: %v", err)
			}

			ch, err := store.Stream(ctx, "alice")
			if err != nil {
				t.Fatalf("Stream: %v", err)
			}

			if got := recvRecord(t, ch); got.DeviceID != "aa" {
				t.Errorf("snapshot DeviceID = %q, want \"aa\"", got.DeviceID)
			}

			// Another owner's save must not reach this stream; the next
			// delivery is alice's own update.
			if err := store.Save(ctx, Record{DeviceID: "bb", OwnerID: "bob", Address: "10.0.0.9:80"}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := store.Save(ctx, Record{DeviceID: "aa", OwnerID: "alice", Address: "10.0.0.7:80"}); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got := recvRecord(t, ch)
			if got.DeviceID != "aa" || got.Address != "10.0.0.7:80" {
				t.Errorf("update = %+v, want alice's updated record", got)
			}
		})
	}
}

// TestSQLiteStoreReopen verifies records survive a close/reopen cycle
// and migrations are not re-applied.
func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.Save(ctx, Record{DeviceID: "aa", Address: "10.0.0.1:80", Configured: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "aa")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Address != "10.0.0.1:80" || !got.Configured {
		t.Errorf("record after reopen = %+v", got)
	}
}

func TestSQLiteStoreInvalidPath(t *testing.T) {
	if _, err := NewSQLiteStore("/nonexistent/dir/registry.db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}
