package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/markstack/markstack/internal/config"
	"github.com/markstack/markstack/internal/domain"
	"github.com/markstack/markstack/internal/engine"
	"github.com/markstack/markstack/internal/gist"
	"github.com/markstack/markstack/internal/local"
	"github.com/markstack/markstack/internal/logger"
	"github.com/markstack/markstack/internal/meta"
)

// fakeDocumentStore is a one-document in-memory remote. onGet, when set,
// runs after each fetch so tests can interleave work with a sync in flight.
type fakeDocumentStore struct {
	mu     sync.Mutex
	doc    *gist.Document
	nextID int
	onGet  func()
}

func (f *fakeDocumentStore) IsAuthenticated() bool { return true }

func (f *fakeDocumentStore) FindDocument(_ context.Context, marker string) (*gist.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc != nil && strings.Contains(f.doc.Description, marker) {
		h := f.doc.Handle
		return &h, nil
	}
	return nil, nil
}

func (f *fakeDocumentStore) GetDocument(_ context.Context, id string) (*gist.Document, error) {
	f.mu.Lock()
	if f.doc == nil || f.doc.ID != id {
		f.mu.Unlock()
		return nil, &gist.APIError{StatusCode: 404, Message: "not found"}
	}
	files := make(map[string]string, len(f.doc.Files))
	for k, v := range f.doc.Files {
		files[k] = v
	}
	doc := &gist.Document{Handle: f.doc.Handle, Files: files}
	hook := f.onGet
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return doc, nil
}

func (f *fakeDocumentStore) CreateDocument(_ context.Context, description string, files map[string]string) (*gist.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.doc = &gist.Document{
		Handle: gist.Handle{ID: fmt.Sprintf("doc-%d", f.nextID), Description: description},
		Files:  files,
	}
	h := f.doc.Handle
	return &h, nil
}

func (f *fakeDocumentStore) UpdateDocument(_ context.Context, id string, files map[string]string) (*gist.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil || f.doc.ID != id {
		return nil, &gist.APIError{StatusCode: 404, Message: "not found"}
	}
	for k, v := range files {
		f.doc.Files[k] = v
	}
	h := f.doc.Handle
	return &h, nil
}

type fakeSyncState struct {
	mu    sync.Mutex
	docID string
	meta  *domain.SyncMetadata
}

func (f *fakeSyncState) CachedDocumentID(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docID, nil
}

func (f *fakeSyncState) SaveDocumentID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docID = id
	return nil
}

func (f *fakeSyncState) LastMetadata(context.Context) (*domain.SyncMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meta, nil
}

func (f *fakeSyncState) SaveMetadata(_ context.Context, m domain.SyncMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meta = &m
	return nil
}

type fakePersister struct {
	mu    sync.Mutex
	saves int
	last  *domain.Snapshot
}

func (f *fakePersister) SaveSnapshot(_ context.Context, snap *domain.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.last = snap
	return nil
}

func (f *fakePersister) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func newTestScheduler(settings config.Settings) (*SyncScheduler, *fakeDocumentStore, *local.Store, *fakePersister) {
	remote := &fakeDocumentStore{}
	state := &fakeSyncState{}
	localStore := local.New(nil)
	persister := &fakePersister{}
	eng := engine.New(remote, state, "device-a", logger.Nop())
	sched := NewSyncScheduler(eng, localStore, persister, nil, settings, logger.Nop())
	return sched, remote, localStore, persister
}

func remoteSnapshot(t *testing.T, remote *fakeDocumentStore) *domain.Snapshot {
	t.Helper()
	raw, ok := remote.doc.Files["markstack-bookmarks.json"]
	if !ok {
		t.Fatal("remote has no data blob")
	}
	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("remote data blob unreadable: %v", err)
	}
	return &snap
}

func TestSyncNowUploadsAndPersists(t *testing.T) {
	settings := config.DefaultSettings()
	sched, remote, localStore, persister := newTestScheduler(settings)

	localStore.CreateGroup(domain.BookmarkGroup{Name: "Dev"})

	result := sched.SyncNow(context.Background(), domain.TriggerManual)

	if !result.Success || result.Action != domain.ActionUploaded {
		t.Fatalf("result = %+v, want upload success", result)
	}
	if remote.doc == nil {
		t.Fatal("no remote document created")
	}
	snap := remoteSnapshot(t, remote)
	if len(snap.Groups) != 1 || snap.Groups[0].Name != "Dev" {
		t.Errorf("remote snapshot = %+v", snap.Groups)
	}
	if persister.count() != 1 {
		t.Errorf("snapshot persisted %d times, want 1", persister.count())
	}
}

func TestSyncNowAppliesDownload(t *testing.T) {
	settings := config.DefaultSettings()
	sched, remote, localStore, _ := newTestScheduler(settings)

	// Another device already uploaded newer content.
	other := domain.NewSnapshot()
	other.Groups = []domain.BookmarkGroup{{ID: "g1", Name: "Theirs", UpdatedAt: time.Now().Add(time.Hour)}}
	other.LastUpdated = time.Now().Add(time.Hour)
	m := domain.SyncMetadata{
		SchemaVersion: meta.SchemaVersion,
		LastSync:      other.LastUpdated,
		DeviceID:      "device-b",
		SyncCount:     1,
		Checksum:      meta.Checksum(other),
	}
	dataRaw, _ := json.Marshal(other)
	metaRaw, _ := json.Marshal(m)
	if _, err := remote.CreateDocument(context.Background(), engine.DocumentDescription, map[string]string{
		engine.DataFile: string(dataRaw),
		engine.MetaFile: string(metaRaw),
	}); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	result := sched.SyncNow(context.Background(), domain.TriggerStartup)

	if !result.Success || result.Action != domain.ActionDownloaded {
		t.Fatalf("result = %+v, want download success", result)
	}
	snap := localStore.Snapshot()
	if len(snap.Groups) != 1 || snap.Groups[0].Name != "Theirs" {
		t.Errorf("local snapshot after download = %+v", snap.Groups)
	}
}

func TestSyncNowKeepsEditMadeDuringDownload(t *testing.T) {
	settings := config.DefaultSettings()
	sched, remote, localStore, persister := newTestScheduler(settings)

	other := domain.NewSnapshot()
	other.Groups = []domain.BookmarkGroup{{ID: "g1", Name: "Theirs", UpdatedAt: time.Now().Add(time.Hour)}}
	other.LastUpdated = time.Now().Add(time.Hour)
	m := domain.SyncMetadata{
		SchemaVersion: meta.SchemaVersion,
		LastSync:      other.LastUpdated,
		DeviceID:      "device-b",
		SyncCount:     1,
		Checksum:      meta.Checksum(other),
	}
	dataRaw, _ := json.Marshal(other)
	metaRaw, _ := json.Marshal(m)
	if _, err := remote.CreateDocument(context.Background(), engine.DocumentDescription, map[string]string{
		engine.DataFile: string(dataRaw),
		engine.MetaFile: string(metaRaw),
	}); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	// An edit lands while the download is in flight.
	remote.onGet = func() {
		localStore.CreateGroup(domain.BookmarkGroup{ID: "g-mid", Name: "Mid-flight"})
	}

	result := sched.SyncNow(context.Background(), domain.TriggerAuto)

	if !result.Success || result.Action != domain.ActionDownloaded {
		t.Fatalf("result = %+v, want download success", result)
	}
	// The downloaded snapshot must not clobber the concurrent edit; the
	// next sync reconciles the two sides instead.
	snap := localStore.Snapshot()
	if _, ok := snap.Group("g-mid"); !ok {
		t.Fatal("edit made during the sync was discarded")
	}
	if _, ok := snap.Group("g1"); ok {
		t.Error("remote snapshot applied over a concurrently edited local state")
	}
	if persister.count() != 1 {
		t.Errorf("snapshot persisted %d times, want 1", persister.count())
	}
	if _, ok := persister.last.Group("g-mid"); !ok {
		t.Error("persisted snapshot lost the concurrent edit")
	}
}

func TestSyncNowAutoResolvesConflict(t *testing.T) {
	settings := config.DefaultSettings()
	settings.ConflictResolution = "merge"
	sched, remote, localStore, _ := newTestScheduler(settings)

	base := time.Now().Add(-time.Hour)

	// Remote written by another device.
	theirs := domain.NewSnapshot()
	theirs.Groups = []domain.BookmarkGroup{{ID: "g-theirs", Name: "Theirs", UpdatedAt: base}}
	theirs.LastUpdated = base
	m := domain.SyncMetadata{
		SchemaVersion: meta.SchemaVersion,
		LastSync:      base,
		DeviceID:      "device-b",
		SyncCount:     1,
		Checksum:      meta.Checksum(theirs),
	}
	dataRaw, _ := json.Marshal(theirs)
	metaRaw, _ := json.Marshal(m)
	if _, err := remote.CreateDocument(context.Background(), engine.DocumentDescription, map[string]string{
		engine.DataFile: string(dataRaw),
		engine.MetaFile: string(metaRaw),
	}); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	// Local edit newer than remote, but another device was last writer.
	localStore.CreateGroup(domain.BookmarkGroup{ID: "g-mine", Name: "Mine"})

	result := sched.SyncNow(context.Background(), domain.TriggerAuto)

	if !result.Success || result.Action != domain.ActionUploaded {
		t.Fatalf("result = %+v, want the merge upload", result)
	}

	// Both sides survive in local state and on the remote.
	snap := localStore.Snapshot()
	if _, ok := snap.Group("g-mine"); !ok {
		t.Error("local group lost in merge")
	}
	if _, ok := snap.Group("g-theirs"); !ok {
		t.Error("remote group lost in merge")
	}
	uploaded := remoteSnapshot(t, remote)
	if len(uploaded.Groups) != 2 {
		t.Errorf("uploaded snapshot has %d groups, want 2", len(uploaded.Groups))
	}
}

func TestUpdateSettings(t *testing.T) {
	sched, _, _, _ := newTestScheduler(config.DefaultSettings())

	updated := config.DefaultSettings()
	updated.SyncIntervalMinutes = 60
	updated.AutoSync = false
	sched.UpdateSettings(updated)

	if got := sched.Settings(); got != updated {
		t.Errorf("Settings() = %+v, want %+v", got, updated)
	}
}

func TestLoopDebouncesLocalEdits(t *testing.T) {
	settings := config.DefaultSettings()
	settings.SyncOnStartup = false
	settings.DebounceSeconds = 0 // fire on the next tick of the debounce timer
	sched, remote, localStore, _ := newTestScheduler(settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	localStore.CreateGroup(domain.BookmarkGroup{Name: "Dev"})

	deadline := time.After(2 * time.Second)
	for {
		remote.mu.Lock()
		synced := remote.doc != nil
		remote.mu.Unlock()
		if synced {
			return
		}
		select {
		case <-deadline:
			t.Fatal("local edit never triggered a sync")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestLoopCoalescesEditBursts(t *testing.T) {
	settings := config.DefaultSettings()
	settings.SyncOnStartup = false
	settings.DebounceSeconds = 1
	sched, remote, localStore, _ := newTestScheduler(settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	// A burst of edits keeps rearming the debounce timer; the sync that
	// eventually fires must carry the whole burst in one upload.
	for i := 0; i < 3; i++ {
		localStore.CreateGroup(domain.BookmarkGroup{Name: fmt.Sprintf("Group %d", i)})
		time.Sleep(50 * time.Millisecond)
	}

	deadline := time.After(5 * time.Second)
	for {
		remote.mu.Lock()
		doc, created := remote.doc, remote.nextID
		remote.mu.Unlock()
		if doc != nil {
			if created != 1 {
				t.Fatalf("burst created %d documents, want 1", created)
			}
			snap := remoteSnapshot(t, remote)
			if len(snap.Groups) != 3 {
				t.Fatalf("uploaded snapshot has %d groups, want the full burst of 3", len(snap.Groups))
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("edit burst never triggered a sync")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
