package index

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/renewer/internal/models"
	"github.com/starford/renewer/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "renewer-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testCache(t *testing.T) (*Cache, *storage.FS, *DB) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewCache(db, store, logger), store, db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files`).Scan(&count); err != nil {
		t.Fatalf("files table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := FileRow{Path: "hello.md", Checksum: "abc123", IsNote: true, UpdatedAt: time.Now()}
	if err := db.UpsertFile(row, []models.LinkRef{{Original: "[o](other.md)", Link: "other.md", Kind: models.LinkMarkdown, Target: "other.md"}}); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
	links, err := db.Links("hello.md")
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if len(links) != 1 || links[0].Target != "other.md" || links[0].Kind != models.LinkMarkdown {
		t.Errorf("links = %+v", links)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	link := []models.LinkRef{{Original: "[b](b.md)", Link: "b.md", Kind: models.LinkMarkdown, Target: "b.md"}}
	_ = db.UpsertFile(FileRow{Path: "a.md", Checksum: "1", IsNote: true}, link)
	_ = db.UpsertFile(FileRow{Path: "c.md", Checksum: "2", IsNote: true}, append(link, link...))

	bl, err := db.Backlinks("b.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 {
		t.Fatalf("expected 2 distinct backlinks, got %v", bl)
	}
}

func TestDeleteFile(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFile(FileRow{Path: "del.md", Checksum: "x", IsNote: true},
		[]models.LinkRef{{Original: "[t](target.md)", Link: "target.md", Target: "target.md"}})

	if err := db.DeleteFile("del.md"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted file still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("target.md")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestPathsByName_ShortestFirst(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFile(FileRow{Path: "deep/er/Pic.png", Checksum: "1"}, nil)
	_ = db.UpsertFile(FileRow{Path: "a/pic.png", Checksum: "2"}, nil)

	paths, err := db.PathsByName("PIC.png")
	if err != nil {
		t.Fatalf("PathsByName: %v", err)
	}
	if len(paths) != 2 || paths[0] != "a/pic.png" {
		t.Errorf("paths = %v", paths)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestFirstLinkpathDest(t *testing.T) {
	cache, store, _ := testCache(t)
	_ = store.Write("notes/a.md", []byte("a"))
	_ = store.Write("notes/my note.md", []byte("b"))
	_ = store.Write("top.md", []byte("t"))
	_ = store.Write("assets/img/pic.png", []byte("png"))
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if err := Sync(cache, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	cases := []struct {
		link, source, want string
		ok                 bool
	}{
		{"a.md", "notes/x.md", "notes/a.md", true},
		{"my%20note.md#Heading", "notes/x.md", "notes/my note.md", true},
		{"a", "notes/x.md", "notes/a.md", true},
		{"top.md", "notes/x.md", "top.md", true},
		{"/notes/a.md", "elsewhere/x.md", "notes/a.md", true},
		{"img/pic.png", "notes/x.md", "assets/img/pic.png", true},
		{"../../img/pic.png", "notes/x.md", "assets/img/pic.png", true},
		{"gone/pic.png", "notes/x.md", "", false},
		{"elsewhere/a.md", "top.md", "", false},
		{"https://example.com/a.md", "notes/x.md", "", false},
		{"#only-anchor", "notes/x.md", "", false},
		{"missing.md", "notes/x.md", "", false},
	}
	for _, c := range cases {
		got, ok := cache.FirstLinkpathDest(c.link, c.source)
		if got != c.want || ok != c.ok {
			t.Errorf("FirstLinkpathDest(%q, %q) = (%q, %v), want (%q, %v)", c.link, c.source, got, ok, c.want, c.ok)
		}
	}
}

func TestLinkpathDest_SourcesRelativeFirst(t *testing.T) {
	cache, store, _ := testCache(t)
	_ = store.Write("archive/proj/b.md", []byte("b"))
	_ = store.Write("b.md", []byte("root"))
	_ = store.Write("other/b.md", []byte("other"))
	if err := Sync(cache, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	// The previous location has no b.md; the current one does.
	got, ok := cache.LinkpathDest("b.md", "proj/a.md", "archive/proj/a.md")
	if !ok || got != "archive/proj/b.md" {
		t.Errorf("LinkpathDest = (%q, %v), want archive/proj/b.md", got, ok)
	}

	got, ok = cache.LinkpathDest("b.md", "none/a.md")
	if !ok || got != "b.md" {
		t.Errorf("LinkpathDest = (%q, %v), want vault root b.md", got, ok)
	}
}

func TestFileLinks_ReindexesChangedNote(t *testing.T) {
	cache, store, db := testCache(t)
	_ = store.Write("b.md", []byte("b"))
	_ = store.Write("a.md", []byte("[b](b.md)"))

	links, err := cache.FileLinks("a.md")
	if err != nil {
		t.Fatalf("FileLinks: %v", err)
	}
	if len(links) != 1 || links[0].Target != "b.md" {
		t.Fatalf("links = %+v", links)
	}
	bl, _ := db.Backlinks("b.md")
	if len(bl) != 1 || bl[0] != "a.md" {
		t.Errorf("backlinks = %v", bl)
	}

	_ = store.Write("a.md", []byte("no links now"))
	links, err = cache.FileLinks("a.md")
	if err != nil {
		t.Fatalf("FileLinks: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("links = %+v, want none", links)
	}
	bl, _ = db.Backlinks("b.md")
	if len(bl) != 0 {
		t.Errorf("backlinks after edit = %v", bl)
	}
}

func TestSync_RemovesStale(t *testing.T) {
	cache, store, db := testCache(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	_ = store.Write("keep.md", []byte("k"))
	_ = store.Write("drop.png", []byte("d"))
	if err := Sync(cache, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	_ = store.Delete("drop.png")
	if err := Sync(cache, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	all, _ := db.AllChecksums()
	if _, ok := all["drop.png"]; ok {
		t.Error("stale attachment still indexed")
	}
	if _, ok := all["keep.md"]; !ok {
		t.Error("note missing from index")
	}
}

func TestTakePending(t *testing.T) {
	now := time.Now()
	pending := []pendingRename{
		{old: "a/x.md", at: now},
		{old: "a/y.md", at: now},
		{old: "old/dir", dir: true, at: now},
		{old: "stale.md", at: now.Add(-2 * renamePairWindow)},
	}

	old, rest, ok := takePending(pending, "b/y.md", false, now)
	if !ok || old != "a/y.md" {
		t.Fatalf("same-basename match = (%q, %v)", old, ok)
	}
	if len(rest) != 2 {
		t.Fatalf("rest = %+v, want expired and matched entries dropped", rest)
	}

	if _, _, ok := takePending([]pendingRename{{old: "a/x.md", at: now}, {old: "a/z.md", at: now}}, "b/q.md", false, now); ok {
		t.Error("ambiguous rename must not pair")
	}

	old, _, ok = takePending([]pendingRename{{old: "a/x.md", at: now}}, "b/renamed.md", false, now)
	if !ok || old != "a/x.md" {
		t.Errorf("lone pending rename = (%q, %v)", old, ok)
	}

	old, _, ok = takePending(rest, "new/dir", true, now)
	if !ok || old != "old/dir" {
		t.Errorf("dir match = (%q, %v)", old, ok)
	}
}
