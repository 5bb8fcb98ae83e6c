package watcher

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.eventType.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// collector records delivered events
type collector struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newCollector() *collector {
	return &collector{ch: make(chan Event, 64)}
}

func (c *collector) handle(ev Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	c.ch <- ev
}

func (c *collector) wait(t *testing.T, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-c.ch:
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newTestWatcher(t *testing.T, root string, c *collector) *Watcher {
	t.Helper()
	cfg := Config{
		Root:       root,
		Extensions: []string{".py"},
		Settle:     50 * time.Millisecond,
		IgnoreDir: func(p string) bool {
			return filepath.Base(p) == "__pycache__"
		},
	}
	w := New(cfg, discardLogger(), c.handle)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w := New(Config{Root: t.TempDir()}, discardLogger(), nil)
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWatcherStartMissingRoot(t *testing.T) {
	w := New(Config{Root: filepath.Join(t.TempDir(), "missing")}, discardLogger(), nil)
	if err := w.Start(); err == nil {
		t.Error("Start() should fail for a missing root")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWatcherSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"pkg", "pkg/__pycache__", "pkg/sub"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			t.Fatal(err)
		}
	}

	w := newTestWatcher(t, root, newCollector())

	dirs := w.WatchedDirs()
	if len(dirs) != 3 {
		t.Fatalf("WatchedDirs() = %v, want root, pkg, pkg/sub", dirs)
	}
	for _, d := range dirs {
		if strings.Contains(d, "__pycache__") {
			t.Errorf("ignored directory watched: %s", d)
		}
	}
	if w.Stats().WatchedDirs != 3 {
		t.Errorf("Stats().WatchedDirs = %d, want 3", w.Stats().WatchedDirs)
	}
}

func TestWatcherDeliversModify(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "app.py")
	if err := os.WriteFile(p, []byte("a\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c := newCollector()
	newTestWatcher(t, root, c)

	// several writes inside the settle period collapse into one event
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(p, []byte(strings.Repeat("a\n", i+2)), 0644); err != nil {
			t.Fatal(err)
		}
	}

	ev := c.wait(t, 5*time.Second)
	if ev.Path != p {
		t.Errorf("Path = %q, want %q", ev.Path, p)
	}
	if ev.Type != EventModify {
		t.Errorf("Type = %v, want modify", ev.Type)
	}

	time.Sleep(200 * time.Millisecond)
	if n := c.count(); n != 1 {
		t.Errorf("delivered %d events, want 1", n)
	}
}

func TestWatcherFiltersExtensions(t *testing.T) {
	root := t.TempDir()
	c := newCollector()
	w := newTestWatcher(t, root, c)

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "mod.py"), []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ev := c.wait(t, 5*time.Second)
	if filepath.Base(ev.Path) != "mod.py" {
		t.Errorf("Path = %q, want mod.py", ev.Path)
	}

	time.Sleep(200 * time.Millisecond)
	if n := c.count(); n != 1 {
		t.Errorf("delivered %d events, want 1", n)
	}
	if w.Stats().Delivered != 1 {
		t.Errorf("Stats().Delivered = %d, want 1", w.Stats().Delivered)
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	c := newCollector()
	w := newTestWatcher(t, root, c)

	sub := filepath.Join(root, "newpkg")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		found := false
		for _, d := range w.WatchedDirs() {
			if d == sub {
				found = true
			}
		}
		if found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("new directory was not watched")
		}
		time.Sleep(10 * time.Millisecond)
	}

	p := filepath.Join(sub, "inner.py")
	if err := os.WriteFile(p, []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ev := c.wait(t, 5*time.Second)
	if ev.Path != p {
		t.Errorf("Path = %q, want %q", ev.Path, p)
	}
}

// Debouncer tests

func TestDebouncerTrigger(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called int
	var last int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		i := i
		d.Trigger("a.py", func() {
			mu.Lock()
			called++
			last = i
			mu.Unlock()
		})
		time.Sleep(10 * time.Millisecond)
	}

	// Wait for debounce to complete
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if called != 1 {
		t.Errorf("Function should be called once, got %d", called)
	}
	if last != 4 {
		t.Errorf("latest function should win, got trigger %d", last)
	}
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var mu sync.Mutex
	seen := make(map[string]int)
	for _, key := range []string{"a.py", "b.py", "a.py"} {
		key := key
		d.Trigger(key, func() {
			mu.Lock()
			seen[key]++
			mu.Unlock()
		})
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if seen["a.py"] != 1 || seen["b.py"] != 1 {
		t.Errorf("seen = %v, want one call per key", seen)
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called bool
	var mu sync.Mutex

	d.Trigger("a.py", func() {
		mu.Lock()
		called = true
		mu.Unlock()
	})

	// Cancel before debounce completes
	if !d.Cancel("a.py") {
		t.Error("Cancel() = false for a pending key")
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	if called {
		t.Error("Function should not be called after cancel")
	}
	mu.Unlock()

	if d.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", d.Pending())
	}
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var called bool
	var mu sync.Mutex
	fn := func() {
		mu.Lock()
		called = true
		mu.Unlock()
	}

	d.Trigger("a.py", fn)
	d.Stop()
	d.Trigger("b.py", fn)

	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if called {
		t.Error("nothing should run after Stop")
	}
}

func TestDebouncerCancelNoPending(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	if d.Cancel("missing") {
		t.Error("Cancel() = true for a key that was never triggered")
	}
}

func TestWatcherRemoveDropsSettlingEdit(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "app.py")
	if err := os.WriteFile(p, []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c := newCollector()
	w := New(Config{Root: root, Extensions: []string{".py"}, Settle: 300 * time.Millisecond},
		discardLogger(), c.handle)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })

	if err := os.WriteFile(p, []byte("x = 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// let the write event reach the debouncer before removing
	deadline := time.Now().Add(2 * time.Second)
	for w.Stats().Pending == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}

	time.Sleep(600 * time.Millisecond)

	if n := c.count(); n != 0 {
		t.Errorf("delivered %d events for a removed file, want 0", n)
	}
	stats := w.Stats()
	if stats.Pending != 0 {
		t.Errorf("Pending = %d, want 0", stats.Pending)
	}
	if stats.Delivered != 0 {
		t.Errorf("Delivered = %d, want 0", stats.Delivered)
	}
}
