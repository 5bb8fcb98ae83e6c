package detect

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linewatch/internal/records"
	"linewatch/internal/slogutil"
)

type fixture struct {
	root  string
	path  string
	store *records.Store
	det   *Detector
	t0    time.Time
}

func newFixture(t *testing.T, armOnLoad bool) *fixture {
	t.Helper()
	root := t.TempDir()
	p := filepath.Join(root, "app.py")
	require.NoError(t, os.WriteFile(p, []byte("a\nb\n"), 0644))

	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	store := records.NewStore(records.StoreOptions{
		Clock:     func() time.Time { return t0 },
		ArmOnLoad: armOnLoad,
	}, slogutil.NewDiscardLogger())

	det := New(store, Options{
		Root:   root,
		Window: time.Second,
		Ignore: NewIgnoreMatcher([]string{"__pycache__/**", "*.pyc"}),
	}, slogutil.NewDiscardLogger())

	return &fixture{root: root, path: p, store: store, det: det, t0: t0}
}

func (f *fixture) track(t *testing.T) {
	t.Helper()
	rec, err := f.store.Load(f.path)
	require.NoError(t, err)
	f.store.Put(rec)
}

func TestEvaluateUnseenPathAccepted(t *testing.T) {
	f := newFixture(t, false)

	d := f.det.Evaluate(f.path, f.t0)
	assert.Equal(t, Accept, d.Verdict)
	assert.True(t, f.det.ShouldProcess(f.path, f.t0))
}

func TestEvaluateIgnored(t *testing.T) {
	f := newFixture(t, false)
	dir := filepath.Join(f.root, "__pycache__")
	require.NoError(t, os.MkdirAll(dir, 0755))
	p := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(p, []byte("x\n"), 0644))

	assert.Equal(t, RejectIgnored, f.det.Evaluate(p, f.t0).Verdict)
	assert.True(t, f.det.IsIgnoredDir(dir))
	assert.False(t, f.det.IsIgnoredDir(f.root))
}

func TestIgnoreMatchesThroughSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	realDir := filepath.Join(base, "src")
	build := filepath.Join(realDir, "build")
	require.NoError(t, os.MkdirAll(build, 0755))
	gen := filepath.Join(build, "gen.py")
	require.NoError(t, os.WriteFile(gen, []byte("x\n"), 0644))
	link := filepath.Join(base, "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	store := records.NewStore(records.StoreOptions{}, slogutil.NewDiscardLogger())
	ignore := NewIgnoreMatcher([]string{"build/*.py"})

	// root named through the link, event reported under the real tree
	det := New(store, Options{Root: link, Ignore: ignore}, slogutil.NewDiscardLogger())
	assert.True(t, det.IsIgnored(gen))
	assert.True(t, det.IsIgnored(filepath.Join(link, "build", "gen.py")))
	assert.False(t, det.IsIgnored(filepath.Join(realDir, "app.py")))
	assert.Equal(t, RejectIgnored, det.Evaluate(gen, time.Now()).Verdict)

	// real root, event reported through the link
	det = New(store, Options{Root: realDir, Ignore: ignore}, slogutil.NewDiscardLogger())
	assert.True(t, det.IsIgnored(filepath.Join(link, "build", "gen.py")))
	assert.True(t, det.IsIgnored(filepath.Join(link, "build", "removed.py")))
}

func TestEvaluateMissing(t *testing.T) {
	f := newFixture(t, false)
	f.track(t)
	require.NoError(t, os.Remove(f.path))

	assert.Equal(t, RejectMissing, f.det.Evaluate(f.path, f.t0.Add(time.Hour)).Verdict)
	assert.Equal(t, RejectMissing, f.det.Evaluate(f.root, f.t0).Verdict)
}

func TestEvaluateDebounceWindow(t *testing.T) {
	f := newFixture(t, false)
	f.track(t)

	d := f.det.Evaluate(f.path, f.t0.Add(300*time.Millisecond))
	assert.Equal(t, RejectDebounced, d.Verdict)
	assert.Equal(t, 700*time.Millisecond, d.RetryAfter)

	d = f.det.Evaluate(f.path, f.t0.Add(time.Second))
	assert.True(t, d.Accepted())
	assert.Zero(t, d.RetryAfter)
}

func TestEvaluateArmedConsumedOnce(t *testing.T) {
	f := newFixture(t, true)
	f.track(t)
	later := f.t0.Add(5 * time.Second)

	assert.Equal(t, RejectArmed, f.det.Evaluate(f.path, later).Verdict)
	assert.Equal(t, Accept, f.det.Evaluate(f.path, later).Verdict)

	rec, ok := f.store.Get(f.path)
	require.True(t, ok)
	assert.False(t, rec.Armed)
}

func TestEvaluateDoesNotMutateRecord(t *testing.T) {
	f := newFixture(t, false)
	f.track(t)
	before, _ := f.store.Get(f.path)

	f.det.Evaluate(f.path, f.t0.Add(100*time.Millisecond))
	f.det.Evaluate(f.path, f.t0.Add(2*time.Second))

	after, _ := f.store.Get(f.path)
	assert.Equal(t, before, after)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "accept", Accept.String())
	assert.Equal(t, "debounced", RejectDebounced.String())
	assert.Equal(t, "unknown", Verdict(42).String())
}
