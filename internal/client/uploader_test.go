package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu       sync.Mutex
	failures map[string]int
	requests []UploadRequest
}

func (f *fakeTransport) UploadMedia(_ context.Context, req UploadRequest, onProgress func(sent, total int64)) (*UploadResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fail := f.failures[req.FileName] > 0
	if fail {
		f.failures[req.FileName]--
	}
	f.mu.Unlock()

	total := int64(len(req.Data))
	onProgress(total/2, total)
	onProgress(total, total)
	if fail {
		return nil, &APIError{Status: 500, Message: "Upload failed"}
	}
	return &UploadResult{Message: "ok", FilePath: "images/" + req.FileName}, nil
}

type fakeConverter struct {
	calls int
	err   error
}

func (c *fakeConverter) ToJPEG(_ context.Context, data []byte) ([]byte, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []byte("\xff\xd8\xff\xe0 fake jpeg"), nil
}

type recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
	refreshes int
}

func (r *recorder) change(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
}

func (r *recorder) refreshCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshes
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		progress []int
		want     int
	}{
		{"empty", nil, 0},
		{"single", []int{95}, 95},
		{"rounds half up", []int{100, 95}, 98},
		{"rounds down", []int{0, 0, 1}, 0},
		{"all done", []int{100, 100, 100}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := make([]FileStatus, len(tt.progress))
			for i, p := range tt.progress {
				files[i].Progress = p
			}
			assert.Equal(t, tt.want, Aggregate(files))
		})
	}
}

func TestPercentIsCapped(t *testing.T) {
	assert.Equal(t, 50, Percent(50, 100, ProgressCeiling))
	assert.Equal(t, 95, Percent(99, 100, ProgressCeiling))
	assert.Equal(t, 95, Percent(100, 100, ProgressCeiling))
	assert.Equal(t, 0, Percent(10, 0, ProgressCeiling))
}

func TestUploaderCompletesClearsAndRefreshes(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.png", []byte("\x89PNG\r\n\x1a\n not really"))
	b := writeFile(t, dir, "b.txt", []byte("hello there"))

	rec := &recorder{}
	transport := &fakeTransport{}
	u := NewUploader(transport, &fakeConverter{}, UploaderOptions{
		Upload:     UploadOptions{ConvertImagesToWebp: true, LimitMaxWidthHeight: 2048},
		ClearDelay: 20 * time.Millisecond,
		OnChange:   rec.change,
		OnRefresh:  rec.refresh,
	})

	require.NoError(t, u.Add(context.Background(), a, b))

	snap := u.Snapshot()
	require.Len(t, snap.Files, 2)
	for _, f := range snap.Files {
		assert.Equal(t, StateCompleted, f.State)
		assert.Equal(t, 100, f.Progress)
	}
	assert.Equal(t, 100, snap.Total)
	assert.Equal(t, 1, rec.refreshCount())

	rec.mu.Lock()
	for _, s := range rec.snapshots {
		for _, f := range s.Files {
			if f.State != StateCompleted {
				assert.LessOrEqual(t, f.Progress, ProgressCeiling)
			}
		}
	}
	rec.mu.Unlock()

	transport.mu.Lock()
	require.Len(t, transport.requests, 2)
	assert.True(t, transport.requests[0].Options.ConvertImagesToWebp)
	transport.mu.Unlock()

	require.Eventually(t, func() bool { return len(u.Snapshot().Files) == 0 },
		time.Second, 5*time.Millisecond, "queue clears after the delay")
	assert.Equal(t, 0, u.Snapshot().Total)
}

func TestUploaderRejectsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	big := writeFile(t, dir, "big.mov", make([]byte, 64))
	small := writeFile(t, dir, "small.txt", []byte("ok"))

	transport := &fakeTransport{}
	u := NewUploader(transport, nil, UploaderOptions{MaxSize: 32, ClearDelay: time.Hour})
	require.NoError(t, u.Add(context.Background(), big, small))

	snap := u.Snapshot()
	require.Len(t, snap.Failed, 1)
	assert.Equal(t, "big.mov", snap.Failed[0].Name)
	assert.Contains(t, snap.Failed[0].Reason, "exceeds")
	require.Len(t, snap.Files, 1)
	assert.Equal(t, "small.txt", snap.Files[0].Name)
	assert.Len(t, transport.requests, 1, "oversized file never leaves the client")
}

func TestUploaderRetry(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "flaky.txt", []byte("payload"))

	transport := &fakeTransport{failures: map[string]int{"flaky.txt": 1}}
	rec := &recorder{}
	u := NewUploader(transport, nil, UploaderOptions{ClearDelay: time.Hour, OnRefresh: rec.refresh})

	require.NoError(t, u.Add(context.Background(), path))
	snap := u.Snapshot()
	require.Len(t, snap.Failed, 1)
	assert.Contains(t, snap.Failed[0].Reason, "Upload failed")
	assert.Empty(t, snap.Files, "failed uploads leave the progress queue")
	assert.Zero(t, rec.refreshCount())

	require.NoError(t, u.Retry(context.Background(), "flaky.txt"))
	snap = u.Snapshot()
	assert.Empty(t, snap.Failed)
	require.Len(t, snap.Files, 1)
	assert.Equal(t, StateCompleted, snap.Files[0].State)
	assert.Equal(t, 1, rec.refreshCount())

	assert.Error(t, u.Retry(context.Background(), "never-failed.txt"))
}

func TestUploaderConvertsHEIC(t *testing.T) {
	dir := t.TempDir()
	heic := append([]byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00mif1heic"), make([]byte, 32)...)
	path := writeFile(t, dir, "IMG_0001.HEIC", heic)

	transport := &fakeTransport{}
	conv := &fakeConverter{}
	u := NewUploader(transport, conv, UploaderOptions{ClearDelay: time.Hour})
	require.NoError(t, u.Add(context.Background(), path))

	assert.Equal(t, 1, conv.calls)
	require.Len(t, transport.requests, 1)
	assert.Equal(t, "IMG_0001.jpg", transport.requests[0].FileName)
	assert.Equal(t, "image/jpeg", transport.requests[0].ContentType)

	conv.err = errors.New("magick exploded")
	require.NoError(t, u.Add(context.Background(), path))
	snap := u.Snapshot()
	require.Len(t, snap.Failed, 1)
	assert.Contains(t, snap.Failed[0].Reason, "conversion failed")
}
