package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxFileSize is the client-side ceiling; larger files go to the failed list.
	MaxFileSize int64 = 50 << 20
	// ProgressCeiling is shown until the server confirms the upload.
	ProgressCeiling = 95
	// ClearDelay is how long a finished queue stays visible.
	ClearDelay = 2 * time.Second
)

type State string

const (
	StatePending    State = "pending"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
)

// Transport sends one file; APIClient is the real one.
type Transport interface {
	UploadMedia(ctx context.Context, req UploadRequest, onProgress func(sent, total int64)) (*UploadResult, error)
}

// Converter turns a non-web still (HEIC/HEIF) into JPEG.
type Converter interface {
	ToJPEG(ctx context.Context, data []byte) ([]byte, error)
}

// FileStatus is one tracked file as views render it.
type FileStatus struct {
	Name     string
	State    State
	Progress int
}

// Failure is a file that was rejected or whose upload failed.
type Failure struct {
	Name   string
	Path   string
	Reason string
}

// Snapshot is the whole queue at one instant.
type Snapshot struct {
	Files  []FileStatus
	Failed []Failure
	Total  int
}

type UploaderOptions struct {
	Upload     UploadOptions
	MaxSize    int64
	ClearDelay time.Duration
	// OnChange receives a snapshot after every state or progress change.
	OnChange func(Snapshot)
	// OnRefresh fires once each time aggregate progress reaches 100.
	OnRefresh func()
}

type tracked struct {
	id       int
	name     string
	path     string
	state    State
	progress int
}

// Uploader queues files, converts what browsers cannot show and uploads
// everything concurrently, tracking per-file and aggregate progress.
type Uploader struct {
	transport Transport
	converter Converter
	opts      UploaderOptions

	mu      sync.Mutex
	nextID  int
	files   []*tracked
	failed  []Failure
	flushed bool
	timer   *time.Timer

	notifyMu sync.Mutex
}

func NewUploader(transport Transport, converter Converter, opts UploaderOptions) *Uploader {
	if opts.MaxSize <= 0 {
		opts.MaxSize = MaxFileSize
	}
	if opts.ClearDelay <= 0 {
		opts.ClearDelay = ClearDelay
	}
	return &Uploader{transport: transport, converter: converter, opts: opts}
}

type prepared struct {
	item        *tracked
	contentType string
	data        []byte
}

// Add queues paths and uploads them, returning once every upload has
// settled. Rejected and failed files end up in Snapshot().Failed.
func (u *Uploader) Add(ctx context.Context, paths ...string) error {
	var ready []prepared
	for _, path := range paths {
		p, err := u.prepare(ctx, path)
		if err != nil {
			u.fail(path, err)
			continue
		}
		ready = append(ready, p)
	}
	if len(ready) == 0 {
		u.notify()
		return ctx.Err()
	}

	u.mu.Lock()
	u.stopTimer()
	u.flushed = false
	for _, p := range ready {
		u.files = append(u.files, p.item)
	}
	u.mu.Unlock()
	u.notify()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range ready {
		g.Go(func() error {
			u.upload(gctx, p)
			return nil
		})
	}
	_ = g.Wait()

	u.settle()
	return ctx.Err()
}

// Retry takes a file off the failed list and uploads it again.
func (u *Uploader) Retry(ctx context.Context, name string) error {
	u.mu.Lock()
	idx := slices.IndexFunc(u.failed, func(f Failure) bool { return f.Name == name })
	if idx < 0 {
		u.mu.Unlock()
		return fmt.Errorf("no failed upload named %q", name)
	}
	path := u.failed[idx].Path
	u.failed = slices.Delete(u.failed, idx, idx+1)
	u.mu.Unlock()

	return u.Add(ctx, path)
}

// Snapshot copies the current queue.
func (u *Uploader) Snapshot() Snapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.snapshotLocked()
}

func (u *Uploader) snapshotLocked() Snapshot {
	s := Snapshot{
		Files:  make([]FileStatus, 0, len(u.files)),
		Failed: slices.Clone(u.failed),
	}
	for _, f := range u.files {
		s.Files = append(s.Files, FileStatus{Name: f.name, State: f.state, Progress: f.progress})
	}
	s.Total = Aggregate(s.Files)
	return s
}

// Aggregate is the rounded mean of per-file progress; zero for no files.
func Aggregate(files []FileStatus) int {
	if len(files) == 0 {
		return 0
	}
	sum := 0
	for _, f := range files {
		sum += f.Progress
	}
	n := len(files)
	return (sum*2 + n) / (2 * n)
}

func (u *Uploader) prepare(ctx context.Context, path string) (prepared, error) {
	info, err := os.Stat(path)
	if err != nil {
		return prepared{}, err
	}
	if info.Size() > u.opts.MaxSize {
		return prepared{}, fmt.Errorf("file exceeds %d MB", u.opts.MaxSize>>20)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return prepared{}, err
	}

	name := filepath.Base(path)
	contentType := mimetype.Detect(data).String()
	if isHEIC(contentType) {
		if u.converter == nil {
			return prepared{}, fmt.Errorf("no converter for %s", contentType)
		}
		data, err = u.converter.ToJPEG(ctx, data)
		if err != nil {
			return prepared{}, fmt.Errorf("conversion failed: %w", err)
		}
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
		contentType = "image/jpeg"
	}

	u.mu.Lock()
	u.nextID++
	item := &tracked{id: u.nextID, name: name, path: path, state: StatePending}
	u.mu.Unlock()
	return prepared{item: item, contentType: contentType, data: data}, nil
}

func isHEIC(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/heic", "image/heif", "image/heic-sequence", "image/heif-sequence":
		return true
	}
	return false
}

func (u *Uploader) upload(ctx context.Context, p prepared) {
	u.update(p.item, StateUploading, 0)

	_, err := u.transport.UploadMedia(ctx, UploadRequest{
		FileName:    p.item.name,
		ContentType: p.contentType,
		Data:        p.data,
		Options:     u.opts.Upload,
	}, func(sent, total int64) {
		if sent >= total {
			u.update(p.item, StateProcessing, ProgressCeiling)
			return
		}
		u.update(p.item, StateUploading, Percent(sent, total, ProgressCeiling))
	})
	if err != nil {
		u.mu.Lock()
		u.files = slices.DeleteFunc(u.files, func(f *tracked) bool { return f.id == p.item.id })
		u.failed = append(u.failed, Failure{Name: p.item.name, Path: p.item.path, Reason: err.Error()})
		u.mu.Unlock()
		u.notify()
		return
	}
	u.update(p.item, StateCompleted, 100)
}

func (u *Uploader) update(item *tracked, state State, progress int) {
	u.mu.Lock()
	item.state = state
	item.progress = progress
	u.mu.Unlock()
	u.notify()
}

func (u *Uploader) fail(path string, err error) {
	u.mu.Lock()
	u.failed = append(u.failed, Failure{Name: filepath.Base(path), Path: path, Reason: err.Error()})
	u.mu.Unlock()
}

// settle emits the refresh signal when everything is done and schedules the
// queue to clear after the display delay.
func (u *Uploader) settle() {
	u.mu.Lock()
	done := len(u.files) > 0 && Aggregate(u.snapshotLocked().Files) == 100
	if !done || u.flushed {
		u.mu.Unlock()
		return
	}
	u.flushed = true
	u.stopTimer()
	u.timer = time.AfterFunc(u.opts.ClearDelay, u.clear)
	u.mu.Unlock()

	if u.opts.OnRefresh != nil {
		u.opts.OnRefresh()
	}
}

func (u *Uploader) clear() {
	u.mu.Lock()
	if !u.flushed {
		u.mu.Unlock()
		return
	}
	u.files = nil
	u.timer = nil
	u.mu.Unlock()
	u.notify()
}

func (u *Uploader) stopTimer() {
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
}

func (u *Uploader) notify() {
	if u.opts.OnChange == nil {
		return
	}
	u.notifyMu.Lock()
	defer u.notifyMu.Unlock()
	u.opts.OnChange(u.Snapshot())
}
