// Package upload validates, sequences and uploads a bounded batch of files
// one at a time, tolerating individual failures, and persists the resulting
// identifiers as a resumable queue for the downstream per-document workflow.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"docvault/internal/config"
	"docvault/internal/domain"
	"docvault/internal/domain/models"
)

// Uploader is the single API call the orchestrator needs
type Uploader interface {
	UploadFile(ctx context.Context, filename string, r io.Reader) (int, error)
}

// QueueStore persists the completed batch for the downstream workflow
type QueueStore interface {
	Save(ctx context.Context, q *models.UploadQueue) error
}

// File is one candidate for the batch. Open defers reading until the
// file's turn in the sequence.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FromPath builds a File backed by the local filesystem
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	return File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Callbacks reports progress to the UI layer
type Callbacks struct {
	OnProgress func(current, total int, filename string)
	OnSuccess  func(files []File)
	OnError    func(message string)
}

// Result is the outcome of a confirmed batch
type Result struct {
	// DocumentIDs holds one identifier per successfully uploaded file,
	// in upload order
	DocumentIDs []int
	// Failed lists the filenames whose upload was skipped after an error
	Failed []string
}

// Orchestrator owns the pending selection and runs confirmed batches.
// Files upload strictly sequentially - one in flight at a time - trading
// throughput for predictable progress and bounded server load.
type Orchestrator struct {
	uploader  Uploader
	store     QueueStore
	policy    config.UploadPolicy
	callbacks Callbacks
	logger    *slog.Logger

	mu        sync.Mutex
	selected  []File
	uploading bool
}

func New(uploader Uploader, store QueueStore, policy config.UploadPolicy, callbacks Callbacks, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		uploader:  uploader,
		store:     store,
		policy:    policy,
		callbacks: callbacks,
		logger:    logger,
	}
}

// Select validates candidates against the upload policy and adds the
// acceptable ones to the pending batch. Rejections are collected into one
// explanatory error (and OnError message) rather than silently dropped.
func (o *Orchestrator) Select(files ...File) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	available := o.policy.MaxFiles - len(o.selected)
	if available <= 0 {
		msg := fmt.Sprintf("maximum %d files allowed, please remove some files first", o.policy.MaxFiles)
		o.reportError(msg)
		return &domain.ValidationError{Message: msg}
	}

	var errs []string
	if len(files) > available {
		errs = append(errs, fmt.Sprintf("only %d more file(s) can be added (max %d)", available, o.policy.MaxFiles))
		files = files[:available]
	}

	for _, f := range files {
		if reason := o.rejectLocked(f); reason != "" {
			errs = append(errs, fmt.Sprintf("%s: %s", f.Name, reason))
			continue
		}
		o.selected = append(o.selected, f)
	}

	if len(errs) > 0 {
		msg := strings.Join(errs, "\n")
		o.reportError(msg)
		return &domain.ValidationError{Message: msg}
	}
	return nil
}

// rejectLocked returns a human-readable reason when the file violates the
// policy, or "" when it is acceptable.
func (o *Orchestrator) rejectLocked(f File) string {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !o.policy.Accepts(ext) {
		return "invalid file type"
	}
	if f.Size > o.policy.MaxFileSize {
		return fmt.Sprintf("exceeds %dMB limit", o.policy.MaxFileSize/(1024*1024))
	}
	for _, existing := range o.selected {
		if existing.Name == f.Name && existing.Size == f.Size {
			return "already added"
		}
	}
	return ""
}

// Selected returns a copy of the pending batch
func (o *Orchestrator) Selected() []File {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]File, len(o.selected))
	copy(out, o.selected)
	return out
}

// Remove drops one file from the pending batch by index
func (o *Orchestrator) Remove(i int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i < 0 || i >= len(o.selected) {
		return
	}
	o.selected = append(o.selected[:i], o.selected[i+1:]...)
}

// Clear empties the pending selection
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.uploading {
		return
	}
	o.selected = nil
}

// Cancel abandons the pending batch. It only applies before Confirm
// begins: it has no effect on a batch already uploading.
func (o *Orchestrator) Cancel() {
	o.Clear()
}

// Confirm uploads the pending batch strictly sequentially. A single file's
// failure is logged and skipped; only a batch where every file fails is an
// overall failure. On success the identifiers are persisted once,
// atomically, as the resumable queue, and the selection is cleared.
func (o *Orchestrator) Confirm(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.uploading {
		o.mu.Unlock()
		return nil, &domain.ValidationError{Message: "an upload is already in progress"}
	}
	if len(o.selected) == 0 {
		o.mu.Unlock()
		msg := "please select at least one file"
		o.reportError(msg)
		return nil, &domain.ValidationError{Message: msg}
	}
	if len(o.selected) < o.policy.MinFiles {
		o.mu.Unlock()
		msg := fmt.Sprintf("please select at least %d file(s)", o.policy.MinFiles)
		o.reportError(msg)
		return nil, &domain.ValidationError{Message: msg}
	}
	batch := make([]File, len(o.selected))
	copy(batch, o.selected)
	o.uploading = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.uploading = false
		o.mu.Unlock()
	}()

	result := &Result{}
	total := len(batch)

	for i, f := range batch {
		if o.callbacks.OnProgress != nil {
			o.callbacks.OnProgress(i+1, total, f.Name)
		}

		id, err := o.uploadOne(ctx, f)
		if err != nil {
			// Continue with the rest of the batch
			o.logger.Warn("file upload failed", "file", f.Name, "error", err)
			result.Failed = append(result.Failed, f.Name)
			continue
		}
		result.DocumentIDs = append(result.DocumentIDs, id)
	}

	if len(result.DocumentIDs) == 0 {
		msg := "all uploads failed"
		o.reportError(msg)
		return result, fmt.Errorf("%s", msg)
	}

	queue := &models.UploadQueue{
		DocumentIDs:  result.DocumentIDs,
		CurrentIndex: 0,
		TotalCount:   len(result.DocumentIDs),
	}
	if err := o.store.Save(ctx, queue); err != nil {
		return result, fmt.Errorf("persist upload queue: %w", err)
	}

	o.mu.Lock()
	o.selected = nil
	o.mu.Unlock()

	o.logger.Info("upload batch completed",
		"uploaded", len(result.DocumentIDs),
		"failed", len(result.Failed),
	)
	if o.callbacks.OnSuccess != nil {
		o.callbacks.OnSuccess(batch)
	}
	return result, nil
}

func (o *Orchestrator) uploadOne(ctx context.Context, f File) (int, error) {
	r, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()
	return o.uploader.UploadFile(ctx, f.Name, r)
}

func (o *Orchestrator) reportError(msg string) {
	if o.callbacks.OnError != nil {
		o.callbacks.OnError(msg)
	}
}
