// Package uploader is the client-side upload manager: it validates a
// batch of candidate files, then drives each through the
// upload-URL/transfer/confirm pipeline with bounded concurrency,
// per-file retry with exponential backoff, aggregated progress and
// cooperative cancellation.
package uploader

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atelierlumen/gallerybackend/config"
)

var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9\-.]+$`)

// validContentTypes mirrors the server's allowed upload formats.
var validContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/webp": true,
}

// Status is the per-file state machine:
// pending -> uploading -> success | error | cancelled, with
// uploading -> pending on retry (progress reset to 0).
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// ErrorCode classifies pipeline failures; only network and server
// failures are retried.
type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION"
	CodeNetwork    ErrorCode = "NETWORK"
	CodeServer     ErrorCode = "SERVER"
	CodeCancelled  ErrorCode = "CANCELLED"
)

// UploadError is a classified pipeline failure.
type UploadError struct {
	Code ErrorCode
	Msg  string
	Err  error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Input is one candidate file. Open must return a fresh reader on each
// call so the transfer can restart from the beginning on retry.
type Input struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// File tracks one accepted file through the batch. Fields are guarded
// by the manager's mutex.
type File struct {
	ID          string
	Name        string
	Size        int64
	Status      Status
	Progress    int // percent
	Err         string
	IsLargeFile bool

	input      Input
	retries    int
	bytesAdded int64 // bytes already counted into the batch total
}

// InvalidFile is a rejected candidate with the reasons it was refused.
type InvalidFile struct {
	Name    string
	Size    int64
	Reasons []string
}

// Progress aggregates batch state.
type Progress struct {
	CompletedFiles int
	TotalFiles     int
	UploadedBytes  int64
	TotalBytes     int64
}

// Summary reports per-outcome counts after the batch finishes.
type Summary struct {
	Succeeded int
	Failed    int
	Cancelled int
}

// Options configures a Manager.
type Options struct {
	BaseURL       string        // API base, e.g. http://localhost:8080/api
	Context       string        // target display context
	Token         string        // bearer token for authenticated endpoints
	MaxConcurrent int           // default config.DefaultUploadConcurrency
	MaxRetries    int           // default config.DefaultUploadRetries; negative disables retries
	BackoffBase   time.Duration // default 1s, doubles per attempt
	HTTPClient    *http.Client
	OnProgress    func(Progress)
	OnComplete    func(imageIDs []uint)
}

// Manager runs one upload batch.
type Manager struct {
	opts Options

	mu         sync.Mutex
	files      []*File
	invalid    []InvalidFile
	progress   Progress
	cancelled  bool
	cancelFunc context.CancelFunc
}

// NewManager builds a Manager, filling option defaults.
func NewManager(opts Options) *Manager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = config.DefaultUploadConcurrency
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = config.DefaultUploadRetries
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Manager{opts: opts}
}

// Validate checks one candidate and returns the rejection reasons, or
// none when the file is acceptable.
func Validate(in Input) []string {
	var reasons []string
	if in.Size > config.MaxFileSize {
		reasons = append(reasons, fmt.Sprintf("file too large (%d bytes), maximum is %d", in.Size, int64(config.MaxFileSize)))
	}
	if !validContentTypes[in.ContentType] {
		reasons = append(reasons, fmt.Sprintf("invalid file type %q, only image/jpeg and image/webp allowed", in.ContentType))
	}
	if !filenamePattern.MatchString(in.Name) {
		reasons = append(reasons, "invalid filename, only letters, numbers, hyphens and dots allowed")
	}
	return reasons
}

// Select validates the candidates and queues the valid ones. Invalid
// files are collected with reasons instead of aborting the batch.
func (m *Manager) Select(inputs []Input) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files = nil
	m.invalid = nil
	m.progress = Progress{}

	for _, in := range inputs {
		if reasons := Validate(in); len(reasons) > 0 {
			m.invalid = append(m.invalid, InvalidFile{Name: in.Name, Size: in.Size, Reasons: reasons})
			continue
		}
		m.files = append(m.files, &File{
			ID:          uuid.NewString(),
			Name:        in.Name,
			Size:        in.Size,
			Status:      StatusPending,
			IsLargeFile: in.Size > config.LargeFileThreshold,
			input:       in,
		})
		m.progress.TotalBytes += in.Size
	}
	m.progress.TotalFiles = len(m.files)
}

// InvalidFiles returns the rejection list from the last Select.
func (m *Manager) InvalidFiles() []InvalidFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]InvalidFile(nil), m.invalid...)
}

// Files returns a snapshot of the batch's per-file state.
func (m *Manager) Files() []File {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make([]File, len(m.files))
	for i, f := range m.files {
		snapshot[i] = *f
	}
	return snapshot
}

// Snapshot returns the current aggregate progress.
func (m *Manager) Snapshot() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

// Cancel aborts in-flight transfers and prevents queued files from
// starting. Cooperative: pipelines observe it between steps.
func (m *Manager) Cancel() {
	m.mu.Lock()
	m.cancelled = true
	cancel := m.cancelFunc
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) isCancelled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelled
}

type fileResult struct {
	file     *File
	imageIDs []uint
	err      error
}

// Run drives the batch to completion and returns the outcome summary.
// At most MaxConcurrent pipelines are in flight at once; the scheduler
// admits a new file only after an in-flight one finishes.
func (m *Manager) Run(ctx context.Context) (Summary, error) {
	m.mu.Lock()
	if len(m.files) == 0 {
		m.mu.Unlock()
		return Summary{}, fmt.Errorf("no files selected")
	}
	m.cancelled = false
	runCtx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	queue := append([]*File(nil), m.files...)
	m.mu.Unlock()
	defer cancel()

	var summary Summary
	var allImageIDs []uint
	inFlight := 0
	done := make(chan fileResult)

	for len(queue) > 0 || inFlight > 0 {
		if m.isCancelled() {
			// queued files never start once the batch is cancelled
			for _, f := range queue {
				m.setStatus(f, StatusCancelled, "")
				m.completeFile()
				summary.Cancelled++
			}
			queue = nil
		}

		for len(queue) > 0 && inFlight < m.opts.MaxConcurrent && !m.isCancelled() {
			f := queue[0]
			queue = queue[1:]
			inFlight++
			go func(f *File) {
				ids, err := m.uploadOne(runCtx, f)
				done <- fileResult{file: f, imageIDs: ids, err: err}
			}(f)
		}

		if inFlight == 0 {
			continue
		}

		res := <-done
		inFlight--
		m.completeFile()

		switch {
		case res.err == nil:
			summary.Succeeded++
			allImageIDs = append(allImageIDs, res.imageIDs...)
		case statusOf(res.err) == CodeCancelled:
			summary.Cancelled++
		default:
			summary.Failed++
			log.Printf("Upload failed for %s: %v", res.file.Name, res.err)
		}
	}

	if summary.Succeeded > 0 && m.opts.OnComplete != nil {
		m.opts.OnComplete(allImageIDs)
	}
	return summary, nil
}

func statusOf(err error) ErrorCode {
	if ue, ok := err.(*UploadError); ok {
		return ue.Code
	}
	return CodeNetwork
}

func (m *Manager) setStatus(f *File, status Status, errMsg string) {
	m.mu.Lock()
	f.Status = status
	f.Err = errMsg
	if status == StatusSuccess {
		f.Progress = 100
	}
	m.mu.Unlock()
}

func (m *Manager) retryCount(f *File) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return f.retries
}

func (m *Manager) bumpRetries(f *File) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.retries++
	return f.retries
}

func (m *Manager) completeFile() {
	m.mu.Lock()
	m.progress.CompletedFiles++
	p := m.progress
	m.mu.Unlock()
	m.notify(p)
}

// addBytes advances the batch byte counter by the delta since the last
// callback for this file, never by an absolute value, so retried files
// never double count.
func (m *Manager) addBytes(f *File, totalRead int64) {
	m.mu.Lock()
	delta := totalRead - f.bytesAdded
	f.bytesAdded = totalRead
	m.progress.UploadedBytes += delta
	if f.Size > 0 {
		f.Progress = int(totalRead * 100 / f.Size)
	}
	p := m.progress
	m.mu.Unlock()
	m.notify(p)
}

// resetFileBytes rolls a file's counted bytes back out of the batch
// total before a retry restarts its transfer from zero.
func (m *Manager) resetFileBytes(f *File) {
	m.mu.Lock()
	m.progress.UploadedBytes -= f.bytesAdded
	f.bytesAdded = 0
	f.Progress = 0
	p := m.progress
	m.mu.Unlock()
	m.notify(p)
}

func (m *Manager) notify(p Progress) {
	if m.opts.OnProgress != nil {
		m.opts.OnProgress(p)
	}
}
