package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeBackend serves the upload-url/transfer/confirm endpoints the
// pipeline talks to. Hooks let tests inject failures per request.
type fakeBackend struct {
	server *httptest.Server

	mu          sync.Mutex
	putCount    int
	confirmID   uint
	inFlight    int32
	maxInFlight int32

	// putStatus, when set, decides the status of the nth PUT (1-based).
	putStatus func(n int) int
	// confirmStatus, when set, decides the status of each confirm.
	confirmStatus func() int
	// onPutStarted is signalled once per PUT before the body is read.
	onPutStarted chan struct{}
	// blockPut makes PUT handlers wait for request cancellation.
	blockPut bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/images/upload-url", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Filename string `json:"filename"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp := map[string]string{
			"uploadUrl":  fb.server.URL + "/put/" + body.Filename,
			"storageKey": "overview/" + body.Filename,
		}
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/put/", func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&fb.inFlight, 1)
		defer atomic.AddInt32(&fb.inFlight, -1)
		for {
			max := atomic.LoadInt32(&fb.maxInFlight)
			if current <= max || atomic.CompareAndSwapInt32(&fb.maxInFlight, max, current) {
				break
			}
		}

		// Drain the body before any blocking wait so the server can
		// shut down cleanly when a blocked request is cancelled.
		io.Copy(io.Discard, r.Body)

		if fb.onPutStarted != nil {
			fb.onPutStarted <- struct{}{}
		}
		if fb.blockPut {
			<-r.Context().Done()
			return
		}

		fb.mu.Lock()
		fb.putCount++
		n := fb.putCount
		fb.mu.Unlock()

		if fb.putStatus != nil {
			w.WriteHeader(fb.putStatus(n))
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/images/confirm", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		if fb.confirmStatus != nil {
			if status := fb.confirmStatus(); status != http.StatusCreated {
				w.WriteHeader(status)
				return
			}
		}
		fb.mu.Lock()
		fb.confirmID++
		id := fb.confirmID
		fb.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"images":  []map[string]uint{{"id": id}},
		})
	})

	fb.server = httptest.NewServer(mux)
	t.Cleanup(fb.server.Close)
	return fb
}

func testInput(name string, size int) Input {
	data := bytes.Repeat([]byte("x"), size)
	return Input{
		Name:        name,
		Size:        int64(size),
		ContentType: "image/jpeg",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func newTestManager(fb *fakeBackend, opts Options) *Manager {
	opts.BaseURL = fb.server.URL + "/api"
	opts.Context = "overview"
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Millisecond
	}
	return NewManager(opts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		input      Input
		wantValid  bool
		wantReason string
	}{
		{"valid jpeg", Input{Name: "photo.jpg", Size: 1024, ContentType: "image/jpeg"}, true, ""},
		{"valid webp", Input{Name: "photo.webp", Size: 1024, ContentType: "image/webp"}, true, ""},
		{"too large", Input{Name: "big.jpg", Size: 61 * 1024 * 1024, ContentType: "image/jpeg"}, false, "too large"},
		{"bad type", Input{Name: "doc.pdf", Size: 1024, ContentType: "application/pdf"}, false, "invalid file type"},
		{"bad filename", Input{Name: "my photo.jpg", Size: 1024, ContentType: "image/jpeg"}, false, "invalid filename"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasons := Validate(tt.input)
			if tt.wantValid {
				if len(reasons) != 0 {
					t.Errorf("Validate() = %v, want no reasons", reasons)
				}
				return
			}
			if len(reasons) == 0 {
				t.Fatal("Validate() accepted an invalid input")
			}
			if !strings.Contains(strings.Join(reasons, "; "), tt.wantReason) {
				t.Errorf("Validate() = %v, want reason containing %q", reasons, tt.wantReason)
			}
		})
	}
}

func TestSelectPartitionsBatch(t *testing.T) {
	m := NewManager(Options{})
	m.Select([]Input{
		testInput("a.jpg", 100),
		{Name: "bad file.jpg", Size: 100, ContentType: "image/jpeg"},
		testInput("b.jpg", 200),
	})

	files := m.Files()
	if len(files) != 2 {
		t.Fatalf("accepted %d files, want 2", len(files))
	}
	invalid := m.InvalidFiles()
	if len(invalid) != 1 {
		t.Fatalf("rejected %d files, want 1", len(invalid))
	}
	if invalid[0].Name != "bad file.jpg" {
		t.Errorf("rejected file = %q", invalid[0].Name)
	}

	p := m.Snapshot()
	if p.TotalFiles != 2 || p.TotalBytes != 300 {
		t.Errorf("progress = %+v, want 2 files / 300 bytes", p)
	}
}

func TestRunRespectsConcurrencyBound(t *testing.T) {
	fb := newFakeBackend(t)
	m := newTestManager(fb, Options{MaxConcurrent: 3})

	var inputs []Input
	for i := 0; i < 5; i++ {
		inputs = append(inputs, testInput(fmt.Sprintf("file-%d.jpg", i), 4096))
	}
	m.Select(inputs)

	var completions []uint
	m.opts.OnComplete = func(ids []uint) { completions = ids }

	summary, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Succeeded != 5 || summary.Failed != 0 || summary.Cancelled != 0 {
		t.Errorf("summary = %+v, want 5 succeeded", summary)
	}
	if max := atomic.LoadInt32(&fb.maxInFlight); max > 3 {
		t.Errorf("observed %d concurrent transfers, bound is 3", max)
	}
	if len(completions) != 5 {
		t.Errorf("OnComplete got %d ids, want 5", len(completions))
	}

	p := m.Snapshot()
	if p.UploadedBytes != p.TotalBytes {
		t.Errorf("uploaded %d of %d bytes", p.UploadedBytes, p.TotalBytes)
	}
	for _, f := range m.Files() {
		if f.Status != StatusSuccess {
			t.Errorf("file %s status = %s, want success", f.Name, f.Status)
		}
		if f.Progress != 100 {
			t.Errorf("file %s progress = %d, want 100", f.Name, f.Progress)
		}
	}
}

func TestRunRetriesServerFailures(t *testing.T) {
	fb := newFakeBackend(t)
	// first two PUTs fail, third succeeds: within the default budget of
	// two retries
	fb.putStatus = func(n int) int {
		if n <= 2 {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	}
	m := newTestManager(fb, Options{})
	m.Select([]Input{testInput("retry.jpg", 2048)})

	summary, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Succeeded != 1 {
		t.Errorf("summary = %+v, want 1 succeeded", summary)
	}
	if fb.putCount != 3 {
		t.Errorf("server saw %d transfers, want 3", fb.putCount)
	}

	// delta accounting: the two rolled-back attempts must not inflate
	// the batch total
	p := m.Snapshot()
	if p.UploadedBytes != 2048 {
		t.Errorf("uploaded bytes = %d, want exactly 2048", p.UploadedBytes)
	}
}

func TestRunExhaustsRetryBudget(t *testing.T) {
	fb := newFakeBackend(t)
	fb.putStatus = func(n int) int { return http.StatusInternalServerError }
	m := newTestManager(fb, Options{})
	m.Select([]Input{testInput("doomed.jpg", 512)})

	summary, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failed", summary)
	}
	// initial attempt plus two retries
	if fb.putCount != 3 {
		t.Errorf("server saw %d transfers, want 3", fb.putCount)
	}

	files := m.Files()
	if files[0].Status != StatusError {
		t.Errorf("file status = %s, want error", files[0].Status)
	}
	if files[0].Err == "" {
		t.Error("failed file carries no error message")
	}
}

func TestRunNegativeMaxRetriesDisablesRetry(t *testing.T) {
	fb := newFakeBackend(t)
	fb.putStatus = func(n int) int { return http.StatusInternalServerError }
	m := newTestManager(fb, Options{MaxRetries: -1})
	m.Select([]Input{testInput("once.jpg", 512)})

	summary, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failed", summary)
	}
	if fb.putCount != 1 {
		t.Errorf("server saw %d transfers, want 1 (retries disabled)", fb.putCount)
	}
}

func TestFilesSnapshotDuringRetries(t *testing.T) {
	fb := newFakeBackend(t)
	fb.putStatus = func(n int) int { return http.StatusInternalServerError }
	m := newTestManager(fb, Options{MaxRetries: 4})
	m.Select([]Input{testInput("contended.jpg", 1024)})

	// poll snapshots concurrently while retries mutate file state; run
	// under -race this catches unguarded bookkeeping
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				for _, f := range m.Files() {
					_ = f.Status
				}
			}
		}
	}()

	summary, err := m.Run(context.Background())
	close(done)
	wg.Wait()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failed", summary)
	}
	if fb.putCount != 5 {
		t.Errorf("server saw %d transfers, want 5", fb.putCount)
	}
}

func TestRunValidationFailureIsTerminal(t *testing.T) {
	fb := newFakeBackend(t)
	fb.confirmStatus = func() int { return http.StatusBadRequest }
	m := newTestManager(fb, Options{})
	m.Select([]Input{testInput("rejected.jpg", 512)})

	summary, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failed", summary)
	}
	// validation errors are never retried
	if fb.putCount != 1 {
		t.Errorf("server saw %d transfers, want 1", fb.putCount)
	}
}

func TestCancelStopsInFlightAndQueued(t *testing.T) {
	fb := newFakeBackend(t)
	fb.blockPut = true
	fb.onPutStarted = make(chan struct{}, 4)

	m := newTestManager(fb, Options{MaxConcurrent: 1})
	m.Select([]Input{
		testInput("first.jpg", 1024),
		testInput("second.jpg", 1024),
	})

	go func() {
		<-fb.onPutStarted
		m.Cancel()
	}()

	summary, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Cancelled != 2 {
		t.Errorf("summary = %+v, want 2 cancelled", summary)
	}
	if summary.Succeeded != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want only cancellations", summary)
	}

	for _, f := range m.Files() {
		if f.Status != StatusCancelled {
			t.Errorf("file %s status = %s, want cancelled", f.Name, f.Status)
		}
	}
}

func TestRunWithoutSelection(t *testing.T) {
	m := NewManager(Options{BaseURL: "http://localhost:0"})
	if _, err := m.Run(context.Background()); err == nil {
		t.Error("Run() with no files succeeded, want error")
	}
}

func TestLargeFileFlag(t *testing.T) {
	m := NewManager(Options{})
	m.Select([]Input{
		testInput("small.jpg", 1024),
		{Name: "large.jpg", Size: 11 * 1024 * 1024, ContentType: "image/jpeg", Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(nil)), nil
		}},
	})

	files := m.Files()
	if files[0].IsLargeFile {
		t.Error("small file flagged as large")
	}
	if !files[1].IsLargeFile {
		t.Error("large file not flagged")
	}
}
