package trace

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/parquet-go/parquet-go"

	"github.com/brensch/snekpilot/autopilot"
)

// DefaultFlushRows is how many exchanges go into one file.
const DefaultFlushRows = 64

// Recorder appends exchanges to parquet files in a directory, starting a
// new file every flushRows rows. It implements autopilot.Recorder.
type Recorder struct {
	mu        sync.Mutex
	dir       string
	flushRows int
	logger    *slog.Logger
	current   *BatchWriter
	files     []string
}

func NewRecorder(dir string, flushRows int, logger *slog.Logger) (*Recorder, error) {
	if dir == "" {
		return nil, fmt.Errorf("trace dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	if flushRows <= 0 {
		flushRows = DefaultFlushRows
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{dir: dir, flushRows: flushRows, logger: logger}, nil
}

func (r *Recorder) Record(ex autopilot.Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		w, err := NewBatchWriter(r.dir)
		if err != nil {
			return err
		}
		r.current = w
	}
	if err := r.current.WriteRows([]ExchangeRow{NewExchangeRow(ex)}); err != nil {
		return fmt.Errorf("write exchange: %w", err)
	}
	if r.current.BufferedRows() >= r.flushRows {
		return r.finalizeLocked()
	}
	return nil
}

// Flush finalizes the open file, if any.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalizeLocked()
}

func (r *Recorder) Close() error {
	return r.Flush()
}

// Files lists the files finalized so far.
func (r *Recorder) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

func (r *Recorder) finalizeLocked() error {
	if r.current == nil {
		return nil
	}
	w := r.current
	r.current = nil
	path, rows, err := w.Finalize()
	if err != nil {
		return err
	}
	if path != "" {
		r.files = append(r.files, path)
		r.logger.Info("trace file written", "path", path, "rows", rows)
	}
	return nil
}

// ReadFile loads every row of one trace file.
func ReadFile(path string) ([]ExchangeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[ExchangeRow](pf)
	defer reader.Close()

	rows := make([]ExchangeRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows[:n], nil
}

// ReadDir loads all finalized trace files in dir, oldest first.
func ReadDir(dir string) ([]ExchangeRow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".parquet") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var all []ExchangeRow
	for _, name := range names {
		rows, err := ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		all = append(all, rows...)
	}
	return all, nil
}
