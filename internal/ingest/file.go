// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/plugin"
)

// filenamePattern implements §4.1/§6's CSV filename contract:
// <severity-phrase>-<type>-<identifier>.csv, case-insensitive severity
// phrase.
var filenamePattern = regexp.MustCompile(`^([A-Za-z ]+)-(.+)-(\d+)\.csv$`)

// quietPeriod is how long a file must go without a write before the file
// adapter treats it as closed. fsnotify exposes no portable close-write
// event, so this debounce stands in for "newly-closed file" (§4.1).
const quietPeriod = 500 * time.Millisecond

// FileAdapter watches a directory for newly-closed attack CSV files.
type FileAdapter struct {
	dir     string
	reg     *plugin.Registry
	emit    func(*eventmodel.Attack)
	watcher *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewFileAdapter creates a file adapter over dir, invoking emit once per
// completed Attack.
func NewFileAdapter(dir string, reg *plugin.Registry, emit func(*eventmodel.Attack)) (*FileAdapter, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &FileAdapter{dir: dir, reg: reg, emit: emit, watcher: w, timers: make(map[string]*time.Timer)}, nil
}

// Run blocks, watching for closed files until ctx is cancelled (§5
// "blocking I/O may occur at: (a) file watch wait").
func (f *FileAdapter) Run(ctx context.Context) error {
	defer f.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				f.scheduleClose(ev.Name)
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[INGEST] file watcher error: %v", err)
		}
	}
}

// scheduleClose (re)starts the quiet-period timer for path; firing the
// timer without an intervening write is treated as the file having closed.
func (f *FileAdapter) scheduleClose(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.timers[path]; ok {
		t.Stop()
	}
	f.timers[path] = time.AfterFunc(quietPeriod, func() {
		f.mu.Lock()
		delete(f.timers, path)
		f.mu.Unlock()
		f.processFile(path)
	})
}

func (f *FileAdapter) processFile(path string) {
	base := filepath.Base(path)
	severity, attype, id := parseFilename(base)

	file, err := os.Open(path)
	if err != nil {
		log.Printf("[INGEST] cannot open %s: %v", path, err)
		return
	}
	defer file.Close()

	var anomalyName string
	if id != nil {
		anomalyName = strconv.FormatInt(*id, 10)
	}
	attack := eventmodel.NewAttack(severity, attype, id, anomalyName)
	parser, ok := f.reg.ParserFor(attype)
	if !ok {
		log.Printf("[INGEST] no parser plug-in for type %q (%s)", attype, path)
		return
	}

	r := csv.NewReader(bufio.NewReader(file))
	r.FieldsPerRecord = -1
	lineNo := 0
	for {
		fields, err := r.Read()
		if err != nil {
			break
		}
		lineNo++
		ev, ok, perr := parser.Parse(lineNo, fields)
		if perr != nil {
			if lineNo == 1 {
				continue // treated as a header
			}
			log.Printf("[INGEST] %s: line %d: %v", path, lineNo, perr)
			return
		}
		if !ok {
			continue
		}
		attack.AppendEvent(ev)
	}
	attack.Freeze()
	f.emit(attack)
}

// parseFilename implements the filename contract and its degrade path
// (§4.1: "a missing/invalid pattern degrades to severity=4,
// type=basename-without-ext, identifier=null").
func parseFilename(base string) (eventmodel.Severity, string, *int64) {
	m := filenamePattern.FindStringSubmatch(base)
	if m == nil {
		return eventmodel.SeverityVeryHigh, strings.TrimSuffix(base, filepath.Ext(base)), nil
	}
	severity, ok := eventmodel.ParseSeverityPhrase(m[1])
	if !ok {
		return eventmodel.SeverityVeryHigh, strings.TrimSuffix(base, filepath.Ext(base)), nil
	}
	id, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return eventmodel.SeverityVeryHigh, strings.TrimSuffix(base, filepath.Ext(base)), nil
	}
	return severity, m[2], &id
}
