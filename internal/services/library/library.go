// Package library loads exhibit sequence files from disk and keeps them
// parsed in memory.
package library

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"

	"github.com/bbernstein/museo-go/pkg/sequence"
)

// Extension is the file extension of sequence files.
const Extension = ".txt"

// ErrSequenceNotFound is returned for a name with no sequence file.
var ErrSequenceNotFound = errors.New("sequence not found")

// Sequence is a parsed sequence file.
type Sequence struct {
	Name         string
	Path         string
	Instructions []sequence.Instruction
	Issues       []sequence.Issue
	ModTime      time.Time
}

// Info summarizes a sequence for listings.
type Info struct {
	Name         string   `json:"name"`
	Instructions int      `json:"instructions"`
	Summary      string   `json:"summary"`
	Issues       []string `json:"issues,omitempty"`
	ModifiedAt   string   `json:"modifiedAt"`
}

// Info returns the listing summary of s.
func (s *Sequence) Info() Info {
	return Info{
		Name:         s.Name,
		Instructions: len(s.Instructions),
		Summary:      sequence.Summary(s.Instructions),
		Issues:       lo.Map(s.Issues, func(i sequence.Issue, _ int) string { return i.String() }),
		ModifiedAt:   s.ModTime.Format(time.RFC3339),
	}
}

// Library caches parsed sequences from a directory.
type Library struct {
	mu    sync.RWMutex
	dir   string
	cache map[string]*Sequence

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates a library over dir.
func New(dir string) *Library {
	return &Library{
		dir:   dir,
		cache: make(map[string]*Sequence),
	}
}

// Dir returns the sequence directory.
func (l *Library) Dir() string {
	return l.dir
}

// Load returns the parsed sequence called name, reading it on first use.
func (l *Library) Load(name string) (*Sequence, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	cached := l.cache[name]
	l.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	seq, err := l.read(name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[name] = seq
	l.mu.Unlock()
	return seq, nil
}

// List returns every sequence in the directory, sorted by name.
func (l *Library) List() ([]Info, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence directory: %w", err)
	}

	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			return "", false
		}
		return strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), true
	})
	sort.Strings(names)

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		seq, err := l.Load(name)
		if err != nil {
			log.Printf("Warning: skipping sequence %s: %v", name, err)
			continue
		}
		infos = append(infos, seq.Info())
	}
	return infos, nil
}

// Invalidate drops a cached sequence so the next Load rereads it.
func (l *Library) Invalidate(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, name)
}

// Watch starts invalidating cached sequences when their files change.
func (l *Library) Watch() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(l.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}

	l.mu.Lock()
	l.watcher = fsw
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	go l.watch(fsw, done)
	log.Printf("📂 Watching sequences in %s", l.dir)
	return nil
}

// Close stops watching.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher == nil {
		return
	}
	close(l.done)
	l.watcher.Close()
	l.watcher = nil
}

func (l *Library) watch(fsw *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Ext(event.Name), Extension) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			name := strings.TrimSuffix(base, filepath.Ext(base))
			l.Invalidate(name)
			log.Printf("📂 Sequence %s changed (%s)", name, event.Op)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: sequence watcher error: %v", err)
		case <-done:
			return
		}
	}
}

func (l *Library) read(name string) (*Sequence, error) {
	path := filepath.Join(l.dir, name+Extension)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSequenceNotFound, name)
		}
		return nil, fmt.Errorf("failed to open sequence %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat sequence %s: %w", name, err)
	}

	instructions, issues, err := sequence.ParseLines(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence %s: %w", name, err)
	}
	for _, issue := range issues {
		log.Printf("Warning: %s: %s", name, issue)
	}

	return &Sequence{
		Name:         name,
		Path:         path,
		Instructions: instructions,
		Issues:       issues,
		ModTime:      info.ModTime(),
	}, nil
}

// normalizeName strips the extension and rejects names outside the directory.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(filepath.Ext(name), Extension) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid name %q", ErrSequenceNotFound, name)
	}
	return name, nil
}
