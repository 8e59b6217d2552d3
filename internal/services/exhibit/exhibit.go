// Package exhibit ties RFID scans to sequences and records found fragments.
package exhibit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/bbernstein/museo-go/internal/database/models"
	"github.com/bbernstein/museo-go/internal/database/repositories"
	"github.com/bbernstein/museo-go/internal/services/device"
	"github.com/bbernstein/museo-go/internal/services/library"
	"github.com/bbernstein/museo-go/internal/services/playback"
	"github.com/bbernstein/museo-go/internal/services/pubsub"
	"github.com/bbernstein/museo-go/internal/services/trivia"
	"github.com/bbernstein/museo-go/pkg/sequence"
)

// ErrUnboundTag is returned when a scanned tag has no sequence.
var ErrUnboundTag = errors.New("tag is not bound to a sequence")

// noTag values mean the reader has nothing in front of it.
var noTag = []string{"", "NONE", "0"}

// BindingStore looks up and stores tag bindings.
type BindingStore interface {
	FindByTag(ctx context.Context, tag string) (*models.TagBinding, error)
	Upsert(ctx context.Context, tag, sequence string, label *string) (*models.TagBinding, error)
}

// FragmentStore persists found fragments.
type FragmentStore interface {
	Create(ctx context.Context, fragment *models.Fragment) error
}

// SequenceSource loads sequences by name.
type SequenceSource interface {
	Load(name string) (*library.Sequence, error)
}

// Player is the part of the sequence player the exhibit drives.
type Player interface {
	Start(name string, instructions []sequence.Instruction) error
	Status() playback.Status
}

// Scan is published on TopicTagScanned.
type Scan struct {
	Tag       string    `json:"tag"`
	Sequence  string    `json:"sequence,omitempty"`
	Label     *string   `json:"label,omitempty"`
	Started   bool      `json:"started"`
	Error     string    `json:"error,omitempty"`
	ScannedAt time.Time `json:"scannedAt"`
}

// Service starts the sequence bound to each newly presented tag.
type Service struct {
	mu sync.Mutex

	bindings  BindingStore
	fragments FragmentStore
	sequences SequenceSource
	player    Player
	pubsub    *pubsub.PubSub

	lastTag    string
	currentTag string
	lastScan   *Scan
}

// NewService creates an exhibit service. ps may be nil.
func NewService(bindings BindingStore, fragments FragmentStore, sequences SequenceSource, player Player, ps *pubsub.PubSub) *Service {
	return &Service{
		bindings:  bindings,
		fragments: fragments,
		sequences: sequences,
		player:    player,
		pubsub:    ps,
	}
}

// Run watches device frames until ctx is done. A tag starts its sequence
// when it differs from the previously seen tag; a frame reporting no tag
// re-arms the reader so the same tag can start again.
func (s *Service) Run(ctx context.Context) {
	if s.pubsub == nil {
		<-ctx.Done()
		return
	}
	sub := s.pubsub.Subscribe(pubsub.TopicDeviceFrame, "", 64)
	defer s.pubsub.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel:
			if !ok {
				return
			}
			state, ok := msg.Payload.(device.State)
			if !ok || state.RFID == nil {
				continue
			}
			s.Observe(ctx, *state.RFID)
		}
	}
}

// Observe handles the reader's current tag value, ignoring repeats.
func (s *Service) Observe(ctx context.Context, raw string) {
	tag := repositories.NormalizeTag(raw)

	s.mu.Lock()
	if tag == s.lastTag {
		s.mu.Unlock()
		return
	}
	s.lastTag = tag
	s.mu.Unlock()

	if lo.Contains(noTag, tag) {
		return
	}
	if _, err := s.Scan(ctx, tag); err != nil && !errors.Is(err, ErrUnboundTag) {
		log.Printf("Warning: tag %s: %v", tag, err)
	}
}

// Scan starts the sequence bound to tag unconditionally.
func (s *Service) Scan(ctx context.Context, raw string) (Scan, error) {
	tag := repositories.NormalizeTag(raw)
	scan := Scan{Tag: tag, ScannedAt: time.Now()}

	err := s.start(ctx, &scan)
	if err != nil {
		scan.Error = err.Error()
	}

	s.mu.Lock()
	if scan.Started {
		s.currentTag = tag
	}
	s.lastScan = &scan
	s.mu.Unlock()

	s.pubsub.PublishAll(pubsub.TopicTagScanned, scan)
	return scan, err
}

func (s *Service) start(ctx context.Context, scan *Scan) error {
	binding, err := s.bindings.FindByTag(ctx, scan.Tag)
	if err != nil {
		return fmt.Errorf("failed to look up binding: %w", err)
	}
	if binding == nil {
		log.Printf("🏷️  Tag %s is not bound to a sequence", scan.Tag)
		return ErrUnboundTag
	}
	scan.Sequence = binding.Sequence
	scan.Label = binding.Label

	seq, err := s.sequences.Load(binding.Sequence)
	if err != nil {
		return fmt.Errorf("failed to load sequence %s: %w", binding.Sequence, err)
	}
	if err := s.player.Start(seq.Name, seq.Instructions); err != nil {
		return fmt.Errorf("failed to start sequence %s: %w", seq.Name, err)
	}

	scan.Started = true
	log.Printf("🏷️  Tag %s started sequence %s", scan.Tag, seq.Name)
	return nil
}

// HandlePlaybackEvent is a playback.Player observer. Any start or stop
// forgets the visitor tag; Scan sets it again once its own start returns,
// so sequences started another way record fragments without a tag.
func (s *Service) HandlePlaybackEvent(event playback.Event) {
	switch event.Type {
	case playback.EventSequenceStarted, playback.EventSequenceStopped:
		s.mu.Lock()
		s.currentTag = ""
		s.mu.Unlock()
	}
}

// LastScan returns the most recent scan, if any.
func (s *Service) LastScan() *Scan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastScan == nil {
		return nil
	}
	scan := *s.lastScan
	return &scan
}

// RecordFragment persists a found fragment against the playing sequence.
// It is registered with trivia.Controller.OnFragmentFound.
func (s *Service) RecordFragment(found trivia.FragmentFound) {
	s.mu.Lock()
	tag := s.currentTag
	s.mu.Unlock()

	fragment := &models.Fragment{
		Sequence: s.player.Status().Sequence,
		Question: found.Question,
		Answer:   found.Answer,
		Attempts: found.Attempts,
		FoundAt:  found.FoundAt,
	}
	if tag != "" {
		fragment.Tag = &tag
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.fragments.Create(ctx, fragment); err != nil {
		log.Printf("Warning: failed to save fragment: %v", err)
		return
	}
	log.Printf("🧩 Fragment found in %s: %q", fragment.Sequence, fragment.Question)
}

// BindingsFile is the YAML layout of the bindings seed file.
type BindingsFile struct {
	Bindings []BindingEntry `yaml:"bindings"`
}

// BindingEntry is one tag binding in the seed file.
type BindingEntry struct {
	Tag      string `yaml:"tag"`
	Sequence string `yaml:"sequence"`
	Label    string `yaml:"label,omitempty"`
}

// LoadBindingsFile reads a bindings seed file.
func LoadBindingsFile(path string) ([]BindingEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file BindingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse bindings file %s: %w", path, err)
	}

	entries := lo.Filter(file.Bindings, func(e BindingEntry, i int) bool {
		if strings.TrimSpace(e.Tag) == "" || strings.TrimSpace(e.Sequence) == "" {
			log.Printf("Warning: bindings entry %d needs both tag and sequence", i+1)
			return false
		}
		return true
	})
	for _, dup := range lo.FindDuplicatesBy(entries, func(e BindingEntry) string { return repositories.NormalizeTag(e.Tag) }) {
		log.Printf("Warning: tag %s is bound more than once; the first entry wins", dup.Tag)
	}
	return lo.UniqBy(entries, func(e BindingEntry) string { return repositories.NormalizeTag(e.Tag) }), nil
}

// SeedBindings stores every binding from the seed file at path. A missing
// file is not an error.
func (s *Service) SeedBindings(ctx context.Context, path string) (int, error) {
	entries, err := LoadBindingsFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("No bindings file at %s, skipping seed", path)
			return 0, nil
		}
		return 0, err
	}

	for _, entry := range entries {
		var label *string
		if entry.Label != "" {
			label = &entry.Label
		}
		if _, err := s.bindings.Upsert(ctx, entry.Tag, entry.Sequence, label); err != nil {
			return 0, fmt.Errorf("failed to store binding for %s: %w", entry.Tag, err)
		}
	}
	log.Printf("🏷️  Seeded %d tag binding(s) from %s", len(entries), path)
	return len(entries), nil
}
