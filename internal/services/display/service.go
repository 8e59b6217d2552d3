// Package display holds what the kiosk screen should currently show.
package display

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bbernstein/museo-go/internal/services/assets"
	"github.com/bbernstein/museo-go/internal/services/playback"
	"github.com/bbernstein/museo-go/internal/services/pubsub"
	"github.com/bbernstein/museo-go/internal/services/trivia"
)

// AssetPrefix is the URL prefix the HTTP server serves assets under.
const AssetPrefix = "/assets"

// State is the kiosk screen state.
type State struct {
	Image      string       `json:"image,omitempty"`
	ImageURL   string       `json:"imageUrl,omitempty"`
	Text       string       `json:"text,omitempty"`
	Avatar     string       `json:"avatar,omitempty"`
	AvatarURL  string       `json:"avatarUrl,omitempty"`
	Speaking   string       `json:"speaking,omitempty"`
	Trivia     *trivia.View `json:"trivia,omitempty"`
	LastAction string       `json:"lastAction,omitempty"`
	UpdatedAt  string       `json:"updatedAt"`
}

// Service implements the image, text, avatar, action and trivia sinks by
// keeping a State and publishing it on every change.
type Service struct {
	mu sync.RWMutex

	resolver *assets.Resolver
	pubsub   *pubsub.PubSub
	state    State
	// Subdirectory holding avatar expressions
	avatarDir string
}

// NewService creates a display service. resolver may be nil, in which case
// resource paths are shown without resolution.
func NewService(resolver *assets.Resolver, ps *pubsub.PubSub) *Service {
	return &Service{
		resolver:  resolver,
		pubsub:    ps,
		avatarDir: "avatar",
	}
}

// State returns a copy of the current display state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// ShowImage shows an image. A missing asset is returned as an error and the
// screen is left unchanged.
func (s *Service) ShowImage(path string) error {
	url, err := s.url(path)
	if err != nil {
		return err
	}
	s.update(func(st *State) {
		st.Image = path
		st.ImageURL = url
	})
	return nil
}

// ClearImage hides the current image.
func (s *Service) ClearImage() {
	s.update(func(st *State) {
		st.Image = ""
		st.ImageURL = ""
	})
}

// ShowText shows a display string.
func (s *Service) ShowText(text string) {
	s.update(func(st *State) { st.Text = text })
}

// ClearText clears the display string.
func (s *Service) ClearText() {
	s.update(func(st *State) { st.Text = "" })
}

// ShowExpression changes the avatar expression.
func (s *Service) ShowExpression(name string) error {
	resource := name
	if s.avatarDir != "" && !strings.Contains(name, "/") {
		resource = s.avatarDir + "/" + name
	}
	url, err := s.url(resource)
	if err != nil {
		return err
	}
	s.update(func(st *State) {
		st.Avatar = name
		st.AvatarURL = url
	})
	return nil
}

// ClearExpression hides the avatar.
func (s *Service) ClearExpression() {
	s.update(func(st *State) {
		st.Avatar = ""
		st.AvatarURL = ""
	})
}

// NarrationStarted marks the avatar as speaking clip so the kiosk can move it
// into its talking position.
func (s *Service) NarrationStarted(clip string) {
	s.update(func(st *State) { st.Speaking = clip })
}

// HandleAction forwards a named action to the kiosk.
func (s *Service) HandleAction(name string) error {
	log.Printf("🎬 Action: %s", name)
	s.update(func(st *State) { st.LastAction = name })
	return nil
}

// ShowTrivia shows or refreshes the trivia view.
func (s *Service) ShowTrivia(view trivia.View) {
	s.update(func(st *State) { st.Trivia = &view })
}

// HideTrivia removes the trivia view.
func (s *Service) HideTrivia() {
	s.update(func(st *State) { st.Trivia = nil })
}

// Reset clears everything, used when a sequence is stopped.
func (s *Service) Reset() {
	s.update(func(st *State) { *st = State{} })
}

// HandlePlaybackEvent is a playback.Player observer. A stopped sequence
// blanks the screen; a finished one leaves its last frame up.
func (s *Service) HandlePlaybackEvent(event playback.Event) {
	if event.Type == playback.EventSequenceStopped {
		s.Reset()
	}
}

func (s *Service) url(resource string) (string, error) {
	if s.resolver == nil {
		return "", nil
	}
	return s.resolver.URL(AssetPrefix, assets.ClassImage, resource)
}

func (s *Service) update(apply func(st *State)) {
	s.mu.Lock()
	apply(&s.state)
	s.state.UpdatedAt = time.Now().Format(time.RFC3339)
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.pubsub.PublishAll(pubsub.TopicDisplay, snapshot)
}

func (s *Service) copyLocked() State {
	st := s.state
	if st.Trivia != nil {
		view := *st.Trivia
		st.Trivia = &view
	}
	return st
}
