// Package api exposes the exhibit over HTTP for the kiosk front end and
// for staff tooling.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bbernstein/museo-go/internal/database/models"
	"github.com/bbernstein/museo-go/internal/services/device"
	"github.com/bbernstein/museo-go/internal/services/display"
	"github.com/bbernstein/museo-go/internal/services/exhibit"
	"github.com/bbernstein/museo-go/internal/services/library"
	"github.com/bbernstein/museo-go/internal/services/link"
	"github.com/bbernstein/museo-go/internal/services/playback"
	"github.com/bbernstein/museo-go/internal/services/pubsub"
	"github.com/bbernstein/museo-go/internal/services/trivia"
	"github.com/bbernstein/museo-go/pkg/sequence"
)

// DeviceSource reads the device state store.
type DeviceSource interface {
	Snapshot() device.State
}

// LinkSource reports the serial link status.
type LinkSource interface {
	Status() link.Status
}

// DisplaySource reads the kiosk display state.
type DisplaySource interface {
	State() display.State
}

// SequenceLibrary lists and loads sequence files.
type SequenceLibrary interface {
	List() ([]library.Info, error)
	Load(name string) (*library.Sequence, error)
}

// PlayerControl is the sequence player as seen by the API.
type PlayerControl interface {
	Start(name string, instructions []sequence.Instruction) error
	Stop()
	JumpTo(index int) error
	Pause() bool
	Resume() bool
	SetLoop(loop bool)
	Status() playback.Status
}

// TriviaControl accepts kiosk answers.
type TriviaControl interface {
	View() trivia.View
	Select(index int) (trivia.Outcome, error)
	Move(delta int) error
	Confirm() (trivia.Outcome, error)
}

// FragmentLister reads found fragments.
type FragmentLister interface {
	FindAll(ctx context.Context, limit int) ([]models.Fragment, error)
	Count(ctx context.Context) (int64, error)
}

// TagScanner simulates and reports RFID scans.
type TagScanner interface {
	Scan(ctx context.Context, tag string) (exhibit.Scan, error)
	LastScan() *exhibit.Scan
}

// Deps holds the services the API serves.
type Deps struct {
	Device    DeviceSource
	Link      LinkSource
	Display   DisplaySource
	Library   SequenceLibrary
	Player    PlayerControl
	Trivia    TriviaControl
	Fragments FragmentLister
	Tags      TagScanner
	PubSub    *pubsub.PubSub
	AssetDir  string
}

// Server holds the API handlers.
type Server struct {
	deps Deps
}

// NewServer creates an API server.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

// Mount registers the request/response routes on r. The websocket stream
// is served separately by ServeWebsocket.
func (s *Server) Mount(r chi.Router) {
	r.Handle("/metrics", promhttp.Handler())

	if s.deps.AssetDir != "" {
		fs := http.StripPrefix(display.AssetPrefix+"/", http.FileServer(http.Dir(s.deps.AssetDir)))
		r.Handle(display.AssetPrefix+"/*", fs)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/device", s.getDevice)
		r.Get("/link", s.getLink)
		r.Get("/display", s.getDisplay)

		r.Get("/sequences", s.listSequences)
		r.Get("/sequences/{name}", s.getSequence)

		r.Route("/playback", func(r chi.Router) {
			r.Get("/", s.getPlayback)
			r.Post("/start", s.startPlayback)
			r.Post("/pause", s.pausePlayback)
			r.Post("/resume", s.resumePlayback)
			r.Post("/stop", s.stopPlayback)
			r.Post("/jump", s.jumpPlayback)
			r.Post("/loop", s.loopPlayback)
		})

		r.Route("/trivia", func(r chi.Router) {
			r.Get("/", s.getTrivia)
			r.Post("/select", s.selectAnswer)
			r.Post("/move", s.moveHighlight)
			r.Post("/confirm", s.confirmAnswer)
		})

		r.Get("/fragments", s.listFragments)

		r.Get("/tags/last", s.lastScan)
		r.Post("/tags/scan", s.scanTag)
	})
}

// Handler returns a router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", s.ServeWebsocket)
	s.Mount(r)
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("invalid request body")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, playback.ErrInvalidIndex),
		errors.Is(err, trivia.ErrInvalidAnswer):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrSequenceNotFound),
		errors.Is(err, exhibit.ErrUnboundTag):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrNoSequence),
		errors.Is(err, trivia.ErrNotAwaitingAnswer):
		return http.StatusConflict
	case errors.Is(err, playback.ErrEmptySequence):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
