package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/bbernstein/museo-go/pkg/sequence"
)

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Device.Snapshot())
}

func (s *Server) getLink(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Link.Status())
}

func (s *Server) getDisplay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Display.State())
}

func (s *Server) listSequences(w http.ResponseWriter, r *http.Request) {
	infos, err := s.deps.Library.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

type instructionView struct {
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	Text  string `json:"text"`
}

type sequenceDetail struct {
	Name         string            `json:"name"`
	Summary      string            `json:"summary"`
	Instructions []instructionView `json:"instructions"`
	Issues       []string          `json:"issues,omitempty"`
}

func (s *Server) getSequence(w http.ResponseWriter, r *http.Request) {
	seq, err := s.deps.Library.Load(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	info := seq.Info()
	writeJSON(w, http.StatusOK, sequenceDetail{
		Name:    seq.Name,
		Summary: info.Summary,
		Instructions: lo.Map(seq.Instructions, func(inst sequence.Instruction, i int) instructionView {
			return instructionView{Index: i, Kind: inst.Kind().String(), Text: inst.String()}
		}),
		Issues: info.Issues,
	})
}

func (s *Server) getPlayback(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Player.Status())
}

type startRequest struct {
	Sequence string `json:"sequence"`
	Loop     *bool  `json:"loop,omitempty"`
}

func (s *Server) startPlayback(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	seq, err := s.deps.Library.Load(req.Sequence)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Loop != nil {
		s.deps.Player.SetLoop(*req.Loop)
	}
	if err := s.deps.Player.Start(seq.Name, seq.Instructions); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Player.Status())
}

type changedResponse struct {
	Changed bool        `json:"changed"`
	Status  interface{} `json:"status"`
}

func (s *Server) pausePlayback(w http.ResponseWriter, r *http.Request) {
	changed := s.deps.Player.Pause()
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed, Status: s.deps.Player.Status()})
}

func (s *Server) resumePlayback(w http.ResponseWriter, r *http.Request) {
	changed := s.deps.Player.Resume()
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed, Status: s.deps.Player.Status()})
}

func (s *Server) stopPlayback(w http.ResponseWriter, r *http.Request) {
	s.deps.Player.Stop()
	writeJSON(w, http.StatusOK, s.deps.Player.Status())
}

type jumpRequest struct {
	Index int `json:"index"`
}

func (s *Server) jumpPlayback(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Player.JumpTo(req.Index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Player.Status())
}

type loopRequest struct {
	Loop bool `json:"loop"`
}

func (s *Server) loopPlayback(w http.ResponseWriter, r *http.Request) {
	var req loopRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.deps.Player.SetLoop(req.Loop)
	writeJSON(w, http.StatusOK, s.deps.Player.Status())
}

func (s *Server) getTrivia(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Trivia.View())
}

type selectRequest struct {
	Index int `json:"index"`
}

func (s *Server) selectAnswer(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := s.deps.Trivia.Select(req.Index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type moveRequest struct {
	Delta int `json:"delta"`
}

func (s *Server) moveHighlight(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Trivia.Move(req.Delta); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Trivia.View())
}

func (s *Server) confirmAnswer(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.deps.Trivia.Confirm()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type fragmentsResponse struct {
	Total     int64       `json:"total"`
	Fragments interface{} `json:"fragments"`
}

func (s *Server) listFragments(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	fragments, err := s.deps.Fragments.FindAll(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	total, err := s.deps.Fragments.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fragmentsResponse{Total: total, Fragments: fragments})
}

type scanRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) scanTag(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	scan, err := s.deps.Tags.Scan(r.Context(), req.Tag)
	if err != nil {
		writeJSON(w, statusFor(err), scan)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) lastScan(w http.ResponseWriter, r *http.Request) {
	scan := s.deps.Tags.LastScan()
	if scan == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}
