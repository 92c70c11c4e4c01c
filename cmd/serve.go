package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/mbaxter/joybeat/constants"
	"github.com/mbaxter/joybeat/joycon"
	"github.com/mbaxter/joybeat/library"
	"github.com/mbaxter/joybeat/merge"
	"github.com/mbaxter/joybeat/midi"
	"github.com/mbaxter/joybeat/model"
	"github.com/mbaxter/joybeat/playback"
	"github.com/mbaxter/joybeat/score"
	"github.com/mbaxter/joybeat/util"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an HTTP control surface for playback",
	Long:  `Run an HTTP control surface for playback`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

type playRequest struct {
	Path string `json:"path"`
}

type statusResponse struct {
	ID        string `json:"id,omitempty"`
	State     string `json:"state"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type errorResponse struct {
	Error string `json:"detail"`
}

// server owns the controllers for its whole lifetime and one scheduler
// per active playback.
type server struct {
	manager     *joycon.Manager
	controllers []*joycon.Controller

	mu    sync.Mutex
	sched *playback.Scheduler
}

func serve() error {
	manager, err := joycon.NewManager()
	if err != nil {
		return err
	}
	controllers, err := manager.ConnectAndInitialize()
	if err != nil {
		return err
	}
	if len(controllers) == 0 {
		return fmt.Errorf("no controllers found")
	}

	s := &server{manager: manager, controllers: controllers}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/play", s.handlePlay).Methods("POST")
	router.HandleFunc("/pause", s.handlePause).Methods("POST")
	router.HandleFunc("/resume", s.handleResume).Methods("POST")
	router.HandleFunc("/stop", s.handleStop).Methods("POST")
	router.HandleFunc("/status", s.handleStatus).Methods("GET")

	addr := constants.GetHTTPAddr()
	fmt.Printf("Control surface on %v with %d controller(s)\n", addr, len(controllers))
	log.Fatal(http.ListenAndServe(addr, cors.Default().Handler(router)))
	return nil
}

func (s *server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"path\": ...}")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched != nil && (s.sched.State() == model.Playing || s.sched.State() == model.Paused) {
		writeError(w, http.StatusConflict, "playback already active")
		return
	}

	path, cleanup, err := library.Resolve(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	song, err := midi.ReadFile(path)
	cleanup()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	picks := merge.SelectChannels(score.AnalyzeAll(song))
	streams := merge.BuildStreams(song, picks)

	var sessions [model.NumChannels]playback.Session
	for i := 0; i < util.Min(len(s.controllers), model.NumChannels); i++ {
		sessions[i] = s.controllers[i]
	}

	sched := playback.New(streams, sessions, playback.Options{
		PollInterval: constants.GetPollInterval(),
	})
	if err := sched.Start(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.sched = sched
	writeStatus(w, sched)
}

func (s *server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.withScheduler(w, func(sched *playback.Scheduler) error { return sched.Pause() })
}

func (s *server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.withScheduler(w, func(sched *playback.Scheduler) error { return sched.Resume() })
}

func (s *server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.withScheduler(w, func(sched *playback.Scheduler) error {
		sched.Stop()
		return nil
	})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sched := s.sched
	s.mu.Unlock()
	if sched == nil {
		json.NewEncoder(w).Encode(statusResponse{State: model.Idle.String()})
		return
	}
	writeStatus(w, sched)
}

func (s *server) withScheduler(w http.ResponseWriter, fn func(*playback.Scheduler) error) {
	s.mu.Lock()
	sched := s.sched
	s.mu.Unlock()
	if sched == nil {
		writeError(w, http.StatusConflict, "no active playback")
		return
	}
	if err := fn(sched); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeStatus(w, sched)
}

func writeStatus(w http.ResponseWriter, sched *playback.Scheduler) {
	json.NewEncoder(w).Encode(statusResponse{
		ID:        sched.ID().String(),
		State:     sched.State().String(),
		ElapsedMs: sched.Elapsed().Milliseconds(),
	})
}

func writeError(w http.ResponseWriter, code int, detail string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Error: detail})
}
