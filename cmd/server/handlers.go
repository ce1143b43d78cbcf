package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/utils"
)

const (
	addTimeout     = 5 * time.Minute
	matchTimeout   = 2 * time.Minute
	compareTimeout = 2 * time.Minute
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service constellation.Service
	config  *ServerConfig
	log     constellation.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Bind           string
	Backend        string
	DBPath         string
	TempDir        string
	SampleRate     int
	MaxUploadBytes int64
	AllowedOrigins []string
}

func NewServer(service constellation.Service, config *ServerConfig, log constellation.Logger) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     log,
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// songID reads and checks the {id} path value, answering 400 itself when it
// is malformed.
func (s *Server) songID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !utils.IsUUID(id) {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid song id %q", id))
		return "", false
	}
	return id, true
}

// saveUpload copies the multipart file in field to a temporary file that
// keeps the upload's extension, so WAV input is read directly. The caller
// removes the file.
func (s *Server) saveUpload(r *http.Request, field string) (string, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", "", fmt.Errorf("%s is required", field)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	out, err := os.CreateTemp(s.config.TempDir, "upload-*"+ext)
	if err != nil {
		return "", "", fmt.Errorf("creating temp file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(out.Name())
		return "", "", fmt.Errorf("saving upload: %w", err)
	}
	return out.Name(), header.Filename, nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "constellation API",
		"endpoints": map[string]string{
			"health":     "GET /health",
			"metrics":    "GET /api/health/metrics",
			"songs":      "GET /api/songs",
			"addSong":    "POST /api/songs",
			"getSong":    "GET /api/songs/{id}",
			"deleteSong": "DELETE /api/songs/{id}",
			"match":      "POST /api/match",
			"compare":    "POST /api/compare",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	songs, err := s.service.ListSongs()
	if err != nil {
		s.log.Errorf("Failed to get song count: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	records := 0
	for _, song := range songs {
		records += song.Records
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		Backend:      s.config.Backend,
		DatabasePath: s.config.DBPath,
		SongCount:    len(songs),
		RecordCount:  records,
		SampleRate:   s.config.SampleRate,
	})
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.service.ListSongs()
	if err != nil {
		s.log.Errorf("Failed to list songs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve songs")
		return
	}

	dtos := make([]SongDTO, len(songs))
	for i, song := range songs {
		dtos[i] = songDTO(song)
	}
	s.respondJSON(w, http.StatusOK, ListSongsResponse{Songs: dtos, Count: len(dtos)})
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	id, ok := s.songID(w, r)
	if !ok {
		return
	}

	song, err := s.service.GetSongByID(id)
	if errors.Is(err, constellation.ErrSongNotFound) {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song with ID %s not found", id))
		return
	}
	if err != nil {
		s.log.Errorf("Failed to get song %s: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve song")
		return
	}
	s.respondJSON(w, http.StatusOK, songDTO(*song))
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	id, ok := s.songID(w, r)
	if !ok {
		return
	}

	err := s.service.DeleteSong(id)
	if errors.Is(err, constellation.ErrSongNotFound) {
		s.log.Warnf("Song not found for deletion: %s", id)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song with ID %s not found", id))
		return
	}
	if err != nil {
		s.log.Errorf("Failed to delete song %s: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete song")
		return
	}

	s.log.Infof("Deleted song %s", id)
	s.respondJSON(w, http.StatusOK, DeleteSongResponse{Message: "Song deleted successfully", ID: id})
}

// handleAddSong handles POST /api/songs (multipart: file, title, artist)
func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), addTimeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	artist := strings.TrimSpace(r.FormValue("artist"))
	if title == "" || artist == "" {
		s.respondError(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	path, _, err := s.saveUpload(r, "file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(path)

	songID, err := s.service.AddSong(ctx, path, title, artist)
	if err != nil {
		s.log.Errorf("Failed to add song: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to add song: %v", err))
		return
	}

	s.log.Infof("Added song: %s by %s (ID: %s)", title, artist, songID)
	s.respondJSON(w, http.StatusCreated, AddSongResponse{
		Message: "Song added successfully",
		ID:      songID,
		Title:   title,
		Artist:  artist,
	})
}

// handleMatch handles POST /api/match (multipart: file)
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), matchTimeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	path, name, err := s.saveUpload(r, "file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(path)

	s.log.Infof("Matching uploaded file: %s", name)
	matches, err := s.service.MatchSong(ctx, path)
	if err != nil {
		s.log.Errorf("Failed to match song: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to match song: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, matchResponse(matches))
}

// handleCompare handles POST /api/compare (multipart: reference, query)
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), compareTimeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	refPath, _, err := s.saveUpload(r, "reference")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(refPath)

	queryPath, _, err := s.saveUpload(r, "query")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(queryPath)

	cmp, err := s.service.Compare(ctx, refPath, queryPath)
	if err != nil {
		s.log.Errorf("Failed to compare: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to compare: %v", err))
		return
	}
	s.respondJSON(w, http.StatusOK, compareResponse(cmp))
}
