package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/slidesage/slidesage/internal/search"
	"github.com/slidesage/slidesage/internal/session"
)

// maxUploadBytes bounds document and page image uploads.
const maxUploadBytes = 32 << 20

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorCode(w, status, msg, "")
}

func writeErrorCode(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg, Code: code})
}

// registerRoutes mounts the session API routes. The documents segment uses
// a single route param: chi cannot dispatch sibling {filename} and {docID}
// patterns at the same segment, so POST reads it as the original filename
// and the other operations read it as the document ID.
func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession())
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteSession())
			r.Get("/ready", s.handleReady())
			r.Post("/search", s.handleSearch())
			r.Route("/documents/{document}", func(r chi.Router) {
				r.Post("/", s.handleUploadDocument())
				r.Delete("/", s.handleDeleteDocument())
				r.Put("/pages/{page}", s.handlePutPage())
			})
		})
	})
}

func (s *Server) handleCreateSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := s.sessions.Create(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"session_id": sid})
	}
}

func (s *Server) handleDeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "id")
		if err := s.sessions.Delete(r.Context(), sid); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "id")
		ready, err := s.sessions.Ready(r.Context(), sid)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"ready": ready})
	}
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "id")

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := s.engine.Search(r.Context(), sid, req.Query, req.TopK)
		if err != nil {
			switch {
			case errors.Is(err, search.ErrEmptyQuery):
				writeError(w, http.StatusBadRequest, "query is required")
			case errors.Is(err, search.ErrUnknownSession):
				writeError(w, http.StatusNotFound, "session not found")
			case errors.Is(err, search.ErrNotIndexed):
				writeErrorCode(w, http.StatusConflict, "session has no indexed pages yet", "not_indexed")
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func (s *Server) handleUploadDocument() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "id")
		filename := chi.URLParam(r, "document")

		if session.DocumentIDFromFilename(filename) == "" {
			writeError(w, http.StatusBadRequest, "invalid document filename")
			return
		}

		data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading request body")
			return
		}
		if len(data) == 0 {
			writeError(w, http.StatusBadRequest, "document body is empty")
			return
		}

		docID, err := s.sessions.UploadDocument(r.Context(), sid, filename, data)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"document_id": docID})
	}
}

func (s *Server) handleDeleteDocument() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "id")
		docID := chi.URLParam(r, "document")

		if err := s.sessions.DeleteDocument(r.Context(), sid, docID); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePutPage stores one rendered page image. Indexing is asynchronous:
// the blob store's create notification feeds the ingest dispatcher, so a
// 202 here only means the image is durably stored.
func (s *Server) handlePutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "id")
		docID := chi.URLParam(r, "document")

		page, err := strconv.Atoi(chi.URLParam(r, "page"))
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}

		exists, err := s.sessions.Exists(r.Context(), sid)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}

		data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading request body")
			return
		}
		if len(data) == 0 {
			writeError(w, http.StatusBadRequest, "page image is empty")
			return
		}

		key := session.ImageKey(sid, docID, page)
		if err := s.blobs.Put(r.Context(), key, data); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"image_key": key})
	}
}
