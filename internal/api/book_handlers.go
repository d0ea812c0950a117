package api

import (
	"encoding/json/v2"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bookdenapp/bookden-server/internal/domain"
	"github.com/bookdenapp/bookden-server/internal/http/response"
	"github.com/bookdenapp/bookden-server/internal/service"
)

// handleListBooks returns all books.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.bookService.ListBooks(r.Context())
	if err != nil {
		s.logger.Error("Failed to list books", "error", err)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, books, s.logger)
}

// handleCreateBook creates a book from a JSON payload.
// Only the title is required on this path.
func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var input service.CreateBookInput
	if err := json.UnmarshalRead(r.Body, &input); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	book, err := s.bookService.CreateBook(r.Context(), input)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, book, s.logger)
}

// handleCreateBookFromForm creates a book from a form submission, which
// requires the full descriptive set. Accepts URL-encoded form data.
func (s *Server) handleCreateBookFromForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		response.BadRequest(w, "invalid form data", s.logger)
		return
	}

	form := service.BookForm{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Authors:     r.PostFormValue("authors"),
		FileCover:   r.PostFormValue("file_cover"),
		FileName:    r.PostFormValue("file_name"),
		FileBook:    r.PostFormValue("file_book"),
		Favorite:    r.PostFormValue("favorite") == "true" || r.PostFormValue("favorite") == "on",
	}

	book, err := s.bookService.CreateBookFromForm(r.Context(), form)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, book, s.logger)
}

// handleGetBook returns a single book. Reading through this endpoint counts
// as a view unless ?raw=true is passed.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	var book *domain.Book
	var err error
	if r.URL.Query().Get("raw") == "true" {
		book, err = s.bookService.GetBook(r.Context(), bookID)
	} else {
		book, err = s.bookService.ViewBook(r.Context(), bookID)
	}
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// handleUpdateBook applies a partial update. Fields absent from the payload
// keep their stored values; unknown fields are rejected rather than merged.
func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	var patch domain.BookPatch
	if err := json.UnmarshalRead(r.Body, &patch, json.RejectUnknownMembers(true)); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	book, err := s.bookService.UpdateBook(r.Context(), bookID, patch)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, book, s.logger)
}

// handleDeleteBook removes a book.
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	if err := s.bookService.DeleteBook(r.Context(), bookID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleSearchBooks runs a full-text query over titles and authors.
func (s *Server) handleSearchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		response.BadRequest(w, "query parameter q is required", s.logger)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	result, err := s.searcher.Search(r.Context(), q, limit, offset)
	if err != nil {
		s.logger.Error("Failed to search books", "error", err, "query", q)
		response.InternalError(w, "search failed", s.logger)
		return
	}

	response.Success(w, result, s.logger)
}
