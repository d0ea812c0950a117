package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookdenapp/bookden-server/internal/http/response"
	"github.com/bookdenapp/bookden-server/internal/realtime"
)

// handleListComments returns a book's comments in ascending creation order.
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	comments, err := s.commentService.ListComments(r.Context(), bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, comments, s.logger)
}

// handlePostComment posts a comment through the broadcast channel so every
// room subscriber, including the poster's own stream, receives it.
func (s *Server) handlePostComment(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	var input realtime.CommentInput
	if err := json.UnmarshalRead(r.Body, &input); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	comment, err := s.commentChannel.Post(r.Context(), bookID, input)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, comment, s.logger)
}
