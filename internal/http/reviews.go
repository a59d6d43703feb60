package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomatomall/tomatomall/internal/domain"
	"github.com/tomatomall/tomatomall/internal/rating"
	"github.com/tomatomall/tomatomall/internal/repository"
)

type ratingRequest struct {
	Score *int `json:"score"`
}

type ratingResponse struct {
	ProductID string  `json:"productId"`
	IsNew     bool    `json:"isNew"`
	Count     int64   `json:"count"`
	Mean      float64 `json:"mean"`
	Message   string  `json:"message"`
}

type commentRequest struct {
	Detail string `json:"detail"`
}

type commentResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	UserID    string `json:"userId"`
	Detail    string `json:"detail"`
}

type commentListResponse struct {
	Items []commentResponse `json:"items"`
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}
	productID, ok := s.productIDParam(w, r)
	if !ok {
		return
	}

	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Score == nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "score is required")
		return
	}

	result, err := s.ratings.Submit(r.Context(), productID, userID, *req.Score)
	if err != nil {
		s.respondRatingError(w, err)
		return
	}

	status := http.StatusOK
	message := "Rating updated"
	if result.IsNew {
		status = http.StatusCreated
		message = "Rating recorded"
	}
	s.respondJSON(w, status, ratingResponse{
		ProductID: productID,
		IsNew:     result.IsNew,
		Count:     result.Count,
		Mean:      result.Mean,
		Message:   message,
	})
}

func (s *Server) respondRatingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rating.ErrScoreOutOfRange):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "score must be an integer between 1 and 5")
	case errors.Is(err, rating.ErrProductNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, rating.ErrNotAuthenticated):
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
	case errors.Is(err, rating.ErrStorageConflict):
		s.logger.Printf("rating conflict not resolved: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record rating, please retry")
	default:
		s.logger.Printf("submit rating error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record rating")
	}
}

func (s *Server) handleUpsertComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}
	productID, ok := s.productIDParam(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Detail) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "detail is required")
		return
	}

	exists, err := s.repo.Products.Exists(r.Context(), productID)
	if err != nil {
		s.logger.Printf("check product for comment failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save comment")
		return
	}
	if !exists {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return
	}

	comment, inserted, err := s.repo.Comments.Upsert(r.Context(), repository.CommentUpsertParams{
		ProductID: productID,
		UserID:    userID,
		Detail:    strings.TrimSpace(req.Detail),
	})
	if err != nil {
		s.logger.Printf("upsert comment error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save comment")
		return
	}

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, toCommentResponse(comment))
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	productID, ok := s.productIDParam(w, r)
	if !ok {
		return
	}

	exists, err := s.repo.Products.Exists(r.Context(), productID)
	if err != nil {
		s.logger.Printf("check product for comments failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list comments")
		return
	}
	if !exists {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return
	}

	comments, err := s.repo.Comments.ListByProduct(r.Context(), productID)
	if err != nil {
		s.logger.Printf("list comments error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list comments")
		return
	}

	items := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		items = append(items, toCommentResponse(comment))
	}
	s.respondJSON(w, http.StatusOK, commentListResponse{Items: items})
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	commentID := chi.URLParam(r, "commentID")
	if commentID == "" || uuid.Validate(commentID) != nil {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return
	}

	var req commentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Detail) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "detail is required")
		return
	}

	comment, err := s.repo.Comments.Update(r.Context(), commentID, userID, strings.TrimSpace(req.Detail))
	if err != nil {
		s.respondRepositoryError(w, err, "Failed to update comment")
		return
	}
	s.respondJSON(w, http.StatusOK, toCommentResponse(comment))
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}
	productID, ok := s.productIDParam(w, r)
	if !ok {
		return
	}

	if err := s.repo.Comments.Delete(r.Context(), productID, userID); err != nil {
		s.respondRepositoryError(w, err, "Failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toCommentResponse(comment domain.Comment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		ProductID: comment.ProductID,
		UserID:    comment.UserID,
		Detail:    comment.Detail,
	}
}
