package handlers

import (
	"net/http"

	"social-posts-backend/internal/middleware"
	"social-posts-backend/internal/models"
	"social-posts-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PostHandler handles post-related HTTP requests
type PostHandler struct {
	postService *services.PostService
	maxBody     int64
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *services.PostService, maxBody int64) *PostHandler {
	return &PostHandler{
		postService: postService,
		maxBody:     maxBody,
	}
}

// PostResult is returned by post creation
type PostResult struct {
	Message string       `json:"message"`
	Post    *models.Post `json:"post"`
}

// ListPosts handles GET /posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.ListPosts(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	respondJSON(w, http.StatusOK, posts)
}

// CreatePost handles POST /crearPost
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r, h.maxBody, "image")
	if err != nil {
		respondFormError(w, err)
		return
	}
	defer form.close()

	userID := middleware.GetUserID(r.Context())
	post, err := h.postService.CreatePost(r.Context(), userID, services.CreatePostInput{
		Content: form.get("content"),
		City:    form.get("city"),
		Country: form.get("country"),
		Image:   form.file,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Info().Int64("post_id", post.ID).Int64("user_id", userID).Msg("Post created")
	respondJSON(w, http.StatusCreated, PostResult{
		Message: "Post creado correctamente.",
		Post:    post,
	})
}

// DeletePost handles DELETE /eliminarPost/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		respondError(w, msgInvalidID, http.StatusBadRequest)
		return
	}

	if err := h.postService.DeletePost(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Info().Int64("post_id", id).Msg("Post deleted")
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Post eliminado."})
}
