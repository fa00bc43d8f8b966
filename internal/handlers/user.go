package handlers

import (
	"net/http"

	"social-posts-backend/internal/middleware"
	"social-posts-backend/internal/models"
	"social-posts-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
	maxBody     int64
}

// NewUserHandler creates a new user handler; maxBody caps request bodies including uploads
func NewUserHandler(userService *services.UserService, maxBody int64) *UserHandler {
	return &UserHandler{
		userService: userService,
		maxBody:     maxBody,
	}
}

// UserResult is returned by registration and update
type UserResult struct {
	Message string              `json:"message"`
	User    models.UserResponse `json:"user"`
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// ListUsers handles GET /usuarios
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, u.Response())
	}
	respondJSON(w, http.StatusOK, out)
}

// GetUser handles GET /usuario/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		respondError(w, msgInvalidID, http.StatusBadRequest)
		return
	}

	user, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user.Response())
}

// Register handles POST /registrarUsuario
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r, h.maxBody, "photo")
	if err != nil {
		respondFormError(w, err)
		return
	}
	defer form.close()

	user, err := h.userService.Register(r.Context(), services.RegisterInput{
		Name:     form.get("name"),
		Email:    form.get("email"),
		Password: form.get("password"),
		Photo:    form.file,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Info().Int64("user_id", user.ID).Msg("User registered")
	respondJSON(w, http.StatusCreated, UserResult{
		Message: "Usuario registrado correctamente.",
		User:    user.Response(),
	})
}

// Login handles POST /iniciarSesion
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r, h.maxBody, "")
	if err != nil {
		respondFormError(w, err)
		return
	}
	defer form.close()

	token, err := h.userService.Login(r.Context(), form.get("email"), form.get("password"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResult{
		Message: "Inicio de sesión exitoso.",
		Token:   token,
	})
}

// UpdateUser handles PUT /actualizarUsuario/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		respondError(w, msgInvalidID, http.StatusBadRequest)
		return
	}

	form, err := readForm(w, r, h.maxBody, "photo")
	if err != nil {
		respondFormError(w, err)
		return
	}
	defer form.close()

	user, err := h.userService.Update(r.Context(), middleware.GetUserID(r.Context()), id, services.UpdateInput{
		Name:     form.get("name"),
		Email:    form.get("email"),
		Password: form.get("password"),
		Photo:    form.file,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Info().Int64("user_id", user.ID).Msg("User updated")
	respondJSON(w, http.StatusOK, UserResult{
		Message: "Usuario actualizado correctamente.",
		User:    user.Response(),
	})
}

// DeleteUser handles DELETE /eliminarUsuario/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		respondError(w, msgInvalidID, http.StatusBadRequest)
		return
	}

	if err := h.userService.DeleteUser(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		respondServiceError(w, r, err)
		return
	}

	log.Info().Int64("user_id", id).Msg("User deleted")
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Usuario eliminado."})
}
