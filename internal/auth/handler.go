package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"lingua/infrastructure"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=60"`
	FirstName string `json:"first_name" validate:"max=50"`
	LastName  string `json:"last_name" validate:"max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(w, r, &req); err != nil {
		return
	}

	user, err := h.service.Register(r.Context(), RegisterInput{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, infrastructure.ErrUserAlreadyExists):
			h.error(w, http.StatusConflict, "username or email already taken")
		case errors.Is(err, infrastructure.ErrInvalidInput):
			h.error(w, http.StatusBadRequest, err.Error())
		default:
			h.error(w, http.StatusInternalServerError, "failed to register")
		}
		return
	}

	h.json(w, http.StatusCreated, map[string]any{"user_id": user.ID})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req); err != nil {
		return
	}

	tokens, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.error(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	h.json(w, http.StatusOK, map[string]any{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"token_type":    "Bearer",
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.decode(w, r, &req); err != nil {
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.error(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	h.json(w, http.StatusOK, map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.decode(w, r, &req); err != nil {
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		h.error(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decode unmarshals and validates a request body, writing the error
// response itself so callers can just bail out.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return err
	}
	if err := h.validate.Struct(req); err != nil {
		h.error(w, http.StatusBadRequest, err.Error())
		return err
	}
	return nil
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handler) error(w http.ResponseWriter, status int, message string) {
	h.json(w, status, map[string]string{"error": message})
}
