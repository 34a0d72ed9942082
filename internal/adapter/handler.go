package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/andresgmz/account-service/internal/entity"
	"github.com/andresgmz/account-service/internal/token"
	"github.com/andresgmz/account-service/internal/usecase"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AccountService is the slice of the account usecase the HTTP layer needs.
type AccountService interface {
	Register(ctx context.Context, name, email, password string) (*entity.User, error)
	Verify(ctx context.Context, email, submittedCode string) (string, error)
	Login(ctx context.Context, email, password string) (*usecase.LoginResult, error)
	RefreshSession(ctx context.Context, refreshToken string) (token.Pair, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
	RegenerateCode(ctx context.Context, email string) (string, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	Update(ctx context.Context, id, name, email, password string) (*entity.User, error)
	Delete(ctx context.Context, id string) error
}

type AccountHandler struct {
	service AccountService
	logger  *zap.Logger
}

func NewAccountHandler(service AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger.Named("AccountHandler"),
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verificationCode"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type updateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"isVerified"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type loginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         userResponse `json:"user"`
}

func toUserResponse(u *entity.User) userResponse {
	return userResponse{
		ID:         u.ID.Hex(),
		Name:       u.Name,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		Role:       u.Role,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Name, email, and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(w, "Register", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.VerificationCode == "" {
		http.Error(w, "Email and verification code are required", http.StatusBadRequest)
		return
	}

	message, err := h.service.Verify(r.Context(), req.Email, req.VerificationCode)
	if err != nil {
		h.writeError(w, "Verify", err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}
	h.writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		User:         toUserResponse(result.User),
	})
}

func (h *AccountHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		http.Error(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	pair, err := h.service.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, "RefreshToken", err)
		return
	}
	h.writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		http.Error(w, "Current and new password are required", http.StatusBadRequest)
		return
	}

	if err := h.service.ChangePassword(r.Context(), chi.URLParam(r, "id"), req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, "ChangePassword", err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "password changed successfully"})
}

func (h *AccountHandler) RegenerateCode(w http.ResponseWriter, r *http.Request) {
	message, err := h.service.RegenerateCode(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeError(w, "RegenerateCode", err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

func (h *AccountHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AccountHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeError(w, "GetByEmail", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, "List", err)
		return
	}
	response := make([]userResponse, 0, len(users))
	for _, user := range users {
		response = append(response, toUserResponse(user))
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps domain errors to HTTP status codes so the transport stays
// a thin shell over the usecase.
func (h *AccountHandler) writeError(w http.ResponseWriter, op string, err error) {
	var status int
	switch {
	case errors.Is(err, usecase.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, usecase.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecase.ErrInvalidCode), errors.Is(err, usecase.ErrCodeExpired):
		status = http.StatusBadRequest
	case errors.Is(err, usecase.ErrInvalidCredentials),
		errors.Is(err, usecase.ErrUserNotVerified),
		errors.Is(err, usecase.ErrInvalidRefreshToken):
		status = http.StatusUnauthorized
	case errors.Is(err, usecase.ErrRefreshForbidden):
		status = http.StatusForbidden
	default:
		h.logger.Error("Request failed", zap.String("operation", op), zap.Error(err))
		status = http.StatusInternalServerError
		http.Error(w, "Internal server error", status)
		return
	}

	h.logger.Warn("Request rejected", zap.String("operation", op), zap.Error(err))
	http.Error(w, err.Error(), status)
}
