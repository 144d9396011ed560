package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/phrazzld/task-manager-api/internal/api/middleware"
	"github.com/phrazzld/task-manager-api/internal/api/shared"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/service"
)

// avatarFormField is the multipart field carrying the uploaded image.
const avatarFormField = "avatar"

// multipartOverhead is the allowance for multipart framing on top of the
// image itself.
const multipartOverhead = 64 << 10

// UserHandler handles account, session and avatar requests.
type UserHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users service.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		users:  users,
		logger: logger.With(slog.String("component", "user_handler")),
	}
}

// Register handles POST /users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RegisterRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		log.Debug("failed to decode register request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	user, token, err := h.users.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		User:  userToResponse(user),
		Token: token,
	})
}

// Login handles POST /users/login. Every failure to authenticate gets the
// same 400 response.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, service.ErrInvalidCredentials, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, service.ErrInvalidCredentials, "")
		return
	}

	user, token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to log in")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		User:  userToResponse(user),
		Token: token,
	})
}

// Logout handles POST /users/logout, ending the session the request
// authenticated with.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	token, _ := middleware.GetToken(r)

	if err := h.users.Logout(r.Context(), user.ID, token); err != nil {
		HandleAPIError(w, r, err, "Failed to log out")
		return
	}
	shared.RespondEmpty(w, http.StatusOK)
}

// LogoutAll handles POST /users/logoutAll.
func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.users.LogoutAll(r.Context(), user.ID); err != nil {
		HandleAPIError(w, r, err, "Failed to log out")
		return
	}
	shared.RespondEmpty(w, http.StatusOK)
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(user))
}

// UpdateMe handles PATCH /users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	updates, err := shared.DecodeJSONObject(w, r)
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).
			Debug("failed to decode profile update", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user.ID, updates)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(updated))
}

// DeleteMe handles DELETE /users/me. The account's tasks go with it.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	deleted, err := h.users.DeleteAccount(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to delete user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(deleted))
}

// UploadAvatar handles POST /users/me/avatar. The image arrives as the
// multipart field "avatar".
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAvatarBytes+multipartOverhead)
	file, header, err := r.FormFile(avatarFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleAPIError(w, r, service.ErrAvatarTooLarge, "")
			return
		}
		log.Debug("avatar upload without a file", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Please upload an image")
		return
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			log.Warn("failed to close uploaded avatar", slog.String("error", cerr.Error()))
		}
	}()

	// One byte past the limit is enough to know it was exceeded.
	data, err := io.ReadAll(io.LimitReader(file, service.MaxAvatarBytes+1))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read avatar")
		return
	}

	if err := h.users.SetAvatar(r.Context(), user.ID, header.Filename, data); err != nil {
		HandleAPIError(w, r, err, "Failed to save avatar")
		return
	}
	shared.RespondEmpty(w, http.StatusOK)
}

// DeleteAvatar handles DELETE /users/me/avatar.
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.users.DeleteAvatar(r.Context(), user.ID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete avatar")
		return
	}
	shared.RespondEmpty(w, http.StatusOK)
}

// GetAvatar handles GET /users/{id}/avatar.png. It needs no authentication.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := getPathUUID(r, "id", service.ErrAvatarNotFound)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	avatar, err := h.users.GetAvatar(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load avatar")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(avatar); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).
			Warn("failed to write avatar", slog.String("error", err.Error()))
	}
}
