package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driving"
)

// asyncTokenCookie carries the signed channel token for async query
// event polling.
const asyncTokenCookie = "async-token"

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// EventsResponse wraps the events returned by one poll
// @Description Async query events after the client's cursor
type EventsResponse struct {
	Result []domain.JobEvent `json:"result"`
}

// DispatchResponse reports how many due schedules were enqueued
// @Description Report dispatch result
type DispatchResponse struct {
	Dispatched int `json:"dispatched"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks database and queue connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "A backing service is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "task queue unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

// handleLogin godoc
// @Summary      User login
// @Description  Authenticate with email and password to receive a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials or account disabled"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidCredentials:
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case domain.ErrUnauthorized:
			writeError(w, http.StatusUnauthorized, "account disabled")
		default:
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh godoc
// @Summary      Refresh token
// @Description  Exchange a refresh token for a new JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid refresh token"
// @Router       /auth/refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.RefreshToken(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLogout godoc
// @Summary      Logout user
// @Description  Invalidate the current session token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	_ = s.authService.Logout(r.Context(), token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogoutAll godoc
// @Summary      Logout everywhere
// @Description  Invalidate all sessions for the current user
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /auth/logout-all [post]
func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.authService.LogoutAll(r.Context(), authCtx.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Setup endpoint (no auth required, one-time use)

// handleSetup godoc
// @Summary      Initial setup
// @Description  Create the initial admin user. This endpoint can only be called once when no users exist.
// @Tags         Setup
// @Accept       json
// @Produce      json
// @Param        request  body      driving.SetupRequest  true  "Admin user details"
// @Success      201      {object}  driving.SetupResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      403      {object}  ErrorResponse  "Setup already complete"
// @Failure      500      {object}  ErrorResponse  "Setup failed"
// @Router       /setup [post]
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req driving.SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.userService.Setup(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "email, password, and name are required")
		case domain.ErrForbidden:
			writeError(w, http.StatusForbidden, "setup already complete")
		default:
			writeError(w, http.StatusInternalServerError, "setup failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// User endpoints

// handleGetMe godoc
// @Summary      Get current user
// @Description  Get the currently authenticated user's profile
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Router       /me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := s.userService.Get(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user.ToSummary())
}

// handleChangePassword godoc
// @Summary      Change password
// @Description  Change the current user's password
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.ChangePasswordRequest  true  "Current and new password"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Wrong current password"
// @Router       /me/password [put]
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.authService.ChangePassword(r.Context(), authCtx.UserID, req); err != nil {
		switch err {
		case domain.ErrInvalidCredentials:
			writeError(w, http.StatusUnauthorized, "wrong current password")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "password change failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListUsers godoc
// @Summary      List all users
// @Description  Get a list of all users (admin only)
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /users [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	summaries := make([]*domain.UserSummary, len(users))
	for i, u := range users {
		summaries[i] = u.ToSummary()
	}

	writeJSON(w, http.StatusOK, summaries)
}

// handleCreateUser godoc
// @Summary      Create user
// @Description  Create a new user (admin only)
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateUserRequest  true  "User details"
// @Success      201      {object}  domain.UserSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      409      {object}  ErrorResponse  "User already exists"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /users [post]
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.Create(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrAlreadyExists:
			writeError(w, http.StatusConflict, "user already exists")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user.ToSummary())
}

// handleGetUser godoc
// @Summary      Get user
// @Description  Get a user by ID (admin only)
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  domain.UserSummary
// @Failure      400  {object}  ErrorResponse  "Missing user ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Router       /users/{id} [get]
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	user, err := s.userService.Get(r.Context(), id)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user.ToSummary())
}

// handleUpdateUser godoc
// @Summary      Update user
// @Description  Update a user's name, role or active state (admin only)
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        request  body      driving.UpdateUserRequest  true  "Fields to update"
// @Success      200      {object}  domain.UserSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404      {object}  ErrorResponse  "User not found"
// @Router       /users/{id} [put]
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req driving.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.Update(r.Context(), id, req)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "user not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	writeJSON(w, http.StatusOK, user.ToSummary())
}

// handleDeleteUser godoc
// @Summary      Delete user
// @Description  Delete a user by ID (admin only)
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse  "Missing user ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /users/{id} [delete]
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	if err := s.userService.Delete(r.Context(), id); err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "user not found")
		case domain.ErrForbidden:
			writeError(w, http.StatusForbidden, "cannot delete this user")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete user")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Database endpoints

// handleListDatabases godoc
// @Summary      List databases
// @Description  Get all registered database connections (no secrets)
// @Tags         Databases
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.DatabaseSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /databases [get]
func (s *Server) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	databases, err := s.databaseService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list databases")
		return
	}

	writeJSON(w, http.StatusOK, databases)
}

// handleCreateDatabase godoc
// @Summary      Register database
// @Description  Register a new database connection (admin only)
// @Tags         Databases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateDatabaseRequest  true  "Database connection details"
// @Success      201      {object}  domain.DatabaseSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input or unknown engine"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      409      {object}  ErrorResponse  "Database name already registered"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /databases [post]
func (s *Server) handleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateDatabaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := s.databaseService.Create(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		case domain.ErrUnknownEngine:
			writeError(w, http.StatusBadRequest, "unknown engine")
		case domain.ErrAlreadyExists:
			writeError(w, http.StatusConflict, "database already registered")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create database")
		}
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

// handleGetDatabase godoc
// @Summary      Get database
// @Description  Get a database connection with its encrypted extra masked
// @Tags         Databases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Database ID"
// @Success      200  {object}  driving.DatabaseResponse
// @Failure      400  {object}  ErrorResponse  "Missing database ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Database not found"
// @Router       /databases/{id} [get]
func (s *Server) handleGetDatabase(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing database id")
		return
	}

	resp, err := s.databaseService.Get(r.Context(), id)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "database not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get database")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleUpdateDatabase godoc
// @Summary      Update database
// @Description  Update a database connection (admin only). Omitted fields are left unchanged.
// @Tags         Databases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Database ID"
// @Param        request  body      driving.UpdateDatabaseRequest  true  "Fields to update"
// @Success      200      {object}  driving.DatabaseResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404      {object}  ErrorResponse  "Database not found"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /databases/{id} [put]
func (s *Server) handleUpdateDatabase(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing database id")
		return
	}

	var req driving.UpdateDatabaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.databaseService.Update(r.Context(), id, req)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "database not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update database")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteDatabase godoc
// @Summary      Delete database
// @Description  Remove a database connection (admin only)
// @Tags         Databases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Database ID"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse  "Missing database ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Database not found"
// @Router       /databases/{id} [delete]
func (s *Server) handleDeleteDatabase(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing database id")
		return
	}

	if err := s.databaseService.Delete(r.Context(), id); err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "database not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete database")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// OAuth2 client credential endpoints

// handleGetClientInfo godoc
// @Summary      Get OAuth2 client credentials
// @Description  Get the stored OAuth2 client credentials for a database with the secret masked (admin only)
// @Tags         Databases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Database ID"
// @Success      200  {object}  driving.ClientInfoResponse
// @Failure      400  {object}  ErrorResponse  "Missing database ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Database not found"
// @Router       /databases/{id}/oauth2-client-info [get]
func (s *Server) handleGetClientInfo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing database id")
		return
	}

	resp, err := s.databaseService.GetClientInfo(r.Context(), id)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "database not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get client info")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSaveClientInfo godoc
// @Summary      Save OAuth2 client credentials
// @Description  Store OAuth2 client credentials for a database (admin only). A masked secret keeps the stored one; other encrypted-extra keys are preserved.
// @Tags         Databases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Database ID"
// @Param        request  body      domain.ClientInfoChange  true  "Full credential record, wrapped in the form change envelope"
// @Success      200      {object}  driving.ClientInfoResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404      {object}  ErrorResponse  "Database not found"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /databases/{id}/oauth2-client-info [put]
func (s *Server) handleSaveClientInfo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing database id")
		return
	}

	// Accepts the change envelope the form emits. The target name must
	// identify the client info record.
	var change domain.ClientInfoChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if change.Target.Name != domain.EncryptedExtraKey {
		writeError(w, http.StatusBadRequest, "unexpected target name")
		return
	}

	resp, err := s.databaseService.SaveClientInfo(r.Context(), id, change.Target.Value)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "database not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to save client info")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleClientInfoForm godoc
// @Summary      Get OAuth2 client form
// @Description  Get the OAuth2 client credential form schema with the masked record it should be hydrated with (admin only)
// @Tags         Databases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Database ID"
// @Success      200  {object}  driving.ClientInfoFormResponse
// @Failure      400  {object}  ErrorResponse  "Missing database ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Database not found"
// @Router       /databases/{id}/oauth2-client-info/form [get]
func (s *Server) handleClientInfoForm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing database id")
		return
	}

	resp, err := s.databaseService.ClientInfoFormSchema(r.Context(), id)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "database not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get form schema")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleClientInfoFormSchema godoc
// @Summary      Get OAuth2 client form schema
// @Description  Get the static OAuth2 client credential form schema, without database context
// @Tags         Databases
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.FormSectionSpec
// @Router       /databases/form-schemas/oauth2-client-info [get]
func (s *Server) handleClientInfoFormSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.ClientInfoFormSchema())
}

// handleListEngines godoc
// @Summary      List engines
// @Description  Get metadata for all supported database engines
// @Tags         Databases
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.EngineInfo
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /engines [get]
func (s *Server) handleListEngines(w http.ResponseWriter, r *http.Request) {
	engines, err := s.databaseService.ListEngines(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list engines")
		return
	}

	writeJSON(w, http.StatusOK, engines)
}

// Async query endpoints

// handleSubmitChartData godoc
// @Summary      Submit async chart data query
// @Description  Accept a chart data request for background execution. The caller's event channel token is set as a cookie; poll /async-events for job updates.
// @Tags         AsyncQueries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.ChartDataRequest  true  "Chart data request"
// @Success      202      {object}  domain.JobMetadata
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      404      {object}  ErrorResponse  "Database not found"
// @Failure      500      {object}  ErrorResponse  "Submission failed"
// @Failure      503      {object}  ErrorResponse  "Async queries unavailable"
// @Router       /charts/data/async [post]
func (s *Server) handleSubmitChartData(w http.ResponseWriter, r *http.Request) {
	if s.asyncService == nil {
		writeError(w, http.StatusServiceUnavailable, "async queries unavailable (Redis not configured)")
		return
	}

	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req driving.ChartDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	grant, err := s.asyncService.EnsureChannel(r.Context(), asyncToken(r), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to establish event channel")
		return
	}
	if grant.Reissued {
		setAsyncTokenCookie(w, grant.Token)
	}

	job, err := s.asyncService.SubmitChartData(r.Context(), grant.Token, req)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "database not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to submit query")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

// handleAsyncEvents godoc
// @Summary      Poll async query events
// @Description  Return job updates on the caller's event channel after last_id. The channel is identified by the async token cookie set at submission.
// @Tags         AsyncQueries
// @Produce      json
// @Param        last_id  query     string  false  "Last event ID the client has seen"
// @Success      200      {object}  EventsResponse
// @Failure      401      {object}  ErrorResponse  "Missing or invalid channel token"
// @Failure      500      {object}  ErrorResponse  "Read failed"
// @Failure      503      {object}  ErrorResponse  "Async queries unavailable"
// @Router       /async-events [get]
func (s *Server) handleAsyncEvents(w http.ResponseWriter, r *http.Request) {
	if s.asyncService == nil {
		writeError(w, http.StatusServiceUnavailable, "async queries unavailable (Redis not configured)")
		return
	}

	token := asyncToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing channel token")
		return
	}

	lastID := r.URL.Query().Get("last_id")
	events, err := s.asyncService.ReadEvents(r.Context(), token, lastID)
	if err != nil {
		if err == domain.ErrChannelTokenInvalid {
			writeError(w, http.StatusUnauthorized, "invalid channel token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read events")
		return
	}

	if events == nil {
		events = []domain.JobEvent{}
	}
	writeJSON(w, http.StatusOK, EventsResponse{Result: events})
}

// Report schedule endpoints

// handleListReports godoc
// @Summary      List report schedules
// @Description  Get all report schedules (admin only)
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.ReportSchedule
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /reports [get]
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.reportService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	writeJSON(w, http.StatusOK, schedules)
}

// handleCreateReport godoc
// @Summary      Create report schedule
// @Description  Register a new report schedule (admin only)
// @Tags         Reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateReportRequest  true  "Schedule details"
// @Success      201      {object}  domain.ReportSchedule
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404      {object}  ErrorResponse  "Database not found"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /reports [post]
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	schedule, err := s.reportService.Create(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "database not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create report")
		}
		return
	}

	writeJSON(w, http.StatusCreated, schedule)
}

// handleGetReport godoc
// @Summary      Get report schedule
// @Description  Get a report schedule by ID (admin only)
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Schedule ID"
// @Success      200  {object}  domain.ReportSchedule
// @Failure      400  {object}  ErrorResponse  "Missing schedule ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Schedule not found"
// @Router       /reports/{id} [get]
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing schedule id")
		return
	}

	schedule, err := s.reportService.Get(r.Context(), id)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get report")
		return
	}

	writeJSON(w, http.StatusOK, schedule)
}

// handleUpdateReport godoc
// @Summary      Update report schedule
// @Description  Update a report schedule (admin only). Omitted fields are left unchanged.
// @Tags         Reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Schedule ID"
// @Param        request  body      driving.UpdateReportRequest  true  "Fields to update"
// @Success      200      {object}  domain.ReportSchedule
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404      {object}  ErrorResponse  "Schedule not found"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /reports/{id} [put]
func (s *Server) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing schedule id")
		return
	}

	var req driving.UpdateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	schedule, err := s.reportService.Update(r.Context(), id, req)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "schedule not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update report")
		}
		return
	}

	writeJSON(w, http.StatusOK, schedule)
}

// handleDeleteReport godoc
// @Summary      Delete report schedule
// @Description  Remove a report schedule (admin only)
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Schedule ID"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse  "Missing schedule ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Schedule not found"
// @Router       /reports/{id} [delete]
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing schedule id")
		return
	}

	if err := s.reportService.Delete(r.Context(), id); err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete report")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListReportExecutions godoc
// @Summary      List report executions
// @Description  Get the most recent executions for a report schedule (admin only)
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Schedule ID"
// @Param        limit  query     int     false  "Maximum entries to return (default 20)"
// @Success      200  {array}   domain.ReportExecutionLog
// @Failure      400  {object}  ErrorResponse  "Missing schedule ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Schedule not found"
// @Router       /reports/{id}/executions [get]
func (s *Server) handleListReportExecutions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing schedule id")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	executions, err := s.reportService.ListExecutions(r.Context(), id, limit)
	if err != nil {
		if err == domain.ErrNotFound {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list executions")
		return
	}

	writeJSON(w, http.StatusOK, executions)
}

// handleDispatchReports godoc
// @Summary      Dispatch due reports
// @Description  Enqueue execution tasks for all due report schedules now (admin only). Normally this runs on the worker's scheduler tick.
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  DispatchResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      500  {object}  ErrorResponse  "Dispatch failed"
// @Router       /reports/dispatch [post]
func (s *Server) handleDispatchReports(w http.ResponseWriter, r *http.Request) {
	dispatched, err := s.reportService.DispatchDue(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to dispatch reports")
		return
	}

	writeJSON(w, http.StatusOK, DispatchResponse{Dispatched: dispatched})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// asyncToken reads the channel token cookie, if any.
func asyncToken(r *http.Request) string {
	cookie, err := r.Cookie(asyncTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setAsyncTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     asyncTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(7 * 24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
