package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"serwis-uzytkownikow/internal/authz"
	"serwis-uzytkownikow/internal/database"
	"serwis-uzytkownikow/internal/models"

	"github.com/go-chi/chi/v5"
)

func userIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrDuplicateEmail):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, database.ErrDuplicateProviderIdentity):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, database.ErrNegativeQuota):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, database.ErrInvalidRole):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, database.ErrNoSuchUser):
		http.Error(w, "User not found", http.StatusNotFound)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

type CreateUserRequest struct {
	Email string `json:"email" example:"n@t.com"`
	Role  string `json:"role,omitempty" example:"user"`
	Quota *int64 `json:"quota,omitempty" example:"100"`
}

// @Summary      Create a user
// @Description  Creates a user record directly. Admin only.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        createUserRequest  body  CreateUserRequest  true  "New user"
// @Success      201  {object}  models.User
// @Failure      400  {string}  string "Missing email or invalid fields"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Forbidden"
// @Failure      409  {string}  string "Email or provider identity already taken"
// @Router       /users [post]
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	if err := authz.Decide(actorFromClaims(claims), authz.OpCreateUser, 0); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	quota := models.DefaultQuota
	if req.Quota != nil {
		quota = *req.Quota
	}

	var user *models.User
	err := s.store.ExecRecorded(r.Context(), &claims.UserID, database.EventUserCreated, func(q *database.Queries) (int64, interface{}, error) {
		u, err := q.CreateUser(r.Context(), database.CreateUserParams{
			Email: req.Email,
			Role:  req.Role,
			Quota: quota,
		})
		if err != nil {
			return 0, nil, err
		}
		user = u
		return u.ID, u, nil
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// @Summary      List users
// @Description  Lists all user records. Admin only.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query  int  false  "Page size (default 100)"
// @Param        offset  query  int  false  "Page offset"
// @Success      200  {array}   models.User
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Forbidden"
// @Router       /users [get]
func (s *Server) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	if err := authz.Decide(actorFromClaims(claims), authz.OpListUsers, 0); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	users, err := s.store.ListUsers(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

// @Summary      Get a user
// @Description  Retrieves a user record. Allowed for the user themselves or an admin.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "User id"
// @Success      200  {object}  models.User
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "User not found"
// @Router       /users/{id} [get]
func (s *Server) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	id, err := userIDParam(r)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	if err := authz.Decide(actorFromClaims(claims), authz.OpReadUser, id); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

type UpdateUserRequest struct {
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
	Quota *int64  `json:"quota,omitempty"`
}

// @Summary      Update a user
// @Description  Applies the supplied fields. A non-admin may update only their own email; role and quota in the request are ignored unless the caller is an admin.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id                 path  int                true  "User id"
// @Param        updateUserRequest  body  UpdateUserRequest  true  "Fields to change"
// @Success      200  {object}  models.User
// @Failure      400  {string}  string "Invalid fields"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "User not found"
// @Failure      409  {string}  string "Email already taken"
// @Router       /users/{id} [put]
func (s *Server) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	id, err := userIDParam(r)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	actor := actorFromClaims(claims)
	if err := authz.Decide(actor, authz.OpUpdateUser, id); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	fields := authz.AllowedUpdateFields(actor, authz.UpdateRequest{
		Email: req.Email,
		Role:  req.Role,
		Quota: req.Quota,
	})

	var user *models.User
	err = s.store.ExecRecorded(r.Context(), &claims.UserID, database.EventUserUpdated, func(q *database.Queries) (int64, interface{}, error) {
		u, err := q.UpdateUser(r.Context(), id, database.UpdateUserParams{
			Email: fields.Email,
			Role:  fields.Role,
			Quota: fields.Quota,
		})
		if err != nil {
			return 0, nil, err
		}
		if u == nil {
			return 0, nil, database.ErrNoSuchUser
		}
		user = u
		return u.ID, u, nil
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

type UpdateRoleRequest struct {
	Role string `json:"role" example:"admin"`
}

// @Summary      Change a user's role
// @Description  Sets the role to 'user' or 'admin'. Admin only.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id                 path  int                true  "User id"
// @Param        updateRoleRequest  body  UpdateRoleRequest  true  "New role"
// @Success      200  {object}  models.User
// @Failure      400  {string}  string "Invalid role"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "User not found"
// @Router       /users/{id}/role [patch]
func (s *Server) UpdateUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	id, err := userIDParam(r)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	if err := authz.Decide(actorFromClaims(claims), authz.OpChangeRole, id); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user *models.User
	err = s.store.ExecRecorded(r.Context(), &claims.UserID, database.EventUserRoleChanged, func(q *database.Queries) (int64, interface{}, error) {
		u, err := q.UpdateUser(r.Context(), id, database.UpdateUserParams{Role: &req.Role})
		if err != nil {
			return 0, nil, err
		}
		if u == nil {
			return 0, nil, database.ErrNoSuchUser
		}
		user = u
		return u.ID, map[string]interface{}{"user_id": u.ID, "role": u.Role}, nil
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

type UpdateQuotaRequest struct {
	Quota *int64 `json:"quota" example:"50"`
}

// @Summary      Change a user's quota
// @Description  Sets the quota to a non-negative integer. Admin only.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id                  path  int                 true  "User id"
// @Param        updateQuotaRequest  body  UpdateQuotaRequest  true  "New quota"
// @Success      200  {object}  models.User
// @Failure      400  {string}  string "Missing, non-integer or negative quota"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "User not found"
// @Router       /users/{id}/quota [patch]
func (s *Server) UpdateUserQuotaHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	id, err := userIDParam(r)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	if err := authz.Decide(actorFromClaims(claims), authz.OpChangeQuota, id); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req UpdateQuotaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quota == nil {
		http.Error(w, "Quota is required", http.StatusBadRequest)
		return
	}

	var user *models.User
	err = s.store.ExecRecorded(r.Context(), &claims.UserID, database.EventUserQuotaChanged, func(q *database.Queries) (int64, interface{}, error) {
		u, err := q.UpdateUser(r.Context(), id, database.UpdateUserParams{Quota: req.Quota})
		if err != nil {
			return 0, nil, err
		}
		if u == nil {
			return 0, nil, database.ErrNoSuchUser
		}
		user = u
		return u.ID, map[string]interface{}{"user_id": u.ID, "quota": u.Quota}, nil
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// @Summary      Delete a user
// @Description  Removes a user record permanently. Admin only.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "User id"
// @Success      200  {object}  map[string]string
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Forbidden"
// @Failure      404  {string}  string "User not found"
// @Router       /users/{id} [delete]
func (s *Server) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	id, err := userIDParam(r)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	if err := authz.Decide(actorFromClaims(claims), authz.OpDeleteUser, id); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	err = s.store.ExecRecorded(r.Context(), &claims.UserID, database.EventUserDeleted, func(q *database.Queries) (int64, interface{}, error) {
		deleted, err := q.DeleteUser(r.Context(), id)
		if err != nil {
			return 0, nil, err
		}
		if !deleted {
			return 0, nil, database.ErrNoSuchUser
		}
		return id, map[string]interface{}{"user_id": id}, nil
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "User deleted"})
}

// @Summary      Get own profile
// @Description  Returns the record matching the token's subject. Works for any valid credential.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Subject no longer exists"
// @Router       /users/me [get]
func (s *Server) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	if err := authz.Decide(actorFromClaims(claims), authz.OpReadSelf, claims.UserID); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "Failed to retrieve user data", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// @Summary      Health check
// @Tags         health
// @Success      200  {string}  string "OK"
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.GetPool().Ping(r.Context()); err != nil {
		http.Error(w, "Database unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
