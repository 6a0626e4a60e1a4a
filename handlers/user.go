package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ray-remotestate/foodie/access"
	"github.com/ray-remotestate/foodie/apperr"
	"github.com/ray-remotestate/foodie/database"
	"github.com/ray-remotestate/foodie/database/dbhelper"
	"github.com/ray-remotestate/foodie/models"
	"github.com/ray-remotestate/foodie/utils"
	"github.com/sirupsen/logrus"
)

const (
	refreshCookie     = "refresh_token"
	minPasswordLength = 6
)

type authResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type newUserRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Phone    string         `json:"phone"`
	Password string         `json:"password"`
	Address  models.Address `json:"address"`
	Roles    []string       `json:"roles"`
}

func (req newUserRequest) validate() error {
	var result *multierror.Error
	if strings.TrimSpace(req.Name) == "" {
		result = multierror.Append(result, errors.New("name is required"))
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		result = multierror.Append(result, errors.New("a valid email is required"))
	}
	if strings.TrimSpace(req.Phone) == "" {
		result = multierror.Append(result, errors.New("phone is required"))
	}
	if len(req.Password) < minPasswordLength {
		result = multierror.Append(result, fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return nil
}

// createUser stores a new account with the given roles in one transaction.
func (h *Handler) createUser(r *http.Request, req newUserRequest, roles []models.Role) (*models.User, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	exists, err := dbhelper.IsUserExists(r.Context(), h.DB, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: user with this email", apperr.ErrDuplicate)
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Phone:    req.Phone,
		Password: hashedPassword,
		Address:  req.Address,
		Roles:    roles,
	}
	err = database.Tx(r.Context(), h.DB, func(tx *sql.Tx) error {
		if err := dbhelper.CreateUser(r.Context(), tx, user); err != nil {
			return err
		}
		for _, role := range roles {
			if err := dbhelper.AssignRole(r.Context(), tx, user.ID, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req newUserRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.createUser(r, req, []models.Role{models.RoleCustomer})
	if err != nil {
		h.fail(w, r, err, "failed to register user")
		return
	}
	h.issueTokens(w, r, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	var req request
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := dbhelper.GetUserByEmail(r.Context(), h.DB, req.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	} else if err != nil {
		h.fail(w, r, err, "failed to log in")
		return
	}
	if !utils.CheckPassword(user.Password, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsActive {
		respondError(w, http.StatusForbidden, "account is deactivated")
		return
	}
	if len(user.Roles) == 0 {
		respondError(w, http.StatusForbidden, "no roles assigned")
		return
	}
	h.issueTokens(w, r, http.StatusOK, user)
}

// RefreshToken exchanges a refresh token, from the cookie or the body, for a new pair.
// Roles are reloaded so role changes apply without a new login.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	type request struct {
		RefreshToken string `json:"refreshToken"`
	}
	var token string
	if cookie, err := r.Cookie(refreshCookie); err == nil {
		token = cookie.Value
	} else {
		var req request
		if !decode(w, r, &req) {
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "refresh token missing")
		return
	}

	claims, err := h.Tokens.ParseRefreshToken(token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	user, err := dbhelper.GetUserByID(r.Context(), h.DB, claims.UserID)
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && !user.IsActive) {
		respondError(w, http.StatusUnauthorized, "account no longer active")
		return
	} else if err != nil {
		h.fail(w, r, err, "failed to refresh token")
		return
	}
	h.issueTokens(w, r, http.StatusOK, user)
}

func (h *Handler) issueTokens(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	accessToken, refreshToken, err := h.Tokens.GenerateTokens(user.ID, models.RoleNames(user.Roles))
	if err != nil {
		h.fail(w, r, err, "failed to generate tokens")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    refreshToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		Expires:  time.Now().Add(h.Tokens.RefreshTTL),
	})
	respond(w, status, authResponse{User: user, AccessToken: accessToken, RefreshToken: refreshToken})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	respondMessage(w, http.StatusOK, "successfully logged out")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	user, err := dbhelper.GetUserByID(r.Context(), h.DB, a.ID)
	if err != nil {
		h.fail(w, r, err, "failed to load profile")
		return
	}
	respond(w, http.StatusOK, user)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name    string         `json:"name"`
		Phone   string         `json:"phone"`
		Address models.Address `json:"address"`
	}
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req request
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := dbhelper.UpdateProfile(r.Context(), h.DB, a.ID, strings.TrimSpace(req.Name), req.Phone, req.Address); err != nil {
		h.fail(w, r, err, "failed to update profile")
		return
	}
	h.Me(w, r)
}

func (h *Handler) MyStats(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	stats, err := dbhelper.UserStats(r.Context(), h.DB, a.ID)
	if err != nil {
		h.fail(w, r, err, "failed to compute stats")
		return
	}
	respond(w, http.StatusOK, stats)
}

// CreateUser lets an admin open staff accounts such as restaurant owners and drivers.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	if err := h.Policy.Authorize(a, access.ManageUsers, access.Resource{}); err != nil {
		h.fail(w, r, err, "")
		return
	}
	var req newUserRequest
	if !decode(w, r, &req) {
		return
	}
	roles := models.ParseRoles(req.Roles)
	if len(roles) == 0 {
		respondError(w, http.StatusBadRequest, "at least one valid role is required")
		return
	}

	user, err := h.createUser(r, req, roles)
	if err != nil {
		h.fail(w, r, err, "failed to create user")
		return
	}
	h.Log.WithFields(logrus.Fields{"user_id": user.ID, "roles": req.Roles, "by": a.ID}).Info("user created by admin")
	respond(w, http.StatusCreated, user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	if err := h.Policy.Authorize(a, access.ManageUsers, access.Resource{}); err != nil {
		h.fail(w, r, err, "")
		return
	}
	filter := dbhelper.UserFilter{
		Role:   models.Role(strings.ToLower(r.URL.Query().Get("role"))),
		Search: r.URL.Query().Get("q"),
		Page:   pageFrom(r),
	}
	if filter.Role != "" && !filter.Role.IsValid() {
		respondError(w, http.StatusBadRequest, "unknown role")
		return
	}

	users, total, err := dbhelper.ListUsers(r.Context(), h.DB, filter)
	if err != nil {
		h.fail(w, r, err, "failed to list users")
		return
	}
	respondPage(w, users, total, filter.Page)
}

func (h *Handler) UpdateUserRoles(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Roles []string `json:"roles"`
	}
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	if err := h.Policy.Authorize(a, access.ManageUsers, access.Resource{}); err != nil {
		h.fail(w, r, err, "")
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req request
	if !decode(w, r, &req) {
		return
	}
	roles := models.ParseRoles(req.Roles)
	if len(roles) == 0 || len(roles) != len(req.Roles) {
		respondError(w, http.StatusBadRequest, "roles must be a non-empty list of admin, restaurant, delivery, customer")
		return
	}

	err := database.Tx(r.Context(), h.DB, func(tx *sql.Tx) error {
		if _, err := dbhelper.GetUserByID(r.Context(), tx, id); err != nil {
			return err
		}
		return dbhelper.SetRoles(r.Context(), tx, id, roles)
	})
	if err != nil {
		h.fail(w, r, err, "failed to update roles")
		return
	}
	user, err := dbhelper.GetUserByID(r.Context(), h.DB, id)
	if err != nil {
		h.fail(w, r, err, "failed to load user")
		return
	}
	respond(w, http.StatusOK, user)
}

func (h *Handler) ArchiveUser(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	if err := h.Policy.Authorize(a, access.ManageUsers, access.Resource{}); err != nil {
		h.fail(w, r, err, "")
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if id == a.ID {
		respondError(w, http.StatusBadRequest, "cannot archive your own account")
		return
	}

	err := database.Tx(r.Context(), h.DB, func(tx *sql.Tx) error {
		return dbhelper.ArchiveUser(r.Context(), tx, id)
	})
	if err != nil {
		h.fail(w, r, err, "failed to archive user")
		return
	}
	respondMessage(w, http.StatusOK, "user archived")
}
