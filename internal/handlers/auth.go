package handlers

import (
	"net/http"
	"strings"

	"goaltracker/internal/auth"
	"goaltracker/internal/models"
)

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates an account and returns a session for it.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	if len(c.Password) < 6 {
		respondError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(c.Password)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	user := &models.User{
		Username:     strings.TrimSpace(c.Username),
		Email:        strings.TrimSpace(c.Email),
		PasswordHash: hash,
	}
	if err := h.db.CreateUser(r.Context(), user); err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	h.respondSession(w, r, http.StatusCreated, user)
}

// Login exchanges email and password for a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), strings.TrimSpace(c.Email))
	if err != nil {
		if models.IsNotFound(err) {
			respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.respondStoreError(w, r, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, c.Password) {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.respondSession(w, r, http.StatusOK, user)
}

func (h *Handlers) respondSession(w http.ResponseWriter, r *http.Request, code int, user *models.User) {
	token, err := h.auth.Issue(user)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, code, session{Token: token, User: user})
}

// Verify returns the user behind the request's token.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	user, err := h.db.GetUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
