package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"atelier/internal/middleware"
	"atelier/internal/render"
	"atelier/internal/session"
)

// Credentials is the single admin account, taken from the environment.
type Credentials struct {
	Username     string
	PasswordHash string // bcrypt
	TOTPSecret   string // base32; empty disables the second factor
}

// Auth groups the login, TOTP and logout handlers.
type Auth struct {
	renderer *render.Renderer
	sessions *session.Store
	creds    Credentials
}

// NewAuth creates the Auth handler group.
func NewAuth(renderer *render.Renderer, sessions *session.Store, creds Credentials) *Auth {
	return &Auth{renderer: renderer, sessions: sessions, creds: creds}
}

// LoginPage renders the login form, or skips it when there is nothing to do.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	if a.creds.PasswordHash == "" || a.loggedIn(middleware.SessionFromCtx(r.Context())) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	a.renderer.Admin(w, r, "login", &render.PageData{
		Title: "Sign in",
		Data:  map[string]any{"Username": ""},
	})
}

// LoginSubmit checks the username and password. A new session starts
// with the second factor pending when TOTP is configured.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if a.creds.PasswordHash == "" {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.creds.Username)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(a.creds.PasswordHash), []byte(password)) == nil
	if !userOK || !passOK {
		slog.Warn("admin login failed", "username", username, "remote", middleware.ClientIP(r))
		a.renderer.AdminStatus(w, r, http.StatusUnauthorized, "login", &render.PageData{
			Title:   "Sign in",
			Data:    map[string]any{"Username": username},
			Flashes: []render.Flash{{Type: "error", Message: "Invalid username or password."}},
		})
		return
	}

	// Replace any existing session so a pre-login id is never reused.
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("old session cleanup failed", "error", err)
	}
	_, err := a.sessions.Create(r.Context(), w, &session.Data{
		Username:  a.creds.Username,
		TwoFADone: a.creds.TOTPSecret == "",
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if a.creds.TOTPSecret != "" {
		http.Redirect(w, r, "/admin/login/totp", http.StatusSeeOther)
		return
	}
	slog.Info("admin logged in", "username", a.creds.Username)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// TOTPPage renders the verification code form.
func (a *Auth) TOTPPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	if a.creds.TOTPSecret == "" || sess.TwoFADone {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	a.renderer.Admin(w, r, "totp", &render.PageData{Title: "Verification code"})
}

// TOTPSubmit validates the code and completes the login.
func (a *Auth) TOTPSubmit(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	if a.creds.TOTPSecret == "" || sess.TwoFADone {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	code := strings.TrimSpace(r.FormValue("code"))
	if !totp.Validate(code, a.creds.TOTPSecret) {
		slog.Warn("admin totp failed", "remote", middleware.ClientIP(r))
		a.renderer.AdminStatus(w, r, http.StatusUnauthorized, "totp", &render.PageData{
			Title:   "Verification code",
			Flashes: []render.Flash{{Type: "error", Message: "Invalid code. Please try again."}},
		})
		return
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		slog.Error("session update failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	slog.Info("admin logged in", "username", sess.Username)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Logout destroys the session and returns to the login page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (a *Auth) loggedIn(sess *session.Data) bool {
	return sess != nil && (a.creds.TOTPSecret == "" || sess.TwoFADone)
}
