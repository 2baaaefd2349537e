// Package router sets up all HTTP routes and middleware chains for the
// studio site. Routes are grouped into the JSON API, the admin editor and
// the public site, each with its own middleware stack.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"atelier/internal/handlers"
	"atelier/internal/middleware"
	"atelier/internal/session"
	"atelier/internal/storage"
	"atelier/web"
)

// Config carries everything the router wires together.
type Config struct {
	Sessions      *session.Store
	Auth          middleware.Auth
	SecureCookies bool
	CORSOrigins   []string
	MediaDir      string // served at /media/ when set

	API    *handlers.API
	Admin  *handlers.Admin
	Login  *handlers.Auth
	Public *handlers.Public

	LoginLimiter   *middleware.RateLimiter
	ContactLimiter *middleware.RateLimiter
}

// New creates the chi router with all middleware and route groups.
func New(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(cfg.Sessions))

	// JSON API. Reads are open; writes need a session or the API token
	// when auth is enabled. No CSRF: browsers only reach the write
	// endpoints with the SameSite=Lax session cookie or a bearer token.
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "PUT", "PATCH", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/health", cfg.API.Health)
		r.Get("/{resource}", cfg.API.Get)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.RequireWriter)
			r.Post("/media", cfg.API.UploadMedia)
			r.Put("/{resource}", cfg.API.Put)
			r.Patch("/{resource}", cfg.API.Patch)
			r.Post("/{resource}", cfg.API.CreateItem)
			r.Put("/{resource}/{id}", cfg.API.UpdateItem)
			r.Delete("/{resource}/{id}", cfg.API.DeleteItem)
		})
	})

	// Admin editor with CSRF protection on every form.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.MaxBody(2*storage.MaxUploadSize + 1<<20))
		r.Use(middleware.NewCSRF(cfg.SecureCookies))

		r.Get("/login", cfg.Login.LoginPage)
		r.With(cfg.LoginLimiter.Middleware).Post("/login", cfg.Login.LoginSubmit)
		r.Get("/login/totp", cfg.Login.TOTPPage)
		r.With(cfg.LoginLimiter.Middleware).Post("/login/totp", cfg.Login.TOTPSubmit)
		r.Post("/logout", cfg.Login.Logout)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.RequireAdmin)

			r.Get("/", cfg.Admin.Dashboard)
			r.Get("/{resource}", cfg.Admin.Section)
			r.Post("/{resource}", cfg.Admin.SaveSingleton)
			r.Get("/{resource}/new", cfg.Admin.NewItem)
			r.Post("/{resource}/save", cfg.Admin.SaveItem)
			r.Get("/{resource}/{id}", cfg.Admin.EditItem)
			r.Post("/{resource}/{id}/delete", cfg.Admin.DeleteItem)
		})
	})

	// Static assets and locally stored media.
	static, _ := fs.Sub(web.StaticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	if cfg.MediaDir != "" {
		r.Handle(storage.LocalURLPrefix+"*", http.StripPrefix(storage.LocalURLPrefix, http.FileServer(noListing{http.Dir(cfg.MediaDir)})))
	}

	// Public site. The contact form is rate limited instead of carrying a
	// CSRF token, because the pages that embed it are cached.
	r.Get("/", cfg.Public.Homepage)
	r.Get("/project/{slug}", cfg.Public.Project)
	r.Get("/contact", cfg.Public.ContactPage)
	r.With(cfg.ContactLimiter.Middleware).Post("/contact", cfg.Public.ContactSubmit)

	return r
}

// noListing hides directory indexes of the media directory.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if stat.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
