// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"atelier/internal/cache"
	"atelier/internal/content"
	"atelier/internal/middleware"
	"atelier/internal/models"
	"atelier/internal/render"
)

// unavailableMessage is shown when the site content cannot be loaded.
const unavailableMessage = "The site is temporarily unavailable. Please try again in a few minutes."

// Public groups the handlers of the public site. Rendered pages are kept
// in the Valkey page cache; content writes clear it.
type Public struct {
	content   *content.Service
	renderer  *render.Renderer
	pageCache *cache.PageCache
}

// NewPublic creates the public handler group. pageCache may be nil.
func NewPublic(svc *content.Service, renderer *render.Renderer, pageCache *cache.PageCache) *Public {
	return &Public{content: svc, renderer: renderer, pageCache: pageCache}
}

// Homepage renders hero, featured projects, about, services and contact.
// If any document fails to load nothing is rendered but the error page.
func (p *Public) Homepage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := cache.HomepageKey(p.content.Generation())

	if cached, ok := p.pageCache.Get(ctx, key); ok {
		writeHTML(w, http.StatusOK, cached)
		return
	}

	snap, err := p.content.Load(ctx)
	if err != nil {
		slog.Error("homepage load failed", "error", err)
		p.renderer.PublicError(w, http.StatusServiceUnavailable, unavailableMessage)
		return
	}

	data := siteData(snap)
	if !snap.Hero.IsZero() {
		data["Hero"] = &snap.Hero
	}
	if !snap.About.IsZero() {
		data["About"] = &snap.About
	}
	data["Projects"] = snap.FeaturedProjects()
	data["Services"] = snap.SortedServices()

	p.serve(w, r, key, "home", &render.PublicData{Data: data})
}

// Project renders the detail page of the first project with {slug}.
func (p *Public) Project(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slugParam := chi.URLParam(r, "slug")
	key := cache.ProjectKey(p.content.Generation(), slugParam)

	if cached, ok := p.pageCache.Get(ctx, key); ok {
		writeHTML(w, http.StatusOK, cached)
		return
	}

	snap, err := p.content.Load(ctx)
	if err != nil {
		slog.Error("project page load failed", "error", err, "slug", slugParam)
		p.renderer.PublicError(w, http.StatusServiceUnavailable, unavailableMessage)
		return
	}

	project, ok := models.FindProjectBySlug(snap.Projects, slugParam)
	if !ok {
		p.renderer.PublicError(w, http.StatusNotFound, "Project not found.")
		return
	}

	data := siteData(snap)
	data["Project"] = project
	p.serve(w, r, key, "project", &render.PublicData{Title: project.Title, Data: data})
}

// ContactPage shows the contact form on its own page.
func (p *Public) ContactPage(w http.ResponseWriter, r *http.Request) {
	p.renderContact(w, r, http.StatusOK, map[string]any{})
}

// ContactSubmit validates an inquiry, logs it and acknowledges it.
// Inquiries are not stored.
func (p *Public) ContactSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		p.renderer.PublicError(w, http.StatusBadRequest, "The form could not be read.")
		return
	}

	// Bots fill the hidden field; thank them without logging anything.
	if strings.TrimSpace(r.PostFormValue("website")) != "" {
		p.renderContact(w, r, http.StatusOK, map[string]any{"Sent": true})
		return
	}

	in := models.Inquiry{
		Name:    strings.TrimSpace(r.PostFormValue("name")),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Phone:   strings.TrimSpace(r.PostFormValue("phone")),
		Message: strings.TrimSpace(r.PostFormValue("message")),
	}

	if errs := validateInquiry(in); len(errs) > 0 {
		p.renderContact(w, r, http.StatusUnprocessableEntity, map[string]any{
			"Errors": errs,
			"Form":   in,
		})
		return
	}

	slog.Info("contact inquiry received",
		"name", in.Name,
		"email", in.Email,
		"phone", in.Phone,
		"message_length", len(in.Message),
		"remote", middleware.ClientIP(r),
	)
	p.renderContact(w, r, http.StatusOK, map[string]any{"Sent": true})
}

// renderContact renders the contact page. The footer's contact details
// are best effort here so the form stays usable if the store is down.
func (p *Public) renderContact(w http.ResponseWriter, r *http.Request, status int, data map[string]any) {
	if c, err := p.content.Contact(r.Context()); err == nil && !c.IsZero() {
		data["Contact"] = &c
	} else if err != nil && !errors.Is(err, content.ErrNotFound) {
		slog.Warn("contact details unavailable", "error", err)
	}

	body, err := p.renderer.Public("contact", &render.PublicData{Title: "Contact", Data: data})
	if err != nil {
		slog.Error("contact page render failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, status, body)
}

// serve renders a public page, caches it and writes it.
func (p *Public) serve(w http.ResponseWriter, r *http.Request, key, name string, data *render.PublicData) {
	body, err := p.renderer.Public(name, data)
	if err != nil {
		slog.Error("public page render failed", "error", err, "template", name)
		p.renderer.PublicError(w, http.StatusInternalServerError, "Something went wrong.")
		return
	}
	p.pageCache.Set(r.Context(), key, body)
	writeHTML(w, http.StatusOK, body)
}

// siteData starts the template data with what every page's footer needs.
func siteData(snap *content.Snapshot) map[string]any {
	data := map[string]any{}
	if !snap.Contact.IsZero() {
		data["Contact"] = &snap.Contact
	}
	return data
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}
