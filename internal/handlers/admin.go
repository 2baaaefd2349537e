// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"atelier/internal/content"
	"atelier/internal/models"
	"atelier/internal/render"
	"atelier/internal/slug"
	"atelier/internal/storage"
)

// maxFormSize caps an admin form post, image uploads included.
const maxFormSize = 2*storage.MaxUploadSize + 1<<20

// notSavedMessage is shown when a save reached the form but not the store.
const notSavedMessage = "Not saved: the change could not be written to the store. Your edits are shown below; save again to retry."

// Admin groups the tabbed content editor handlers.
type Admin struct {
	content     *content.Service
	renderer    *render.Renderer
	uploader    *storage.Uploader
	authEnabled bool
}

// NewAdmin creates the admin handler group. uploader may be nil, in which
// case image fields only accept URLs.
func NewAdmin(svc *content.Service, renderer *render.Renderer, uploader *storage.Uploader, authEnabled bool) *Admin {
	return &Admin{content: svc, renderer: renderer, uploader: uploader, authEnabled: authEnabled}
}

// fieldSpec describes one editable document field.
type fieldSpec struct {
	name  string
	label string
	kind  string
	help  string
}

var singletonFields = map[models.Resource][]fieldSpec{
	models.ResourceHero: {
		{"title", "Title", "text", ""},
		{"subtitle", "Subtitle", "text", ""},
		{"background_image", "Background image", "image", "Paste an image URL or upload a file."},
	},
	models.ResourceAbout: {
		{"title", "Title", "text", ""},
		{"content1", "First paragraph", "textarea", "Markdown is supported."},
		{"content2", "Second paragraph", "textarea", "Markdown is supported."},
		{"projects_count", "Projects count", "text", `Shown as written, e.g. "150+".`},
		{"awards_count", "Awards count", "text", ""},
		{"satisfaction_rate", "Client satisfaction", "text", `e.g. "%98".`},
		{"image_url", "Image", "image", "Paste an image URL or upload a file."},
	},
	models.ResourceContact: {
		{"address", "Address", "text", ""},
		{"city", "City", "text", ""},
		{"phone", "Phone", "tel", ""},
		{"email", "Email", "email", ""},
		{"instagram_url", "Instagram URL", "url", ""},
		{"linkedin_url", "LinkedIn URL", "url", ""},
	},
}

// Dashboard opens the first tab.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/"+models.Resources[0].String(), http.StatusSeeOther)
}

// Section renders a tab: the edit form for singletons, the item table
// for lists.
func (a *Admin) Section(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resource(w, r)
	if !ok {
		return
	}
	if res.IsList() {
		a.list(w, r, res)
		return
	}

	values, err := a.singletonValues(r, res)
	if err != nil {
		slog.Error("admin load failed", "resource", res, "error", err)
		a.page(w, r, http.StatusServiceUnavailable, "singleton", res, map[string]any{
			"Action": "/admin/" + res.String(),
			"Fields": singletonForm(res, map[string]string{}),
		}, render.Flash{Type: "error", Message: loadFailedMessage(res)})
		return
	}

	a.page(w, r, http.StatusOK, "singleton", res, map[string]any{
		"Action":    "/admin/" + res.String(),
		"UpdatedAt": values["updated_at"],
		"Fields":    singletonForm(res, values),
	}, flashFromQuery(r)...)
}

// SaveSingleton merges the form onto hero, about or contact.
func (a *Admin) SaveSingleton(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resource(w, r)
	if !ok {
		return
	}
	if res.IsList() {
		http.NotFound(w, r)
		return
	}
	if !a.parseForm(w, r) {
		return
	}

	values := make(map[string]string)
	for _, f := range singletonFields[res] {
		values[f.name] = strings.TrimSpace(r.PostFormValue(f.name))
	}

	rerender := func(status int, msg string) {
		a.page(w, r, status, "singleton", res, map[string]any{
			"Action": "/admin/" + res.String(),
			"Fields": singletonForm(res, values),
		}, render.Flash{Type: "error", Message: msg})
	}

	for _, f := range singletonFields[res] {
		if f.kind != "image" {
			continue
		}
		url, msg := a.imageValue(r, f.name)
		if msg != "" {
			rerender(http.StatusUnprocessableEntity, msg)
			return
		}
		values[f.name] = url
	}

	if msg := validateText(values); msg != "" {
		rerender(http.StatusUnprocessableEntity, msg)
		return
	}

	if _, err := a.content.SaveSingleton(r.Context(), res, values); err != nil {
		slog.Error("admin save failed", "resource", res, "error", err)
		rerender(http.StatusInternalServerError, notSavedMessage)
		return
	}

	slog.Info("content saved", "resource", res)
	http.Redirect(w, r, "/admin/"+res.String()+"?saved=1", http.StatusSeeOther)
}

// NewItem renders an empty project or service form.
func (a *Admin) NewItem(w http.ResponseWriter, r *http.Request) {
	res, ok := a.listResource(w, r)
	if !ok {
		return
	}

	var fields []render.Field
	if res == models.ResourceProjects {
		fields = projectForm(models.Project{})
	} else {
		fields = serviceForm(models.Service{}, "")
	}
	a.itemPage(w, r, http.StatusOK, res, "New "+noun(res), fields)
}

// EditItem renders the form for an existing project or service.
func (a *Admin) EditItem(w http.ResponseWriter, r *http.Request) {
	res, ok := a.listResource(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	var fields []render.Field
	var title string
	var err error
	found := false

	switch res {
	case models.ResourceProjects:
		var projects []models.Project
		projects, err = a.content.Projects(ctx)
		for _, p := range projects {
			if p.ID == id {
				fields, title, found = projectForm(p), p.Title, true
				break
			}
		}
	case models.ResourceServices:
		var services []models.Service
		services, err = a.content.Services(ctx)
		for _, s := range services {
			if s.ID == id {
				fields, title, found = serviceForm(s, strconv.Itoa(s.OrderIndex)), s.Title, true
				break
			}
		}
	}

	if err != nil && !errors.Is(err, content.ErrNotFound) {
		slog.Error("admin load failed", "resource", res, "error", err)
		a.page(w, r, http.StatusServiceUnavailable, "list", res, listData(res, nil),
			render.Flash{Type: "error", Message: loadFailedMessage(res)})
		return
	}
	if !found {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	a.itemPage(w, r, http.StatusOK, res, "Edit "+title, fields)
}

// SaveItem creates or updates a project or service. An empty id field
// creates a new item.
func (a *Admin) SaveItem(w http.ResponseWriter, r *http.Request) {
	res, ok := a.listResource(w, r)
	if !ok {
		return
	}
	if !a.parseForm(w, r) {
		return
	}
	ctx := r.Context()
	id := strings.TrimSpace(r.PostFormValue("id"))

	heading := "New " + noun(res)
	if id != "" {
		heading = "Edit " + noun(res)
	}

	var err error
	switch res {
	case models.ResourceProjects:
		p := projectFromForm(r)
		p.ID = id
		fail := func(status int, msg string) {
			a.itemPage(w, r, status, res, heading, projectForm(p), render.Flash{Type: "error", Message: msg})
		}
		var msg string
		if p.MainImage, msg = a.imageValue(r, "main_image"); msg != "" {
			fail(http.StatusUnprocessableEntity, msg)
			return
		}
		if p.GalleryImages, msg = a.galleryValue(r, p.GalleryImages); msg != "" {
			fail(http.StatusUnprocessableEntity, msg)
			return
		}
		if msg = validateProject(p); msg != "" {
			fail(http.StatusUnprocessableEntity, msg)
			return
		}
		if p.Slug == "" {
			p.Slug = slug.Generate(p.Title)
		}
		if _, err = a.content.SaveProject(ctx, p); err != nil {
			slog.Error("admin save failed", "resource", res, "error", err)
			fail(http.StatusInternalServerError, notSavedMessage)
			return
		}

	case models.ResourceServices:
		order := strings.TrimSpace(r.PostFormValue("order_index"))
		s := models.Service{
			ID:          id,
			Title:       strings.TrimSpace(r.PostFormValue("title")),
			Description: strings.TrimSpace(r.PostFormValue("description")),
		}
		fail := func(status int, msg string) {
			a.itemPage(w, r, status, res, heading, serviceForm(s, order), render.Flash{Type: "error", Message: msg})
		}
		if order != "" {
			if s.OrderIndex, err = strconv.Atoi(order); err != nil {
				fail(http.StatusUnprocessableEntity, "Order must be a whole number.")
				return
			}
		}
		if msg := validateService(s); msg != "" {
			fail(http.StatusUnprocessableEntity, msg)
			return
		}
		if _, err = a.content.SaveService(ctx, s); err != nil {
			slog.Error("admin save failed", "resource", res, "error", err)
			fail(http.StatusInternalServerError, notSavedMessage)
			return
		}
	}

	slog.Info("content saved", "resource", res, "id", id)
	http.Redirect(w, r, "/admin/"+res.String()+"?saved=1", http.StatusSeeOther)
}

// DeleteItem removes a project or service. The browser asks for
// confirmation before the form is submitted.
func (a *Admin) DeleteItem(w http.ResponseWriter, r *http.Request) {
	res, ok := a.listResource(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	err := a.content.DeleteItem(r.Context(), res, id)
	switch {
	case errors.Is(err, content.ErrNotFound):
		http.Redirect(w, r, "/admin/"+res.String()+"?missing=1", http.StatusSeeOther)
		return
	case err != nil:
		slog.Error("admin delete failed", "resource", res, "id", id, "error", err)
		a.list(w, r, res, render.Flash{Type: "error", Message: "Not deleted: the change could not be written to the store. Try again."})
		return
	}

	slog.Info("content deleted", "resource", res, "id", id)
	http.Redirect(w, r, "/admin/"+res.String()+"?deleted=1", http.StatusSeeOther)
}

// list renders the item table of a list resource.
func (a *Admin) list(w http.ResponseWriter, r *http.Request, res models.Resource, flashes ...render.Flash) {
	ctx := r.Context()
	var rows []render.Row
	var err error

	switch res {
	case models.ResourceProjects:
		var projects []models.Project
		projects, err = a.content.Projects(ctx)
		for _, p := range projects {
			featured := ""
			if p.Featured {
				featured = "★"
			}
			rows = append(rows, a.row(res, p.ID, p.Title, p.Title, p.Category, p.Year, featured))
		}
	case models.ResourceServices:
		var services []models.Service
		services, err = a.content.Services(ctx)
		for _, s := range services {
			rows = append(rows, a.row(res, s.ID, s.Title, strconv.Itoa(s.OrderIndex), s.Title))
		}
	}

	status := http.StatusOK
	if err != nil && !errors.Is(err, content.ErrNotFound) {
		slog.Error("admin load failed", "resource", res, "error", err)
		status = http.StatusServiceUnavailable
		flashes = append(flashes, render.Flash{Type: "error", Message: loadFailedMessage(res)})
	}
	if len(flashes) == 0 {
		flashes = flashFromQuery(r)
	}

	a.page(w, r, status, "list", res, listData(res, rows), flashes...)
}

func (a *Admin) row(res models.Resource, id, title string, cells ...string) render.Row {
	base := "/admin/" + res.String() + "/" + id
	return render.Row{Title: title, Cells: cells, EditURL: base, DeleteURL: base + "/delete"}
}

func listData(res models.Resource, rows []render.Row) map[string]any {
	columns := []string{"Title", "Category", "Year", "Featured"}
	if res == models.ResourceServices {
		columns = []string{"Order", "Title"}
	}
	return map[string]any{
		"NewURL":  "/admin/" + res.String() + "/new",
		"Noun":    noun(res),
		"Columns": columns,
		"Items":   rows,
	}
}

func (a *Admin) itemPage(w http.ResponseWriter, r *http.Request, status int, res models.Resource, heading string, fields []render.Field, flashes ...render.Flash) {
	a.renderer.AdminStatus(w, r, status, "item_form", &render.PageData{
		Title:       heading,
		Tab:         res,
		AuthEnabled: a.authEnabled,
		Data: map[string]any{
			"Action":  "/admin/" + res.String() + "/save",
			"BackURL": "/admin/" + res.String(),
			"Fields":  fields,
		},
		Flashes: flashes,
	})
}

func (a *Admin) page(w http.ResponseWriter, r *http.Request, status int, name string, res models.Resource, data map[string]any, flashes ...render.Flash) {
	a.renderer.AdminStatus(w, r, status, name, &render.PageData{
		Title:       res.Label(),
		Tab:         res,
		AuthEnabled: a.authEnabled,
		Data:        data,
		Flashes:     flashes,
	})
}

func (a *Admin) resource(w http.ResponseWriter, r *http.Request) (models.Resource, bool) {
	res, ok := models.ParseResource(chi.URLParam(r, "resource"))
	if !ok {
		http.NotFound(w, r)
		return "", false
	}
	return res, true
}

func (a *Admin) listResource(w http.ResponseWriter, r *http.Request) (models.Resource, bool) {
	res, ok := a.resource(w, r)
	if ok && !res.IsList() {
		http.NotFound(w, r)
		return "", false
	}
	return res, ok
}

// parseForm reads a multipart or urlencoded admin form.
func (a *Admin) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(storage.MaxUploadSize)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

// imageValue returns the URL for an image field: the uploaded file's URL
// when one was chosen, the typed URL otherwise. msg is a form error.
func (a *Admin) imageValue(r *http.Request, name string) (url, msg string) {
	typed := strings.TrimSpace(r.PostFormValue(name))
	if r.MultipartForm == nil || len(r.MultipartForm.File[name+"_file"]) == 0 {
		return typed, ""
	}
	header := r.MultipartForm.File[name+"_file"][0]
	if header.Size == 0 {
		return typed, ""
	}
	url, msg = a.upload(r, name, header)
	if msg != "" {
		return typed, msg
	}
	return url, ""
}

// galleryValue uploads every file chosen for the gallery and appends the
// URLs to gallery. On a failed upload the images stored so far are kept
// and msg is a form error.
func (a *Admin) galleryValue(r *http.Request, gallery []string) ([]string, string) {
	if r.MultipartForm == nil {
		return gallery, ""
	}
	for _, header := range r.MultipartForm.File["gallery_images_file"] {
		if header.Size == 0 {
			continue
		}
		url, msg := a.upload(r, "gallery_images", header)
		if msg != "" {
			return gallery, header.Filename + ": " + msg
		}
		gallery = append(gallery, url)
	}
	return gallery, ""
}

// upload stores one form file and returns its public URL.
func (a *Admin) upload(r *http.Request, field string, header *multipart.FileHeader) (url, msg string) {
	if a.uploader == nil {
		return "", "Image upload is not available; paste an image URL instead."
	}

	file, err := header.Open()
	if err != nil {
		return "", "The uploaded image could not be read."
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", "The uploaded image could not be read."
	}

	m, err := a.uploader.Upload(r.Context(), header.Filename, data)
	if err != nil {
		status, text := uploadError(err)
		if status == http.StatusInternalServerError {
			slog.Error("admin image upload failed", "field", field, "error", err)
		}
		return "", text + "."
	}
	return m.URL, ""
}

// singletonValues returns the stored singleton as form strings. A
// document that was never written yields an empty form.
func (a *Admin) singletonValues(r *http.Request, res models.Resource) (map[string]string, error) {
	raw, err := a.content.GetRaw(r.Context(), res)
	if errors.Is(err, content.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", res, err)
	}
	values := make(map[string]string, len(doc))
	for k, v := range doc {
		switch v := v.(type) {
		case string:
			values[k] = v
		case nil:
		default:
			values[k] = fmt.Sprint(v)
		}
	}
	return values, nil
}

func singletonForm(res models.Resource, values map[string]string) []render.Field {
	specs := singletonFields[res]
	fields := make([]render.Field, 0, len(specs))
	for _, f := range specs {
		fields = append(fields, render.Field{Name: f.name, Label: f.label, Kind: f.kind, Help: f.help, Value: values[f.name]})
	}
	return fields
}

func projectForm(p models.Project) []render.Field {
	return []render.Field{
		{Name: "id", Kind: "hidden", Value: p.ID},
		{Name: "title", Label: "Title", Kind: "text", Value: p.Title},
		{Name: "slug", Label: "Slug", Kind: "text", Value: p.Slug, Help: "Leave empty to generate it from the title."},
		{Name: "category", Label: "Category", Kind: "text", Value: p.Category},
		{Name: "description", Label: "Short description", Kind: "textarea", Value: p.Description},
		{Name: "full_description", Label: "Full description", Kind: "textarea", Value: p.FullDescription, Help: "Markdown is supported."},
		{Name: "location", Label: "Location", Kind: "text", Value: p.Location},
		{Name: "year", Label: "Year", Kind: "text", Value: p.Year},
		{Name: "area", Label: "Area", Kind: "text", Value: p.Area, Help: `e.g. "240 m²".`},
		{Name: "main_image", Label: "Main image", Kind: "image", Value: p.MainImage},
		{Name: "gallery_images", Label: "Gallery images", Kind: "gallery", Value: strings.Join(p.GalleryImages, "\n"), Items: p.GalleryImages,
			Help: "One URL per line. Files chosen here are uploaded and added to the end."},
		{Name: "featured", Label: "Show on the homepage", Kind: "checkbox", Checked: p.Featured},
	}
}

func serviceForm(s models.Service, order string) []render.Field {
	return []render.Field{
		{Name: "id", Kind: "hidden", Value: s.ID},
		{Name: "title", Label: "Title", Kind: "text", Value: s.Title},
		{Name: "description", Label: "Description", Kind: "textarea", Value: s.Description},
		{Name: "order_index", Label: "Order", Kind: "number", Value: order, Help: "Lower numbers are shown first."},
	}
}

// projectFromForm reads the project fields. Gallery entries ticked for
// removal are left out.
func projectFromForm(r *http.Request) models.Project {
	removed := r.PostForm["gallery_images_remove"]
	var gallery []string
	for _, line := range strings.Split(r.PostFormValue("gallery_images"), "\n") {
		if line = strings.TrimSpace(line); line != "" && !slices.Contains(removed, line) {
			gallery = append(gallery, line)
		}
	}
	return models.Project{
		Title:           strings.TrimSpace(r.PostFormValue("title")),
		Slug:            slug.Generate(r.PostFormValue("slug")),
		Category:        strings.TrimSpace(r.PostFormValue("category")),
		Description:     strings.TrimSpace(r.PostFormValue("description")),
		FullDescription: strings.TrimSpace(r.PostFormValue("full_description")),
		Location:        strings.TrimSpace(r.PostFormValue("location")),
		Year:            strings.TrimSpace(r.PostFormValue("year")),
		Area:            strings.TrimSpace(r.PostFormValue("area")),
		MainImage:       strings.TrimSpace(r.PostFormValue("main_image")),
		GalleryImages:   gallery,
		Featured:        r.PostFormValue("featured") == "true",
	}
}

func noun(res models.Resource) string {
	if res == models.ResourceServices {
		return "service"
	}
	return "project"
}

func loadFailedMessage(res models.Resource) string {
	return "Could not load " + res.Label() + ". Make sure the content store is running, then reload this page."
}

// flashFromQuery turns the redirect markers left by saves into messages.
func flashFromQuery(r *http.Request) []render.Flash {
	q := r.URL.Query()
	switch {
	case q.Has("saved"):
		return []render.Flash{{Type: "success", Message: "Saved."}}
	case q.Has("deleted"):
		return []render.Flash{{Type: "success", Message: "Deleted."}}
	case q.Has("missing"):
		return []render.Flash{{Type: "warning", Message: "That item no longer exists."}}
	}
	return nil
}
