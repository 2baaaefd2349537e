package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"atelier/internal/middleware"
	"atelier/internal/models"
	"atelier/internal/session"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	rn, err := New("Studio Test")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return rn
}

// requestWithSession builds a request whose context carries a session,
// which the admin layout reads for the logout button.
func requestWithSession(method, target string, sess *session.Data) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if sess != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.SessionKey, sess))
	}
	return req
}

func TestNew(t *testing.T) {
	rn := newRenderer(t)

	for _, name := range []string{"singleton", "list", "item_form", "login", "totp"} {
		if _, ok := rn.admin[name]; !ok {
			t.Errorf("expected admin template %q to be parsed", name)
		}
	}
	for _, name := range []string{"home", "project", "contact", "error"} {
		if _, ok := rn.public[name]; !ok {
			t.Errorf("expected public template %q to be parsed", name)
		}
	}

	if _, ok := rn.admin["base"]; ok {
		t.Error("base.html should not be registered as a page")
	}
	if _, ok := rn.public["layout"]; ok {
		t.Error("layout.html should not be registered as a page")
	}
}

func TestAdminSingletonPage(t *testing.T) {
	rn := newRenderer(t)

	w := httptest.NewRecorder()
	req := requestWithSession(http.MethodGet, "/admin/hero", &session.Data{Username: "admin", TwoFADone: true})
	rn.Admin(w, req, "singleton", &PageData{
		Title:       "Hero",
		Tab:         models.ResourceHero,
		AuthEnabled: true,
		Data: map[string]any{
			"Action":    "/admin/hero",
			"UpdatedAt": "2026-01-02T03:04:05.000Z",
			"Fields": []Field{
				{Name: "title", Label: "Title", Kind: "text", Value: "Light & Space"},
				{Name: "background_image", Label: "Background image", Kind: "image", Value: "https://cdn.example.com/a.jpg"},
			},
		},
		Flashes: []Flash{{Type: "success", Message: "Hero saved."}},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"Studio Test",
		`class="tab active" href="/admin/hero"`,
		`href="/admin/projects"`,
		"Light &amp; Space",
		`name="background_image_file"`,
		"Hero saved.",
		"Log out admin",
		"Last saved 2026-01-02T03:04:05.000Z",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestAdminListPage(t *testing.T) {
	rn := newRenderer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/projects", nil)
	rn.Admin(w, req, "list", &PageData{
		Title: "Projects",
		Tab:   models.ResourceProjects,
		Data: map[string]any{
			"NewURL":  "/admin/projects/new",
			"Noun":    "project",
			"Columns": []string{"Title", "Category"},
			"Items": []Row{
				{Title: `Moda "Loft"`, Cells: []string{"Moda Loft", "Residential"}, EditURL: "/admin/projects/p1", DeleteURL: "/admin/projects/p1/delete"},
			},
		},
	})

	body := w.Body.String()
	if !strings.Contains(body, "Residential") {
		t.Error("list should render item cells")
	}
	if !strings.Contains(body, `action="/admin/projects/p1/delete"`) {
		t.Error("list should render the delete form")
	}
	if !strings.Contains(body, "data-confirm=") {
		t.Error("delete form should ask for confirmation")
	}
	if strings.Contains(body, "Log out") {
		t.Error("logout should be hidden when auth is disabled")
	}
}

func TestAdminListEmpty(t *testing.T) {
	rn := newRenderer(t)

	w := httptest.NewRecorder()
	rn.Admin(w, httptest.NewRequest(http.MethodGet, "/admin/services", nil), "list", &PageData{
		Title: "Services",
		Tab:   models.ResourceServices,
		Data:  map[string]any{"NewURL": "/admin/services/new", "Noun": "service"},
	})

	if !strings.Contains(w.Body.String(), "No services yet.") {
		t.Error("empty list should show the empty state")
	}
}

func TestStandaloneTemplates(t *testing.T) {
	rn := newRenderer(t)

	for _, name := range []string{"login", "totp"} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			rn.Admin(w, httptest.NewRequest(http.MethodGet, "/admin/login", nil), name, &PageData{
				Title: "Sign in",
				Data:  map[string]any{"Username": "admin"},
			})

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
			}
			body := w.Body.String()
			if strings.Contains(body, `class="topbar"`) {
				t.Error("standalone page should not include the admin layout")
			}
			if !strings.Contains(body, "<form") {
				t.Error("standalone page should render its form")
			}
		})
	}
}

func TestAdminStatus(t *testing.T) {
	rn := newRenderer(t)

	w := httptest.NewRecorder()
	rn.AdminStatus(w, httptest.NewRequest(http.MethodPost, "/admin/login", nil), http.StatusUnauthorized, "login", &PageData{
		Flashes: []Flash{{Type: "error", Message: "Invalid username or password."}},
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid username or password.") {
		t.Error("flash message should be rendered")
	}
}

func TestMissingTemplate(t *testing.T) {
	rn := newRenderer(t)

	w := httptest.NewRecorder()
	rn.Admin(w, httptest.NewRequest(http.MethodGet, "/admin", nil), "nonexistent", &PageData{})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}

	if _, err := rn.Public("nonexistent", &PublicData{}); err == nil {
		t.Error("Public() with an unknown template should fail")
	}
}

func TestCSRFTokenInjection(t *testing.T) {
	rn := newRenderer(t)

	var captured *http.Request
	h := middleware.NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	if captured == nil {
		t.Fatal("CSRF middleware did not call inner handler")
	}

	token := middleware.CSRFTokenFromCtx(captured.Context())
	if token == "" {
		t.Fatal("CSRF token not found in context")
	}

	w := httptest.NewRecorder()
	data := &PageData{Title: "Sign in"}
	rn.Admin(w, captured, "login", data)

	if data.CSRFToken != token {
		t.Errorf("PageData.CSRFToken = %q, want %q", data.CSRFToken, token)
	}
	if !strings.Contains(w.Body.String(), token) {
		t.Error("rendered output should contain the CSRF token")
	}
}

func TestPublicHome(t *testing.T) {
	rn := newRenderer(t)

	body, err := rn.Public("home", &PublicData{
		Data: map[string]any{
			"Hero": &models.Hero{ID: "1", Title: "We design quiet buildings", Subtitle: "Istanbul"},
			"Projects": []models.Project{
				{ID: "p1", Title: "Moda Loft", Slug: "moda-loft", Category: "Residential", Year: "2024"},
			},
			"About":    &models.About{ID: "1", Title: "About us", Content1: "Founded in **2009**.", ProjectsCount: "150+"},
			"Services": []models.Service{{ID: "s1", Title: "Interior design"}},
			"Contact":  &models.Contact{ID: "1", Email: "studio@example.com"},
		},
	})
	if err != nil {
		t.Fatalf("Public(home) error: %v", err)
	}

	html := string(body)
	for _, want := range []string{
		"<title>Studio Test</title>",
		"We design quiet buildings",
		`href="/project/moda-loft"`,
		"<strong>2009</strong>",
		"150+",
		"Interior design",
		`action="/contact"`,
		"mailto:studio@example.com",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("home page missing %q", want)
		}
	}
}

func TestPublicHomeEmpty(t *testing.T) {
	rn := newRenderer(t)

	body, err := rn.Public("home", &PublicData{Data: map[string]any{}})
	if err != nil {
		t.Fatalf("Public(home) error: %v", err)
	}
	if !strings.Contains(string(body), "Projects are coming soon.") {
		t.Error("home without projects should show the empty state")
	}
}

func TestPublicProjectEscapesHTML(t *testing.T) {
	rn := newRenderer(t)

	body, err := rn.Public("project", &PublicData{
		Title: "Moda Loft",
		Data: map[string]any{
			"Project": models.Project{
				Title:           "Moda Loft",
				FullDescription: "A loft <script>alert(1)</script>",
				GalleryImages:   []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Public(project) error: %v", err)
	}

	html := string(body)
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("raw HTML in markdown should not be rendered")
	}
	if strings.Count(html, `loading="lazy"`) != 2 {
		t.Error("every gallery image should be rendered")
	}
	if !strings.Contains(html, "<title>Moda Loft · Studio Test</title>") {
		t.Error("page title should include the project title")
	}
}

func TestPublicError(t *testing.T) {
	rn := newRenderer(t)

	w := httptest.NewRecorder()
	rn.PublicError(w, http.StatusServiceUnavailable, "The site is temporarily unavailable.")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "The site is temporarily unavailable.") {
		t.Error("error page should show the message")
	}
	if !strings.Contains(body, "503") {
		t.Error("error page should show the status")
	}
}

func TestTemplateFuncs(t *testing.T) {
	rn := newRenderer(t)

	lines := rn.funcMap["lines"].(func(string) []string)
	got := lines(" a \n\n b\r\n")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("lines() = %q, want [a b]", got)
	}

	active := rn.funcMap["activeClass"].(func(models.Resource, models.Resource) string)
	if active(models.ResourceHero, models.ResourceHero) != "tab active" || active(models.ResourceHero, models.ResourceAbout) != "tab" {
		t.Error("activeClass should mark only the current tab")
	}
}
