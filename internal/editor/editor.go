// Package editor keeps an operator's working copy of the site content. It
// loads all five documents from the API, applies edits, pushes each edited
// document back in full and keeps a local copy of every edit. Edits are
// laid over the loaded documents, so fields the editor does not know about
// are pushed back unchanged. Edits the
// server did not accept are marked unsynced until Retry pushes them.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"atelier/internal/content"
	"atelier/internal/models"
	"atelier/internal/store"
)

var (
	// ErrNotLoaded is returned by edits made before a successful Load.
	ErrNotLoaded = errors.New("content not loaded")

	// ErrUnsynced wraps the push error of an edit that was kept locally
	// but not accepted by the server.
	ErrUnsynced = errors.New("saved locally but not synced")

	// ErrNotFound is returned when deleting an id that does not exist.
	ErrNotFound = errors.New("item not found")
)

// unsyncedFile holds the unsynced resource names in the state directory.
const unsyncedFile = "_unsynced.json"

// Remote is the subset of the API client the editor needs.
type Remote interface {
	GetRaw(ctx context.Context, r models.Resource) (json.RawMessage, error)
	PutRaw(ctx context.Context, r models.Resource, doc []byte, out any) error
}

// Editor is safe for concurrent use. Edits are serialized.
type Editor struct {
	remote Remote
	local  *store.FileDocumentStore

	mu       sync.Mutex
	state    *content.Snapshot
	docs     map[models.Resource]json.RawMessage
	unsynced map[models.Resource]bool

	now   func() time.Time
	newID func() string
}

// New creates an editor that keeps its fallback copies in local. Unsynced
// markers left by an earlier run are read back.
func New(remote Remote, local *store.FileDocumentStore) (*Editor, error) {
	e := &Editor{
		remote:   remote,
		local:    local,
		unsynced: map[models.Resource]bool{},
		now:      time.Now,
		newID:    func() string { return ulid.Make().String() },
	}
	if err := e.readMarkers(); err != nil {
		return nil, err
	}
	return e, nil
}

// Load fetches all five documents concurrently. If any fetch fails the
// load fails and the previous state is kept. Resources with unsynced edits
// are taken from the local copy, which is newer than the server's.
func (e *Editor) Load(ctx context.Context) (*content.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var snap content.Snapshot
	raw := make([]json.RawMessage, len(models.Resources))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range models.Resources {
		var out any
		switch r {
		case models.ResourceHero:
			out = &snap.Hero
		case models.ResourceProjects:
			out = &snap.Projects
		case models.ResourceAbout:
			out = &snap.About
		case models.ResourceServices:
			out = &snap.Services
		case models.ResourceContact:
			out = &snap.Contact
		}
		g.Go(func() error { return e.fetch(gctx, r, out, &raw[i]) })
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	e.state = &snap
	e.docs = make(map[models.Resource]json.RawMessage, len(raw))
	for i, r := range models.Resources {
		e.docs[r] = raw[i]
	}
	return e.snapshot(), nil
}

// fetch decodes one resource into out and keeps its raw form in raw,
// preferring the local copy of an unsynced resource.
func (e *Editor) fetch(ctx context.Context, r models.Resource, out any, raw *json.RawMessage) error {
	var data []byte
	var err error
	if e.unsynced[r] {
		data, err = e.local.Read(ctx, r)
	} else {
		data, err = e.remote.GetRaw(ctx, r)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", r, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", r, err)
	}
	*raw = data
	return nil
}

// Snapshot returns a copy of the current state, or nil before Load.
func (e *Editor) Snapshot() *content.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Editor) snapshot() *content.Snapshot {
	if e.state == nil {
		return nil
	}
	s := *e.state
	s.Projects = slices.Clone(e.state.Projects)
	s.Services = slices.Clone(e.state.Services)
	return &s
}

// SaveHero replaces the hero content. The id stays "1" and created_at is
// kept from the first save.
func (e *Editor) SaveHero(ctx context.Context, h models.Hero) (models.Hero, error) {
	return saveSingleton(ctx, e, models.ResourceHero, h, func(s *content.Snapshot) *models.Hero { return &s.Hero },
		func(v *models.Hero) (*string, *string, *string) { return &v.ID, &v.CreatedAt, &v.UpdatedAt })
}

// SaveAbout replaces the about section.
func (e *Editor) SaveAbout(ctx context.Context, a models.About) (models.About, error) {
	return saveSingleton(ctx, e, models.ResourceAbout, a, func(s *content.Snapshot) *models.About { return &s.About },
		func(v *models.About) (*string, *string, *string) { return &v.ID, &v.CreatedAt, &v.UpdatedAt })
}

// SaveContact replaces the contact details.
func (e *Editor) SaveContact(ctx context.Context, c models.Contact) (models.Contact, error) {
	return saveSingleton(ctx, e, models.ResourceContact, c, func(s *content.Snapshot) *models.Contact { return &s.Contact },
		func(v *models.Contact) (*string, *string, *string) { return &v.ID, &v.CreatedAt, &v.UpdatedAt })
}

// saveSingleton stamps v with the singleton identity and commits it. field
// selects the state slot and stamps exposes v's id and timestamps.
func saveSingleton[T any](ctx context.Context, e *Editor, r models.Resource, v T,
	field func(*content.Snapshot) *T, stamps func(*T) (id, created, updated *string)) (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return v, ErrNotLoaded
	}

	now := content.Timestamp(e.now())
	current := field(e.state)
	_, oldCreated, _ := stamps(current)
	id, created, updated := stamps(&v)
	*id = models.SingletonID
	*created = *oldCreated
	if *created == "" {
		*created = now
	}
	*updated = now

	doc, err := content.Overlay(e.docs[r], v)
	if err != nil {
		return v, fmt.Errorf("%s: %w", r, err)
	}
	err = e.commit(ctx, r, doc)
	*current = v
	return v, err
}

// SaveProject updates the project with p.ID, or appends p with a new id
// when no project has that id.
func (e *Editor) SaveProject(ctx context.Context, p models.Project) (models.Project, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return p, ErrNotLoaded
	}

	now := content.Timestamp(e.now())
	if p.GalleryImages == nil {
		p.GalleryImages = []string{}
	}
	projects := slices.Clone(e.state.Projects)
	idx := -1
	if p.ID != "" {
		idx = slices.IndexFunc(projects, func(x models.Project) bool { return x.ID == p.ID })
	}
	if idx >= 0 {
		p.CreatedAt = projects[idx].CreatedAt
		if p.CreatedAt == "" {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		projects[idx] = p
	} else {
		if p.ID == "" {
			p.ID = e.newID()
		}
		p.CreatedAt, p.UpdatedAt = now, now
		projects = append(projects, p)
	}

	err := e.commitList(ctx, models.ResourceProjects, projects)
	e.state.Projects = projects
	return p, err
}

// DeleteProject removes the project with id. The others keep their order.
func (e *Editor) DeleteProject(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ErrNotLoaded
	}

	idx := slices.IndexFunc(e.state.Projects, func(x models.Project) bool { return x.ID == id })
	if idx < 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	projects := slices.Delete(slices.Clone(e.state.Projects), idx, idx+1)

	err := e.commitList(ctx, models.ResourceProjects, projects)
	e.state.Projects = projects
	return err
}

// SaveService updates the service with s.ID, or appends s with a new id.
func (e *Editor) SaveService(ctx context.Context, s models.Service) (models.Service, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return s, ErrNotLoaded
	}

	now := content.Timestamp(e.now())
	services := slices.Clone(e.state.Services)
	idx := -1
	if s.ID != "" {
		idx = slices.IndexFunc(services, func(x models.Service) bool { return x.ID == s.ID })
	}
	if idx >= 0 {
		s.CreatedAt = services[idx].CreatedAt
		if s.CreatedAt == "" {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
		services[idx] = s
	} else {
		if s.ID == "" {
			s.ID = e.newID()
		}
		s.CreatedAt, s.UpdatedAt = now, now
		services = append(services, s)
	}

	err := e.commitList(ctx, models.ResourceServices, services)
	e.state.Services = services
	return s, err
}

// DeleteService removes the service with id.
func (e *Editor) DeleteService(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ErrNotLoaded
	}

	idx := slices.IndexFunc(e.state.Services, func(x models.Service) bool { return x.ID == id })
	if idx < 0 {
		return fmt.Errorf("service %s: %w", id, ErrNotFound)
	}
	services := slices.Delete(slices.Clone(e.state.Services), idx, idx+1)

	err := e.commitList(ctx, models.ResourceServices, services)
	e.state.Services = services
	return err
}

// commitList lays items over the loaded list and commits the result.
func (e *Editor) commitList(ctx context.Context, r models.Resource, items any) error {
	doc, err := content.OverlayList(e.docs[r], items)
	if err != nil {
		return fmt.Errorf("%s: %w", r, err)
	}
	return e.commit(ctx, r, doc)
}

// commit pushes the full document and keeps a local copy either way. A
// failed push marks the resource unsynced and returns an ErrUnsynced
// error; the caller still applies the edit to its state.
func (e *Editor) commit(ctx context.Context, r models.Resource, doc []byte) error {
	e.docs[r] = doc

	if err := e.local.Write(ctx, r, doc); err != nil {
		slog.Error("local copy failed", "resource", r, "error", err)
	}

	pushErr := e.remote.PutRaw(ctx, r, doc, nil)
	if pushErr != nil {
		slog.Warn("push failed, kept locally", "resource", r, "error", pushErr)
		e.unsynced[r] = true
	} else {
		delete(e.unsynced, r)
	}
	if err := e.writeMarkers(); err != nil {
		slog.Error("unsynced marker write failed", "error", err)
	}

	if pushErr != nil {
		return fmt.Errorf("%s: %w: %w", r, ErrUnsynced, pushErr)
	}
	return nil
}

// Unsynced lists the resources whose last edit the server has not
// accepted, in tab order.
func (e *Editor) Unsynced() []models.Resource {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unsyncedList()
}

func (e *Editor) unsyncedList() []models.Resource {
	var out []models.Resource
	for _, r := range models.Resources {
		if e.unsynced[r] {
			out = append(out, r)
		}
	}
	return out
}

// Retry pushes the local copy of every unsynced resource. Resources that
// go through are cleared; the errors of the rest are joined.
func (e *Editor) Retry(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, r := range e.unsyncedList() {
		doc, err := e.local.Read(ctx, r)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: read local copy: %w", r, err))
			continue
		}
		if err := e.remote.PutRaw(ctx, r, doc, nil); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r, err))
			continue
		}
		delete(e.unsynced, r)
		slog.Info("resource synced", "resource", r)
	}

	if err := e.writeMarkers(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Editor) markerPath() string {
	return filepath.Join(e.local.Dir(), unsyncedFile)
}

func (e *Editor) readMarkers() error {
	data, err := os.ReadFile(e.markerPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read unsynced markers: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("decode unsynced markers: %w", err)
	}
	for _, n := range names {
		if r, ok := models.ParseResource(n); ok {
			e.unsynced[r] = true
		}
	}
	return nil
}

// writeMarkers replaces the marker file, or removes it when everything is
// synced.
func (e *Editor) writeMarkers() error {
	if len(e.unsynced) == 0 {
		if err := os.Remove(e.markerPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("clear unsynced markers: %w", err)
		}
		return nil
	}

	names := make([]string, 0, len(e.unsynced))
	for r := range e.unsynced {
		names = append(names, r.String())
	}
	slices.Sort(names)
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode unsynced markers: %w", err)
	}

	tmp := e.markerPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write unsynced markers: %w", err)
	}
	if err := os.Rename(tmp, e.markerPath()); err != nil {
		return fmt.Errorf("write unsynced markers: %w", err)
	}
	return nil
}
