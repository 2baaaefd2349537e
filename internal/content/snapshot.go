// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"atelier/internal/models"
)

// Snapshot is every document decoded at one point in time.
type Snapshot struct {
	Hero     models.Hero
	Projects []models.Project
	About    models.About
	Services []models.Service
	Contact  models.Contact
}

// FeaturedProjects returns the homepage projects in store order.
func (s *Snapshot) FeaturedProjects() []models.Project {
	return models.FeaturedProjects(s.Projects)
}

// SortedServices returns services by ascending order_index.
func (s *Snapshot) SortedServices() []models.Service {
	return models.SortServices(s.Services)
}

// Load reads the five documents concurrently. If any read or decode fails
// the whole load fails and no partial snapshot is returned.
func (s *Service) Load(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.decode(ctx, models.ResourceHero, &snap.Hero) })
	g.Go(func() error { return s.decode(ctx, models.ResourceProjects, &snap.Projects) })
	g.Go(func() error { return s.decode(ctx, models.ResourceAbout, &snap.About) })
	g.Go(func() error { return s.decode(ctx, models.ResourceServices, &snap.Services) })
	g.Go(func() error { return s.decode(ctx, models.ResourceContact, &snap.Contact) })

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	return &snap, nil
}

// Hero returns the homepage banner.
func (s *Service) Hero(ctx context.Context) (models.Hero, error) {
	var v models.Hero
	return v, s.decode(ctx, models.ResourceHero, &v)
}

// About returns the studio description.
func (s *Service) About(ctx context.Context) (models.About, error) {
	var v models.About
	return v, s.decode(ctx, models.ResourceAbout, &v)
}

// Contact returns the studio contact details.
func (s *Service) Contact(ctx context.Context) (models.Contact, error) {
	var v models.Contact
	return v, s.decode(ctx, models.ResourceContact, &v)
}

// Projects returns every project in store order.
func (s *Service) Projects(ctx context.Context) ([]models.Project, error) {
	var v []models.Project
	return v, s.decode(ctx, models.ResourceProjects, &v)
}

// Services returns every service in store order.
func (s *Service) Services(ctx context.Context) ([]models.Service, error) {
	var v []models.Service
	return v, s.decode(ctx, models.ResourceServices, &v)
}

// Project returns the first project with slug.
func (s *Service) Project(ctx context.Context, slug string) (models.Project, error) {
	projects, err := s.Projects(ctx)
	if err != nil {
		return models.Project{}, err
	}
	p, ok := models.FindProjectBySlug(projects, slug)
	if !ok {
		return models.Project{}, fmt.Errorf("project %q: %w", slug, ErrNotFound)
	}
	return p, nil
}

// SaveSingleton merges v onto hero, about or contact.
func (s *Service) SaveSingleton(ctx context.Context, r models.Resource, v any) (json.RawMessage, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r, err)
	}
	return s.Merge(ctx, r, body)
}

// SaveProject creates or updates a project by id.
func (s *Service) SaveProject(ctx context.Context, p models.Project) (models.Project, error) {
	var out models.Project
	return out, s.saveItem(ctx, models.ResourceProjects, p, &out)
}

// SaveService creates or updates a service by id.
func (s *Service) SaveService(ctx context.Context, svc models.Service) (models.Service, error) {
	var out models.Service
	return out, s.saveItem(ctx, models.ResourceServices, svc, &out)
}

func (s *Service) saveItem(ctx context.Context, r models.Resource, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s item: %w", r, err)
	}
	saved, _, err := s.UpsertItem(ctx, r, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(saved, out); err != nil {
		return fmt.Errorf("decode %s item: %w", r, err)
	}
	return nil
}

func (s *Service) decode(ctx context.Context, r models.Resource, out any) error {
	data, err := s.GetRaw(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", r, err)
	}
	return nil
}
