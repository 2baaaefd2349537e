// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"cmp"
	"slices"
)

// Project is one portfolio entry. Slug uniqueness is not enforced; the
// Featured flag gates homepage display.
type Project struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Category        string   `json:"category"`
	Description     string   `json:"description"`
	FullDescription string   `json:"full_description"`
	Location        string   `json:"location"`
	Year            string   `json:"year"`
	Area            string   `json:"area"`
	MainImage       string   `json:"main_image"`
	GalleryImages   []string `json:"gallery_images"`
	Featured        bool     `json:"featured"`
	CreatedAt       string   `json:"created_at,omitempty"`
	UpdatedAt       string   `json:"updated_at,omitempty"`
}

// Service is one offering shown on the homepage. OrderIndex is the only
// ordering signal and may repeat.
type Service struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// FeaturedProjects returns the projects flagged for the homepage, keeping
// the order they were stored in.
func FeaturedProjects(projects []Project) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

// SortServices returns a copy of services ordered by OrderIndex ascending.
// Services sharing an index keep their stored order.
func SortServices(services []Service) []Service {
	out := slices.Clone(services)
	slices.SortStableFunc(out, func(a, b Service) int {
		return cmp.Compare(a.OrderIndex, b.OrderIndex)
	})
	return out
}

// FindProjectBySlug returns the first project with the given slug.
func FindProjectBySlug(projects []Project, slug string) (Project, bool) {
	for _, p := range projects {
		if p.Slug == slug {
			return p, true
		}
	}
	return Project{}, false
}
