// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Hero is the homepage banner. Singleton, id "1".
type Hero struct {
	ID              string `json:"id,omitempty"`
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	BackgroundImage string `json:"background_image"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// About describes the studio. The stats are free text ("150+", "%98")
// and are never parsed as numbers.
type About struct {
	ID               string `json:"id,omitempty"`
	Title            string `json:"title"`
	Content1         string `json:"content1"`
	Content2         string `json:"content2"`
	ProjectsCount    string `json:"projects_count"`
	AwardsCount      string `json:"awards_count"`
	SatisfactionRate string `json:"satisfaction_rate"`
	ImageURL         string `json:"image_url"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

// Contact holds the studio's address and social links. No format
// validation is applied to any field.
type Contact struct {
	ID           string `json:"id,omitempty"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	InstagramURL string `json:"instagram_url"`
	LinkedinURL  string `json:"linkedin_url"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// IsZero reports whether the hero has no content to show.
func (h *Hero) IsZero() bool {
	return h == nil || (h.Title == "" && h.Subtitle == "" && h.BackgroundImage == "")
}

// IsZero reports whether the about section has no content to show.
func (a *About) IsZero() bool {
	return a == nil || (a.Title == "" && a.Content1 == "" && a.Content2 == "" && a.ImageURL == "")
}

// IsZero reports whether no contact detail is filled in.
func (c *Contact) IsZero() bool {
	return c == nil || (c.Address == "" && c.City == "" && c.Phone == "" && c.Email == "" &&
		c.InstagramURL == "" && c.LinkedinURL == "")
}
