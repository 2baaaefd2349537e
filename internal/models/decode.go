// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Stored documents are only shape-checked on write, so any field may be
// missing or hold another JSON type than the model expects. The decoders
// below coerce each field the way the site reads it and never fail on a
// field: ids written as numbers become strings, order_index written as a
// string becomes a number, and a value that cannot be coerced is zero.

// fields is one decoded JSON object. Numbers stay json.Number.
type fields map[string]any

// decodeFields decodes an object. null and non-object values yield nil.
func decodeFields(data []byte) fields {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var f fields
	if err := dec.Decode(&f); err != nil {
		return nil
	}
	return f
}

// text returns strings as is and numbers and booleans in their JSON form.
func (f fields) text(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// number returns an integer from a number or a numeric string. Fractions
// are truncated.
func (f fields) number(key string) int {
	var s string
	switch v := f[key].(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	default:
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return int(x)
}

// flag accepts booleans, "true"/"false" style strings and numbers, where
// anything but zero is true.
func (f fields) flag(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	case json.Number:
		x, err := v.Float64()
		return err == nil && x != 0
	default:
		return false
	}
}

// texts returns the non-empty entries of an array, or a lone string as a
// one-entry list.
func (f fields) texts(key string) []string {
	switch v := f[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s := (fields{"v": e}).text("v"); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

// UnmarshalJSON decodes a project leniently.
func (p *Project) UnmarshalJSON(data []byte) error {
	f := decodeFields(data)
	if f == nil {
		return nil
	}
	*p = Project{
		ID:              f.text("id"),
		Title:           f.text("title"),
		Slug:            f.text("slug"),
		Category:        f.text("category"),
		Description:     f.text("description"),
		FullDescription: f.text("full_description"),
		Location:        f.text("location"),
		Year:            f.text("year"),
		Area:            f.text("area"),
		MainImage:       f.text("main_image"),
		GalleryImages:   f.texts("gallery_images"),
		Featured:        f.flag("featured"),
		CreatedAt:       f.text("created_at"),
		UpdatedAt:       f.text("updated_at"),
	}
	return nil
}

// UnmarshalJSON decodes a service leniently.
func (s *Service) UnmarshalJSON(data []byte) error {
	f := decodeFields(data)
	if f == nil {
		return nil
	}
	*s = Service{
		ID:          f.text("id"),
		Title:       f.text("title"),
		Description: f.text("description"),
		OrderIndex:  f.number("order_index"),
		CreatedAt:   f.text("created_at"),
		UpdatedAt:   f.text("updated_at"),
	}
	return nil
}

// UnmarshalJSON decodes the hero leniently.
func (h *Hero) UnmarshalJSON(data []byte) error {
	f := decodeFields(data)
	if f == nil {
		return nil
	}
	*h = Hero{
		ID:              f.text("id"),
		Title:           f.text("title"),
		Subtitle:        f.text("subtitle"),
		BackgroundImage: f.text("background_image"),
		CreatedAt:       f.text("created_at"),
		UpdatedAt:       f.text("updated_at"),
	}
	return nil
}

// UnmarshalJSON decodes the about section leniently. Numeric stats such as
// 150 are kept as text.
func (a *About) UnmarshalJSON(data []byte) error {
	f := decodeFields(data)
	if f == nil {
		return nil
	}
	*a = About{
		ID:               f.text("id"),
		Title:            f.text("title"),
		Content1:         f.text("content1"),
		Content2:         f.text("content2"),
		ProjectsCount:    f.text("projects_count"),
		AwardsCount:      f.text("awards_count"),
		SatisfactionRate: f.text("satisfaction_rate"),
		ImageURL:         f.text("image_url"),
		CreatedAt:        f.text("created_at"),
		UpdatedAt:        f.text("updated_at"),
	}
	return nil
}

// UnmarshalJSON decodes the contact details leniently.
func (c *Contact) UnmarshalJSON(data []byte) error {
	f := decodeFields(data)
	if f == nil {
		return nil
	}
	*c = Contact{
		ID:           f.text("id"),
		Address:      f.text("address"),
		City:         f.text("city"),
		Phone:        f.text("phone"),
		Email:        f.text("email"),
		InstagramURL: f.text("instagram_url"),
		LinkedinURL:  f.text("linkedin_url"),
		CreatedAt:    f.text("created_at"),
		UpdatedAt:    f.text("updated_at"),
	}
	return nil
}
