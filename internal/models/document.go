// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the five content documents of the studio site and
// the catalogue of resource names they are stored under.
package models

// Resource names one of the site documents. Each resource is stored as a
// single JSON document: singletons as an object, lists as an array.
type Resource string

const (
	ResourceHero     Resource = "hero"
	ResourceProjects Resource = "projects"
	ResourceAbout    Resource = "about"
	ResourceServices Resource = "services"
	ResourceContact  Resource = "contact"
)

// SingletonID is the fixed id carried by hero, about and contact.
const SingletonID = "1"

// Resources lists every document in admin tab order.
var Resources = []Resource{
	ResourceHero,
	ResourceProjects,
	ResourceAbout,
	ResourceServices,
	ResourceContact,
}

// ParseResource maps a URL segment to a known resource.
func ParseResource(s string) (Resource, bool) {
	for _, r := range Resources {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// IsList reports whether the document is an array of items with ids.
func (r Resource) IsList() bool {
	return r == ResourceProjects || r == ResourceServices
}

// Label returns the human-readable tab title.
func (r Resource) Label() string {
	switch r {
	case ResourceHero:
		return "Hero"
	case ResourceProjects:
		return "Projects"
	case ResourceAbout:
		return "About"
	case ResourceServices:
		return "Services"
	case ResourceContact:
		return "Contact"
	default:
		return string(r)
	}
}

// EmptyDocument returns the JSON a never-written document starts as.
func (r Resource) EmptyDocument() []byte {
	if r.IsList() {
		return []byte("[]")
	}
	return []byte("{}")
}

// String implements fmt.Stringer.
func (r Resource) String() string {
	return string(r)
}
