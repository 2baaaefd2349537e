// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "fmt"

// Media describes an uploaded image after it has been written to object
// storage. Documents only ever store URL, never the file bytes.
type Media struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	ThumbURL     string `json:"thumb_url,omitempty"`
	OriginalName string `json:"filename"`
	ContentType  string `json:"type"`
	SizeBytes    int64  `json:"size_bytes"`
}

// HumanSize returns a human-readable file size string.
func (m *Media) HumanSize() string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case m.SizeBytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(m.SizeBytes)/float64(mb))
	case m.SizeBytes >= kb:
		return fmt.Sprintf("%.0f KB", float64(m.SizeBytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", m.SizeBytes)
	}
}
