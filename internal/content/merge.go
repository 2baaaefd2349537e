// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"atelier/internal/models"
	"atelier/internal/store"
)

// object is a decoded JSON object. Numbers stay json.Number so that values
// the service does not touch are written back unchanged.
type object = map[string]any

func decodeObject(data []byte) (object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj object
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = object{}
	}
	return obj, nil
}

func decodeList(data []byte) ([]object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var list []object
	if err := dec.Decode(&list); err != nil {
		return nil, err
	}
	return list, nil
}

// idOf returns an item's id as a string. Older documents carry numeric ids.
func idOf(obj object) string {
	switch v := obj["id"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// readForUpdate returns the current document, or its empty form when it was
// never written.
func (s *Service) readForUpdate(ctx context.Context, r models.Resource) ([]byte, error) {
	data, err := s.docs.Read(ctx, r)
	if errors.Is(err, store.ErrNotFound) {
		return r.EmptyDocument(), nil
	}
	return data, err
}

// Merge applies patch field by field onto a singleton and returns the
// result. The id is always "1"; created_at is set the first time and
// updated_at on every merge.
func (s *Service) Merge(ctx context.Context, r models.Resource, patch []byte) (json.RawMessage, error) {
	if _, ok := models.ParseResource(string(r)); !ok || r.IsList() {
		return nil, fmt.Errorf("merge %q: %w", r, ErrUnknownResource)
	}
	if err := CheckShape(r, patch); err != nil {
		return nil, err
	}
	fields, err := decodeObject(patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r, ErrInvalidShape)
	}

	unlock := s.locks.Lock(r)
	defer unlock()

	current, err := s.readForUpdate(ctx, r)
	if err != nil {
		return nil, err
	}
	doc, err := decodeObject(current)
	if err != nil {
		return nil, fmt.Errorf("decode stored %s: %w", r, err)
	}

	now := s.timestamp()
	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = now
	}
	for k, v := range fields {
		if k == "id" || k == "created_at" {
			continue
		}
		doc[k] = v
	}
	doc["id"] = models.SingletonID
	doc["updated_at"] = now

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r, err)
	}
	if err := s.write(ctx, r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertItem saves one list item. An item whose id matches an existing
// entry is merged onto it in place; anything else is appended, with a new
// id when none was given. created reports whether the item was appended.
func (s *Service) UpsertItem(ctx context.Context, r models.Resource, item []byte) (saved json.RawMessage, created bool, err error) {
	fields, err := s.itemFields(r, item)
	if err != nil {
		return nil, false, err
	}

	unlock := s.locks.Lock(r)
	defer unlock()

	list, err := s.readList(ctx, r)
	if err != nil {
		return nil, false, err
	}

	now := s.timestamp()
	id := idOf(fields)
	idx := -1
	if id != "" {
		idx = slices.IndexFunc(list, func(o object) bool { return idOf(o) == id })
	}

	var result object
	if idx >= 0 {
		result = mergeItem(list[idx], fields, now)
		list[idx] = result
	} else {
		if id == "" {
			fields["id"] = s.newID()
		}
		fields["created_at"] = now
		fields["updated_at"] = now
		result = fields
		list = append(list, result)
		created = true
	}

	if err := s.writeList(ctx, r, list); err != nil {
		return nil, false, err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, false, fmt.Errorf("encode item: %w", err)
	}
	return out, created, nil
}

// UpdateItem merges patch onto the item with the given id.
func (s *Service) UpdateItem(ctx context.Context, r models.Resource, id string, patch []byte) (json.RawMessage, error) {
	fields, err := s.itemFields(r, patch)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(r)
	defer unlock()

	list, err := s.readList(ctx, r)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(list, func(o object) bool { return idOf(o) == id })
	if idx < 0 {
		return nil, fmt.Errorf("%s %s: %w", r, id, ErrNotFound)
	}

	result := mergeItem(list[idx], fields, s.timestamp())
	list[idx] = result

	if err := s.writeList(ctx, r, list); err != nil {
		return nil, err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return out, nil
}

// DeleteItem removes exactly the item with id. The others keep their order.
func (s *Service) DeleteItem(ctx context.Context, r models.Resource, id string) error {
	if _, ok := models.ParseResource(string(r)); !ok || !r.IsList() {
		return fmt.Errorf("delete from %q: %w", r, ErrUnknownResource)
	}

	unlock := s.locks.Lock(r)
	defer unlock()

	list, err := s.readList(ctx, r)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(list, func(o object) bool { return idOf(o) == id })
	if idx < 0 {
		return fmt.Errorf("%s %s: %w", r, id, ErrNotFound)
	}
	list = slices.Delete(list, idx, idx+1)

	return s.writeList(ctx, r, list)
}

func (s *Service) itemFields(r models.Resource, item []byte) (object, error) {
	if _, ok := models.ParseResource(string(r)); !ok || !r.IsList() {
		return nil, fmt.Errorf("item in %q: %w", r, ErrUnknownResource)
	}
	trimmed := bytes.TrimSpace(item)
	if !json.Valid(trimmed) || len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%s item: expected an object: %w", r, ErrInvalidShape)
	}
	fields, err := decodeObject(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%s item: %w", r, ErrInvalidShape)
	}
	return fields, nil
}

func (s *Service) readList(ctx context.Context, r models.Resource) ([]object, error) {
	current, err := s.readForUpdate(ctx, r)
	if err != nil {
		return nil, err
	}
	list, err := decodeList(current)
	if err != nil {
		return nil, fmt.Errorf("decode stored %s: %w", r, err)
	}
	return list, nil
}

func (s *Service) writeList(ctx context.Context, r models.Resource, list []object) error {
	if list == nil {
		list = []object{}
	}
	out, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r, err)
	}
	return s.write(ctx, r, out)
}

// mergeItem copies fields onto existing, keeping its id and created_at.
func mergeItem(existing, fields object, now string) object {
	for k, v := range fields {
		if k == "id" || k == "created_at" {
			continue
		}
		existing[k] = v
	}
	if _, ok := existing["created_at"]; !ok {
		existing["created_at"] = now
	}
	existing["updated_at"] = now
	return existing
}

// Overlay encodes v and copies its fields onto the JSON object base.
// Fields of base that v does not carry are kept. An empty base starts
// from {}.
func Overlay(base []byte, v any) ([]byte, error) {
	doc := object{}
	if len(bytes.TrimSpace(base)) > 0 {
		var err error
		if doc, err = decodeObject(base); err != nil {
			return nil, fmt.Errorf("decode base: %w", err)
		}
	}
	fields, err := encodeObject(v)
	if err != nil {
		return nil, err
	}
	for k, val := range fields {
		doc[k] = val
	}
	return json.Marshal(doc)
}

// OverlayList encodes items, a slice of structs, and copies each one onto
// the entry of the JSON array base with the same id, keeping that entry's
// other fields and its stored id. Entries of base missing from items are
// dropped and the result follows the order of items.
func OverlayList(base []byte, items any) ([]byte, error) {
	byID := map[string]object{}
	if len(bytes.TrimSpace(base)) > 0 {
		var raw []json.RawMessage
		if err := json.Unmarshal(base, &raw); err != nil {
			return nil, fmt.Errorf("decode base: %w", err)
		}
		for _, entry := range raw {
			obj, err := decodeObject(entry)
			if err != nil {
				continue
			}
			if id := idOf(obj); id != "" {
				if _, seen := byID[id]; !seen {
					byID[id] = obj
				}
			}
		}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	edited, err := decodeList(data)
	if err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}

	out := make([]object, 0, len(edited))
	for _, item := range edited {
		if prev, ok := byID[idOf(item)]; ok && idOf(item) != "" {
			merged := maps.Clone(prev)
			for k, v := range item {
				if k != "id" {
					merged[k] = v
				}
			}
			item = merged
		}
		out = append(out, item)
	}
	return json.Marshal(out)
}

func encodeObject(v any) (object, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	obj, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("encode: expected an object: %w", err)
	}
	return obj, nil
}
