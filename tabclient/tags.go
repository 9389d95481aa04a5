package tabclient

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// Tag operations on datasources. AddTags and DeleteTags talk to the server
// directly; UpdateTags reconciles the edits made on an item since it was
// retrieved and is invoked automatically by Update.

// AddTags attaches tags to a datasource and returns the server's resulting
// tag set for the request.
func (e *DatasourcesEndpoint) AddTags(ctx context.Context, ref ContentRef, tags ...string) ([]string, error) {
	id := ref.refID()
	if id == "" {
		return nil, fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: at least one tag", ErrMissingRequiredField)
	}

	body, err := tagAddRequest(tags)
	if err != nil {
		return nil, err
	}
	response, err := e.put(ctx, e.baseURL()+"/"+id+"/tags", body, contentTypeXML)
	if err != nil {
		return nil, err
	}
	added, err := parseTags(response)
	if err != nil {
		return nil, err
	}
	e.client.logger.Info("added tags", zap.String("id", id), zap.Strings("tags", tags))
	return added, nil
}

// DeleteTags removes tags from a datasource.
func (e *DatasourcesEndpoint) DeleteTags(ctx context.Context, ref ContentRef, tags ...string) error {
	id := ref.refID()
	if id == "" {
		return fmt.Errorf("%w: datasource id", ErrMissingID)
	}
	if len(tags) == 0 {
		return fmt.Errorf("%w: at least one tag", ErrMissingRequiredField)
	}

	for _, tag := range tags {
		if err := e.delete(ctx, e.baseURL()+"/"+id+"/tags/"+url.PathEscape(tag)); err != nil {
			return err
		}
	}
	e.client.logger.Info("deleted tags", zap.String("id", id), zap.Strings("tags", tags))
	return nil
}

// UpdateTags commits the item's tag edits: tags added since retrieval are
// created, tags removed are deleted, and the item's baseline is reset.
func (e *DatasourcesEndpoint) UpdateTags(ctx context.Context, item *DatasourceItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: datasource must be retrieved from the server first", ErrMissingRequiredField)
	}

	added := tagDiff(item.Tags, item.initialTags)
	removed := tagDiff(item.initialTags, item.Tags)

	if len(added) > 0 {
		if _, err := e.AddTags(ctx, item, added...); err != nil {
			return err
		}
	}
	if len(removed) > 0 {
		if err := e.DeleteTags(ctx, item, removed...); err != nil {
			return err
		}
	}
	item.initialTags = append([]string(nil), item.Tags...)
	return nil
}

// tagDiff returns the elements of a that are not in b, preserving order.
func tagDiff(a, b []string) []string {
	present := make(map[string]struct{}, len(b))
	for _, tag := range b {
		present[tag] = struct{}{}
	}
	var diff []string
	for _, tag := range a {
		if _, ok := present[tag]; !ok {
			diff = append(diff, tag)
		}
	}
	return diff
}
