package tabclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// dqwEndpoint binds the data quality warning sub-resource for one content
// type. Warnings live under the site, keyed by content type and content id.
type dqwEndpoint struct {
	endpoint
	contentType string
}

func (e *dqwEndpoint) baseURL() string {
	return e.client.siteBaseURL() + "/dataQualityWarnings"
}

func (e *dqwEndpoint) contentURL(contentID string) string {
	return e.baseURL() + "/" + e.contentType + "/" + contentID
}

func (e *dqwEndpoint) populate(ctx context.Context, item *DatasourceItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: item must be retrieved from the server first", ErrMissingRequiredField)
	}
	body, err := e.get(ctx, e.contentURL(item.ID), nil)
	if err != nil {
		return err
	}
	warnings, err := parseDQWs(body)
	if err != nil {
		return err
	}
	item.setWarnings(warnings)
	e.client.logger.Info("populated data quality warnings", zap.String("id", item.ID))
	return nil
}

func (e *dqwEndpoint) add(ctx context.Context, item *DatasourceItem, warning DQWItem) (*DQWItem, error) {
	if item == nil || item.ID == "" {
		return nil, fmt.Errorf("%w: item must be retrieved from the server first", ErrMissingRequiredField)
	}
	body, err := dqwRequest(warning)
	if err != nil {
		return nil, err
	}
	response, err := e.post(ctx, e.contentURL(item.ID), body, contentTypeXML)
	if err != nil {
		return nil, err
	}
	warnings, err := parseDQWs(response)
	if err != nil {
		return nil, err
	}
	if len(warnings) == 0 {
		return nil, fmt.Errorf("%w: data quality warning", ErrItemNotFound)
	}
	e.client.logger.Info("added data quality warning",
		zap.String("id", item.ID), zap.String("warning_id", warnings[0].ID))
	return &warnings[0], nil
}

func (e *dqwEndpoint) update(ctx context.Context, warning DQWItem) (*DQWItem, error) {
	if warning.ID == "" {
		return nil, fmt.Errorf("%w: warning id", ErrMissingID)
	}
	body, err := dqwRequest(warning)
	if err != nil {
		return nil, err
	}
	response, err := e.put(ctx, e.baseURL()+"/"+warning.ID, body, contentTypeXML)
	if err != nil {
		return nil, err
	}
	warnings, err := parseDQWs(response)
	if err != nil {
		return nil, err
	}
	if len(warnings) == 0 {
		return nil, fmt.Errorf("%w: data quality warning %s", ErrItemNotFound, warning.ID)
	}
	return &warnings[0], nil
}

func (e *dqwEndpoint) clear(ctx context.Context, item *DatasourceItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: item must be retrieved from the server first", ErrMissingRequiredField)
	}
	if err := e.delete(ctx, e.contentURL(item.ID)); err != nil {
		return err
	}
	e.client.logger.Info("cleared data quality warnings", zap.String("id", item.ID))
	return nil
}

// PopulateDQWs fetches the datasource's data quality warnings and caches
// them on the item, replacing any previous value. Requires API version 3.5.
func (e *DatasourcesEndpoint) PopulateDQWs(ctx context.Context, item *DatasourceItem) error {
	return e.warnings.populate(ctx, item)
}

// AddDQW attaches a data quality warning to the datasource and returns the
// created warning. Requires API version 3.5.
func (e *DatasourcesEndpoint) AddDQW(ctx context.Context, item *DatasourceItem, warning DQWItem) (*DQWItem, error) {
	return e.warnings.add(ctx, item, warning)
}

// UpdateDQW pushes a warning's mutable fields to the server and returns the
// updated warning. Requires API version 3.5.
func (e *DatasourcesEndpoint) UpdateDQW(ctx context.Context, warning DQWItem) (*DQWItem, error) {
	return e.warnings.update(ctx, warning)
}

// DeleteDQWs removes all data quality warnings from the datasource.
// Requires API version 3.5.
func (e *DatasourcesEndpoint) DeleteDQWs(ctx context.Context, item *DatasourceItem) error {
	return e.warnings.clear(ctx, item)
}
