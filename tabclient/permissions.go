package tabclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// permissionsEndpoint binds the permissions sub-resource of a content
// endpoint. ownerURL supplies the owning resource's base URL so the same
// delegate can serve any content type.
type permissionsEndpoint struct {
	endpoint
	ownerURL func() string
}

func (e *permissionsEndpoint) resourceURL(id string) string {
	return e.ownerURL() + "/" + id + "/permissions"
}

func (e *permissionsEndpoint) populate(ctx context.Context, item *DatasourceItem) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: item must be retrieved from the server first", ErrMissingRequiredField)
	}
	body, err := e.get(ctx, e.resourceURL(item.ID), nil)
	if err != nil {
		return err
	}
	rules, err := parsePermissions(body)
	if err != nil {
		return err
	}
	item.setPermissions(rules)
	e.client.logger.Info("populated permissions", zap.String("id", item.ID))
	return nil
}

func (e *permissionsEndpoint) update(ctx context.Context, item *DatasourceItem, rules []PermissionsRule) ([]PermissionsRule, error) {
	if item == nil || item.ID == "" {
		return nil, fmt.Errorf("%w: item must be retrieved from the server first", ErrMissingRequiredField)
	}
	body, err := permissionsUpdateRequest(rules)
	if err != nil {
		return nil, err
	}
	response, err := e.put(ctx, e.resourceURL(item.ID), body, contentTypeXML)
	if err != nil {
		return nil, err
	}
	updated, err := parsePermissions(response)
	if err != nil {
		return nil, err
	}
	e.client.logger.Info("updated permissions", zap.String("id", item.ID), zap.Int("rules", len(rules)))
	return updated, nil
}

// deleteRule removes one grantee's rule capability by capability.
func (e *permissionsEndpoint) deleteRule(ctx context.Context, item *DatasourceItem, rule PermissionsRule) error {
	if item == nil || item.ID == "" {
		return fmt.Errorf("%w: item must be retrieved from the server first", ErrMissingRequiredField)
	}
	if rule.GranteeID == "" {
		return fmt.Errorf("%w: grantee id", ErrMissingID)
	}
	for name, mode := range rule.Capabilities {
		capabilityURL := fmt.Sprintf("%s/%ss/%s/%s/%s",
			e.resourceURL(item.ID), rule.GranteeType, rule.GranteeID, name, mode)
		if err := e.delete(ctx, capabilityURL); err != nil {
			return err
		}
	}
	e.client.logger.Info("deleted permission rule",
		zap.String("id", item.ID), zap.String("grantee_id", rule.GranteeID))
	return nil
}

// PopulatePermissions fetches the datasource's permission rules and caches
// them on the item, replacing any previous value.
func (e *DatasourcesEndpoint) PopulatePermissions(ctx context.Context, item *DatasourceItem) error {
	return e.permissions.populate(ctx, item)
}

// UpdatePermissions overwrites the datasource's permission rules and
// returns the server's resulting rule set.
func (e *DatasourcesEndpoint) UpdatePermissions(ctx context.Context, item *DatasourceItem, rules []PermissionsRule) ([]PermissionsRule, error) {
	return e.permissions.update(ctx, item, rules)
}

// DeletePermission removes every capability of one grantee's rule.
func (e *DatasourcesEndpoint) DeletePermission(ctx context.Context, item *DatasourceItem, rule PermissionsRule) error {
	return e.permissions.deleteRule(ctx, item, rule)
}
