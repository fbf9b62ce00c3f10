package notifications

import (
	"context"
	"net/url"

	"github.com/jrsteele09/go-imagen-client/apiclient"
)

const (
	readNotificationPath     = "/user/read-notification/"
	readAllNotificationsPath = "/user/read-all-notifications"
)

// APIMarker records read state through the generation API.
type APIMarker struct {
	client *apiclient.Client
}

func NewAPIMarker(client *apiclient.Client) *APIMarker {
	return &APIMarker{client: client}
}

func (m *APIMarker) MarkRead(ctx context.Context, id string) error {
	_, err := m.client.Put(ctx, readNotificationPath+url.PathEscape(id), nil)
	return err
}

func (m *APIMarker) MarkAllRead(ctx context.Context) error {
	_, err := m.client.Put(ctx, readAllNotificationsPath, nil)
	return err
}
