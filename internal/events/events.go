// Package events defines the inventory notifications pushed to real-time
// subscribers and the Publisher contract the inventory service depends on.
package events

import (
	"context"

	"shopfront/internal/models"

	"go.uber.org/multierr"
)

// TopicPrefix prefixes every per-product size topic.
const TopicPrefix = "sizes-update-"

// Topic returns the channel key for a product's size updates.
func Topic(productID string) string {
	return TopicPrefix + productID
}

// UpdatedSize names the size a mutation touched and its resulting quantity.
type UpdatedSize struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// SizesUpdate is published once per successful inventory mutation.
type SizesUpdate struct {
	ProductID   string             `json:"productId"`
	Sizes       []models.SizeEntry `json:"sizes"`
	UpdatedSize UpdatedSize        `json:"updatedSize"`
}

// Publisher delivers a payload to the subscribers of a topic. Delivery is
// best effort and implementations must not wait on subscribers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, topic string, payload interface{}) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, topic string, payload interface{}) error {
	return f(ctx, topic, payload)
}

// Fanout publishes to every wrapped publisher, even when some fail.
type Fanout []Publisher

// Publish sends the payload to each publisher and combines their errors.
func (f Fanout) Publish(ctx context.Context, topic string, payload interface{}) error {
	var err error
	for _, p := range f {
		if p == nil {
			continue
		}
		err = multierr.Append(err, p.Publish(ctx, topic, payload))
	}
	return err
}

// Discard drops every event. Used when no real-time channel is configured.
var Discard Publisher = PublisherFunc(func(context.Context, string, interface{}) error { return nil })
