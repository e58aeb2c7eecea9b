// Package store provides the local persistence layer for the gateway.
package store

import (
	"context"

	"github.com/smart-assistant/gateway/internal/domain"
)

// Store defines asynchronous key-value semantics over named collections,
// plus the chat-history layer built on top of them.
type Store interface {
	// Get retrieves the record with the given id, or (nil, nil) if absent.
	Get(ctx context.Context, collection, id string) (*domain.Record, error)

	// GetAll returns every record in the collection, order unspecified.
	GetAll(ctx context.Context, collection string) ([]domain.Record, error)

	// Put inserts or fully replaces the record sharing rec.ID. Idempotent.
	Put(ctx context.Context, collection string, rec domain.Record) error

	// Delete removes the record if present; a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Clear removes every record in the collection.
	Clear(ctx context.Context, collection string) error

	// GetChatHistory returns the user's chat messages, oldest first.
	GetChatHistory(ctx context.Context, userID int) ([]domain.ChatMessage, error)

	// SaveChatMessage stamps the message with the owning user and a fresh
	// id, persists it, and trims the user's history to the retention cap.
	// The stored message is returned.
	SaveChatMessage(ctx context.Context, userID int, msg domain.ChatMessage) (domain.ChatMessage, error)

	// ClearChatHistory deletes every chat message owned by the user.
	ClearChatHistory(ctx context.Context, userID int) error

	// Ping verifies the underlying engine is reachable.
	Ping(ctx context.Context) error

	// Close closes the underlying engine.
	Close() error
}
