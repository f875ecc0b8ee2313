package adapters

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/opencustomize/opencustomize/internal/domain"
)

// GoogleUUIDGenerator generates document identities using google/uuid.
type GoogleUUIDGenerator struct{}

// NewGoogleUUIDGenerator creates a new document ID generator adapter.
func NewGoogleUUIDGenerator() domain.DocumentIDGenerator {
	return &GoogleUUIDGenerator{}
}

// NewID generates a new UUID v7, so IDs sort roughly by creation order.
func (g *GoogleUUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		slog.Error("failed to generate document id", "error", err)
		return "", err
	}
	return id.String(), nil
}

// Ensure GoogleUUIDGenerator implements DocumentIDGenerator.
var _ domain.DocumentIDGenerator = (*GoogleUUIDGenerator)(nil)
