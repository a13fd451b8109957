package contact

import "context"

// Repository defines the interface for contact storage.
type Repository interface {
	// List returns the active contacts matching filter ordered by priority.
	List(ctx context.Context, filter Filter) ([]Contact, error)

	// Upsert creates or replaces a contact.
	Upsert(ctx context.Context, c *Contact) error
}
