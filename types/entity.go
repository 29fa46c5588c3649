// Package types provides the value types shared across launchpad packages:
// record timestamps and checked 256-bit token arithmetic.
package types

import "time"

// Entity carries record timestamps. Embed it in domain models.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity stamps both timestamps with now (UTC).
func NewEntity(now time.Time) Entity {
	now = now.UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch moves UpdatedAt to now (UTC).
func (e *Entity) Touch(now time.Time) {
	e.UpdatedAt = now.UTC()
}

// Age returns how long before now the entity was created.
func (e Entity) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}
