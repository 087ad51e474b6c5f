package model

import "time"

// Location is a place items can be assigned to (a room, a storage).
type Location struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Assignment records that an item was placed at a location. A nil RemovedAt
// means the assignment is active, i.e. the item's current location.
type Assignment struct {
	ID         int64      `json:"id"`
	ItemID     int64      `json:"item_id"`
	LocationID int64      `json:"location_id"`
	AssignedAt time.Time  `json:"assigned_at"`
	RemovedAt  *time.Time `json:"removed_at"`

	// Joined fields (not always populated).
	ItemName     string `json:"item_name,omitempty"`
	LocationName string `json:"location_name,omitempty"`
}

// Active reports whether the assignment is the item's current placement.
func (a *Assignment) Active() bool {
	return a.RemovedAt == nil
}

// Placement says how a transfer reached its target location.
type Placement string

// Placements.
const (
	// PlacementAlreadyThere means the item was already active at the target.
	PlacementAlreadyThere Placement = "already_at_location"
	// PlacementReactivated means an earlier assignment to the target was reopened.
	PlacementReactivated Placement = "reactivated"
	// PlacementCreated means a new assignment was created.
	PlacementCreated Placement = "created"
)
