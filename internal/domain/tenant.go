package domain

import "time"

// Center is the top level of the tenant hierarchy.
type Center struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a physical shop belonging to a center.
type Store struct {
	ID        string
	CenterID  string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
