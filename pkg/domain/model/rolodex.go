package model

import "time"

// RolodexUser is a cached user record keyed by (UserID, WorkspaceID).
// Optional fields are nil when unknown; an upsert only overwrites the ones
// it supplies.
type RolodexUser struct {
	UserID      string
	WorkspaceID string
	Username    *string
	RealName    *string
	Email       *string
	LastUpdated time.Time
}

// RolodexChannel is a cached channel record keyed by (ChannelID, WorkspaceID)
type RolodexChannel struct {
	ChannelID   string
	WorkspaceID string
	Name        *string
	IsPrivate   *bool
	LastUpdated time.Time
}

// MergeFrom copies every non-nil optional field of src into u
func (u *RolodexUser) MergeFrom(src *RolodexUser) {
	if src.Username != nil {
		u.Username = src.Username
	}
	if src.RealName != nil {
		u.RealName = src.RealName
	}
	if src.Email != nil {
		u.Email = src.Email
	}
}

// MergeFrom copies every non-nil optional field of src into c
func (c *RolodexChannel) MergeFrom(src *RolodexChannel) {
	if src.Name != nil {
		c.Name = src.Name
	}
	if src.IsPrivate != nil {
		c.IsPrivate = src.IsPrivate
	}
}

// ClearResult reports how many rows a workspace clear removed per kind
type ClearResult struct {
	UsersDeleted    int
	ChannelsDeleted int
}

// Ptr returns a pointer to v. Used to fill optional record fields.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the pointed value or the zero value for nil
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
