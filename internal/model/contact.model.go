package model

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name" validate:"notblank,max=200"`
	Email       string     `json:"email" validate:"omitempty,email"`
	Phone       string     `json:"phone" validate:"phone"`
	FacebookURL string     `json:"facebook_url" validate:"omitempty,url"`
	Notes       string     `json:"notes"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ContactInfo is the best available way to reach the contact.
func (c *Contact) ContactInfo() string {
	switch {
	case c.Email != "":
		return c.Email
	case c.Phone != "":
		return c.Phone
	}
	return "No contact info"
}

// FacebookHandle returns "@username" taken from the last path segment of the
// facebook url, or "" when there is none.
func (c *Contact) FacebookHandle() string {
	if c.FacebookURL == "" {
		return ""
	}
	path := c.FacebookURL
	if u, err := url.Parse(c.FacebookURL); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return ""
	}
	return "@" + path
}

type ContactFilter struct {
	Search string
	Limit  int
	Offset int
}

type ContactUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=200"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
	FacebookURL *string `json:"facebook_url" validate:"omitempty,url"`
	Notes       *string `json:"notes"`
}
