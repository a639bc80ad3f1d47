package model

import (
	"time"
)

// PostStatus represents the publication state of a post record
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Post represents a content record managed through the CMS backend
type Post struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	CategoryID  string       `json:"category_id,omitempty"`
	Status      PostStatus   `json:"status"`
	Media       []MediaAsset `json:"media"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

// PostList is a page of posts returned by the CMS backend
type PostList struct {
	Posts    []Post `json:"posts"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// PostFilter narrows a post listing
type PostFilter struct {
	Status   string
	Category string
	Search   string
	Page     int
	PageSize int
}

// Category groups posts for the public gallery views
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Booking represents a contact/booking request submitted from the
// public site
type Booking struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message,omitempty"`
	EventDate string    `json:"event_date,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
