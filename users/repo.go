package users

import "context"

// ListFilter selects users for the admin list. Empty fields match everything.
type ListFilter struct {
	TenantID string
	Role     Role
	Search   string // substring of email or name, case-insensitive
	Offset   int
	Limit    int
}

// ListResult is one page of users plus the total match count
type ListResult struct {
	Users  []*User `json:"users"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

type Repo interface {
	Upsert(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, filter ListFilter) (ListResult, error)
}
