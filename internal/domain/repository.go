package domain

import "context"

// Find* methods return (nil, nil) when the record is absent.

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByRollNumber(ctx context.Context, roll string) (*User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*User, error)
	MarkEmailVerified(ctx context.Context, id string) error
	// Approve flips verified only if it is still false; ok=false means another admin won.
	Approve(ctx context.Context, userID, adminID string) (ok bool, err error)
	// DeleteUnverified hard-deletes the user only while verified is false.
	DeleteUnverified(ctx context.Context, id string) (ok bool, err error)
	ListVerified(ctx context.Context, offset, limit int) ([]User, error)
	ListPending(ctx context.Context) ([]User, error)
	Search(ctx context.Context, term, excludeID string, limit int) ([]User, error)
	QueryIDs(ctx context.Context, userID string) ([]string, error)
}

type AdminRepository interface {
	Create(ctx context.Context, a *Admin) error
	FindByID(ctx context.Context, id string) (*Admin, error)
	FindByEmail(ctx context.Context, email string) (*Admin, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*Admin, error)
	MarkVerified(ctx context.Context, id string) error
	Search(ctx context.Context, term, excludeID string, limit int) ([]Admin, error)
	ResponseIDs(ctx context.Context, adminID string) ([]string, error)
}

type ThreadRepository interface {
	// CreateQuery assigns q.ID and q.Number; the number comes from an atomic counter.
	CreateQuery(ctx context.Context, q *Query) error
	FindQuery(ctx context.Context, id string) (*Query, error)
	ListQueries(ctx context.Context, sort QuerySort, offset, limit int) ([]Query, error)
	ToggleVote(ctx context.Context, queryID, userID string) (*Query, error)
	ToggleResolution(ctx context.Context, queryID, adminID, text string) (*ResolutionResult, error)
	FindResponses(ctx context.Context, ids []string) (map[string]*QueryResponse, error)
	AddComment(ctx context.Context, c *Comment) error
	FindComment(ctx context.Context, id string) (*Comment, error)
	DeleteComment(ctx context.Context, c *Comment) error
	Comments(ctx context.Context, queryID string) ([]Comment, error)
}
