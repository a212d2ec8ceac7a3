package domain

import "time"

type Query struct {
	ID           string
	Number       int64
	AuthorUserID string
	Title        string
	Body         string
	VoteCount    int
	VotedBy      []string
	IsResolved   bool
	ResponseID   string
	CommentIDs   []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasVoted reports whether userID holds an active up-vote.
func (q *Query) HasVoted(userID string) bool {
	for _, id := range q.VotedBy {
		if id == userID {
			return true
		}
	}
	return false
}

type QueryResponse struct {
	ID        string
	AdminID   string
	QueryID   string
	Text      string
	CreatedAt time.Time
}

// Author is the tagged union {User(id) | Admin(id)} of a comment.
type Author struct {
	Kind IdentityKind
	ID   string
}

func UserAuthor(id string) Author  { return Author{Kind: KindUser, ID: id} }
func AdminAuthor(id string) Author { return Author{Kind: KindAdmin, ID: id} }

func (a Author) Valid() bool { return a.Kind.Valid() && a.ID != "" }

type Comment struct {
	ID        string
	QueryID   string
	Text      string
	Author    Author
	CreatedAt time.Time
}

// QuerySort selects the listing order.
type QuerySort string

const (
	SortRecency QuerySort = "recency"
	SortVotes   QuerySort = "votes"
)

func ParseQuerySort(s string) QuerySort {
	if s == string(SortVotes) {
		return SortVotes
	}
	return SortRecency
}

// ResolutionResult tells the caller which branch of the toggle ran.
type ResolutionResult struct {
	Query    *Query
	Response *QueryResponse // set when the query was resolved, nil when unresolved
	Removed  *QueryResponse // set when an existing response was deleted
}
