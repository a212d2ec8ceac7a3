package domain

import "time"

type ResponseView struct {
	ID        string       `json:"id"`
	Text      string       `json:"response"`
	Admin     *AdminPublic `json:"admin,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

type CommentView struct {
	ID         string       `json:"id"`
	Text       string       `json:"comment"`
	AuthorKind IdentityKind `json:"authorKind"`
	User       *UserPublic  `json:"user,omitempty"`
	Admin      *AdminPublic `json:"admin,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

type QueryView struct {
	ID          string        `json:"id"`
	QueryNumber int64         `json:"queryNumber"`
	QueryBy     string        `json:"queryBy"`
	Title       string        `json:"queryTitle"`
	Body        string        `json:"query"`
	Votes       int           `json:"votes"`
	VotedBy     []string      `json:"votedBy"`
	IsResolved  bool          `json:"isResolved"`
	Response    *ResponseView `json:"queryResponse,omitempty"`
	CommentIDs  []string      `json:"commentIds"`
	Comments    []CommentView `json:"queryComments,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func NewQueryView(q *Query) QueryView {
	votedBy := q.VotedBy
	if votedBy == nil {
		votedBy = []string{}
	}
	commentIDs := q.CommentIDs
	if commentIDs == nil {
		commentIDs = []string{}
	}
	return QueryView{
		ID:          q.ID,
		QueryNumber: q.Number,
		QueryBy:     q.AuthorUserID,
		Title:       q.Title,
		Body:        q.Body,
		Votes:       q.VoteCount,
		VotedBy:     votedBy,
		IsResolved:  q.IsResolved,
		CommentIDs:  commentIDs,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

// UserProfile is what a user sees about themselves (or an admin sees about a user).
type UserProfile struct {
	UserPublic
	PhoneNumber   string       `json:"phoneNumber,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	EmailVerified bool         `json:"emailVerified"`
	Verified      bool         `json:"verified"`
	VerifiedBy    *AdminPublic `json:"verifiedBy,omitempty"`
	Queries       []string     `json:"queries"`
}

type AdminProfile struct {
	AdminPublic
	Verified       bool     `json:"verified"`
	QueryResponses []string `json:"queryResponses"`
}

type SearchResult struct {
	Users  []UserPublic  `json:"users"`
	Admins []AdminPublic `json:"admins"`
}
