package thread

import (
	"time"

	"campus-notice/internal/domain"
)

// CounterQueryNumber is the counters row backing query numbering.
const CounterQueryNumber = "queryNumber"

type CounterModel struct {
	Name string `gorm:"primaryKey;size:64"`
	Seq  int64  `gorm:"not null;default:0"`
}

func (CounterModel) TableName() string { return "counters" }

type QueryModel struct {
	ID           string  `gorm:"primaryKey;size:36"`
	QueryNumber  int64   `gorm:"uniqueIndex;not null"`
	AuthorUserID string  `gorm:"size:36;not null;index"`
	Title        string  `gorm:"size:255;not null"`
	Body         string  `gorm:"type:text;not null"`
	VoteCount    int     `gorm:"not null;default:0;index:idx_queries_votes,priority:1"`
	IsResolved   bool    `gorm:"not null;default:false"`
	ResponseID   *string `gorm:"size:36"`

	CreatedAt time.Time `gorm:"autoCreateTime;index;index:idx_queries_votes,priority:2"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (QueryModel) TableName() string { return "queries" }

func (m *QueryModel) ToDomain() *domain.Query {
	q := &domain.Query{
		ID:           m.ID,
		Number:       m.QueryNumber,
		AuthorUserID: m.AuthorUserID,
		Title:        m.Title,
		Body:         m.Body,
		VoteCount:    m.VoteCount,
		IsResolved:   m.IsResolved,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.ResponseID != nil {
		q.ResponseID = *m.ResponseID
	}
	return q
}

// VoteModel is one member of a query's votedBy set.
type VoteModel struct {
	QueryID   string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (VoteModel) TableName() string { return "query_votes" }

type ResponseModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	AdminID   string    `gorm:"size:36;not null;index"`
	QueryID   string    `gorm:"size:36;not null;uniqueIndex"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ResponseModel) TableName() string { return "query_responses" }

func (m *ResponseModel) ToDomain() *domain.QueryResponse {
	return &domain.QueryResponse{ID: m.ID, AdminID: m.AdminID, QueryID: m.QueryID, Text: m.Text, CreatedAt: m.CreatedAt}
}

// CommentModel stores the author as a (kind, id) pair so that exactly one author exists.
type CommentModel struct {
	ID         string    `gorm:"primaryKey;size:36"`
	QueryID    string    `gorm:"size:36;not null;index:idx_comments_query,priority:1"`
	AuthorKind string    `gorm:"size:8;not null"`
	AuthorID   string    `gorm:"size:36;not null;index"`
	Text       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_comments_query,priority:2"`
}

func (CommentModel) TableName() string { return "query_comments" }

func (m *CommentModel) ToDomain() *domain.Comment {
	return &domain.Comment{
		ID:        m.ID,
		QueryID:   m.QueryID,
		Text:      m.Text,
		Author:    domain.Author{Kind: domain.IdentityKind(m.AuthorKind), ID: m.AuthorID},
		CreatedAt: m.CreatedAt,
	}
}
