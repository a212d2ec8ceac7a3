package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"campus-notice/internal/domain"
)

// Threads implements the query/response/comment operations.
type Threads struct {
	threads  domain.ThreadRepository
	users    domain.UserRepository
	admins   domain.AdminRepository
	profiles *Profiles
	log      *zap.Logger
}

func NewThreads(threads domain.ThreadRepository, users domain.UserRepository, admins domain.AdminRepository, profiles *Profiles, l *zap.Logger) *Threads {
	if l == nil {
		l = zap.NewNop()
	}
	return &Threads{threads: threads, users: users, admins: admins, profiles: profiles, log: l}
}

type CreateQueryInput struct {
	Title string `json:"queryTitle" validate:"required,max=255"`
	Body  string `json:"query" validate:"required"`
}

func (s *Threads) CreateQuery(ctx context.Context, authorUserID string, in CreateQueryInput) (*domain.QueryView, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, authorUserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	q := &domain.Query{AuthorUserID: u.ID, Title: in.Title, Body: in.Body}
	if err := s.threads.CreateQuery(ctx, q); err != nil {
		return nil, err
	}
	s.log.Info("query created", zap.String("queryId", q.ID), zap.Int64("queryNumber", q.Number))
	v := domain.NewQueryView(q)
	return &v, nil
}

func (s *Threads) ListQueries(ctx context.Context, sortBy string, limit, skip int) ([]domain.QueryView, error) {
	limit, skip = page(limit, skip)
	qs, err := s.threads.ListQueries(ctx, domain.ParseQuerySort(sortBy), skip, limit)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, qs)
}

// views builds query views with the response and its admin populated.
func (s *Threads) views(ctx context.Context, qs []domain.Query) ([]domain.QueryView, error) {
	respIDs := make([]string, 0, len(qs))
	for i := range qs {
		if qs[i].ResponseID != "" {
			respIDs = append(respIDs, qs[i].ResponseID)
		}
	}
	resps, err := s.threads.FindResponses(ctx, respIDs)
	if err != nil {
		return nil, err
	}
	adminIDs := make([]string, 0, len(resps))
	for _, r := range resps {
		adminIDs = append(adminIDs, r.AdminID)
	}
	admins, err := s.profiles.Admins(ctx, adminIDs)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QueryView, 0, len(qs))
	for i := range qs {
		v := domain.NewQueryView(&qs[i])
		if r, ok := resps[qs[i].ResponseID]; ok {
			v.Response = &domain.ResponseView{ID: r.ID, Text: r.Text, Admin: admins[r.AdminID], CreatedAt: r.CreatedAt}
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Threads) view(ctx context.Context, q *domain.Query) (*domain.QueryView, error) {
	vs, err := s.views(ctx, []domain.Query{*q})
	if err != nil {
		return nil, err
	}
	return &vs[0], nil
}

func (s *Threads) GetQuery(ctx context.Context, id string) (*domain.QueryView, error) {
	q, err := s.threads.FindQuery(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, domain.NotFound("query not found")
	}
	v, err := s.view(ctx, q)
	if err != nil {
		return nil, err
	}
	cs, err := s.threads.Comments(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	v.Comments, err = s.commentViews(ctx, cs)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Threads) commentViews(ctx context.Context, cs []domain.Comment) ([]domain.CommentView, error) {
	var userIDs, adminIDs []string
	for _, c := range cs {
		if c.Author.Kind == domain.KindAdmin {
			adminIDs = append(adminIDs, c.Author.ID)
		} else {
			userIDs = append(userIDs, c.Author.ID)
		}
	}
	users, err := s.profiles.Users(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	admins, err := s.profiles.Admins(ctx, adminIDs)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CommentView, 0, len(cs))
	for _, c := range cs {
		v := domain.CommentView{ID: c.ID, Text: c.Text, AuthorKind: c.Author.Kind, CreatedAt: c.CreatedAt}
		switch c.Author.Kind {
		case domain.KindUser:
			v.User = users[c.Author.ID]
		case domain.KindAdmin:
			v.Admin = admins[c.Author.ID]
		}
		out = append(out, v)
	}
	return out, nil
}

// Vote toggles userID's up-vote: calling it twice restores the original state.
func (s *Threads) Vote(ctx context.Context, userID, queryID string) (*domain.QueryView, error) {
	q, err := s.threads.ToggleVote(ctx, queryID, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, q)
}

// SetResolution resolves an open query with text, or removes the response of a resolved one.
// The branch depends only on the current state; resolved reports which one ran.
func (s *Threads) SetResolution(ctx context.Context, adminID, queryID, text string) (view *domain.QueryView, resolved bool, err error) {
	a, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		return nil, false, err
	}
	if a == nil {
		return nil, false, domain.NotFound("admin not found")
	}
	res, err := s.threads.ToggleResolution(ctx, queryID, a.ID, strings.TrimSpace(text))
	if err != nil {
		return nil, false, err
	}
	view, err = s.view(ctx, res.Query)
	if err != nil {
		return nil, false, err
	}
	s.log.Info("query resolution toggled",
		zap.String("queryId", queryID), zap.String("adminId", a.ID), zap.Bool("resolved", res.Query.IsResolved))
	return view, res.Query.IsResolved, nil
}

func (s *Threads) AddComment(ctx context.Context, who domain.Identity, queryID, text string) (*domain.CommentView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Validation("comment is required")
	}
	c := &domain.Comment{QueryID: queryID, Text: text, Author: who.Author()}
	if err := s.threads.AddComment(ctx, c); err != nil {
		return nil, err
	}
	vs, err := s.commentViews(ctx, []domain.Comment{*c})
	if err != nil {
		return nil, err
	}
	return &vs[0], nil
}

func (s *Threads) DeleteComment(ctx context.Context, who domain.Identity, commentID string) error {
	c, err := s.threads.FindComment(ctx, commentID)
	if err != nil {
		return err
	}
	if c == nil {
		return domain.NotFound("comment not found")
	}
	q, err := s.threads.FindQuery(ctx, c.QueryID)
	if err != nil {
		return err
	}
	if q == nil {
		return domain.NotFound("query not found")
	}
	if c.Author != who.Author() {
		return domain.Forbidden("only the author can delete this comment")
	}
	return s.threads.DeleteComment(ctx, c)
}
