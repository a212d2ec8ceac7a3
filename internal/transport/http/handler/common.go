package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-notice/internal/domain"
	"campus-notice/internal/service"
	"campus-notice/internal/transport/http/ez"
)

type message struct {
	Message string `json:"message"`
}

type loginIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *loginIn) check() error {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return domain.Validation("email and password are required")
	}
	return nil
}

type pageQuery struct {
	SortBy string `form:"sortBy"`
	Limit  int    `form:"limit"`
	Skip   int    `form:"skip"`
}

// searchQuery accepts ?q= and the legacy ?query=.
type searchQuery struct {
	Q     string `form:"q"`
	Query string `form:"query"`
}

func (s searchQuery) term() string {
	if t := strings.TrimSpace(s.Q); t != "" {
		return t
	}
	return strings.TrimSpace(s.Query)
}

type commentIn struct {
	Comment string `json:"comment"`
}

type deleted struct {
	ID string `json:"id"`
}

// mountThreads registers the query/comment/search routes shared by both surfaces.
func mountThreads(e ez.EZ, threads *service.Threads, dir *service.Directory) {
	ez.RegisterAction(e, ez.Action[pageQuery, []domain.QueryView]{
		Method: http.MethodGet,
		Path:   "/queries",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *pageQuery) ([]domain.QueryView, error) {
			return threads.ListQueries(c.Request.Context(), in.SortBy, in.Limit, in.Skip)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *domain.QueryView]{
		Method: http.MethodGet,
		Path:   "/queries/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.QueryView, error) {
			return threads.GetQuery(c.Request.Context(), c.Param("id"))
		},
	})

	ez.RegisterAction(e, ez.Action[commentIn, *domain.CommentView]{
		Method: http.MethodPost,
		Path:   "/queries/:id/comments",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *commentIn) (*domain.CommentView, error) {
			return threads.AddComment(c.Request.Context(), ez.Who(c), c.Param("id"), in.Comment)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, deleted]{
		Method: http.MethodDelete,
		Path:   "/comments/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (deleted, error) {
			id := c.Param("id")
			if err := threads.DeleteComment(c.Request.Context(), ez.Who(c), id); err != nil {
				return deleted{}, err
			}
			return deleted{ID: id}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[searchQuery, *domain.SearchResult]{
		Method: http.MethodGet,
		Path:   "/search",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *searchQuery) (*domain.SearchResult, error) {
			term := in.term()
			if term == "" {
				return nil, domain.Validation("q is required")
			}
			return dir.Search(c.Request.Context(), ez.Who(c), term)
		},
	})
}
