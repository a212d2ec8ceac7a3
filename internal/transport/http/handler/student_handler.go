package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-notice/internal/domain"
	"campus-notice/internal/service"
	"campus-notice/internal/transport/http/ez"
	mdw "campus-notice/internal/transport/http/middleware"
)

// StudentHandler mounts the /api/v1 routes.
type StudentHandler struct {
	verify   *service.Verification
	threads  *service.Threads
	dir      *service.Directory
	attempts mdw.KeyLimiter
}

func NewStudentHandler(v *service.Verification, t *service.Threads, d *service.Directory, attempts mdw.KeyLimiter) *StudentHandler {
	return &StudentHandler{verify: v, threads: t, dir: d, attempts: attempts}
}

func (h *StudentHandler) Priority() int { return 10 }

type userLoginOut struct {
	AuthToken string            `json:"authToken"`
	User      domain.UserPublic `json:"user"`
}

type userQuery struct {
	UserID string `form:"userId"`
}

func (h *StudentHandler) MountAPI(g *gin.RouterGroup) {
	pub := ez.New(g)
	throttle := []gin.HandlerFunc{mdw.LimitBy(h.attempts, "user-auth")}

	ez.RegisterAction(pub, ez.Action[service.RegisterUserInput, message]{
		Method: http.MethodPost,
		Path:   "/users/register",
		Binder: ez.BindJSON,
		Mw:     throttle,
		Handler: func(c *gin.Context, in *service.RegisterUserInput) (message, error) {
			if _, err := h.verify.RegisterUser(c.Request.Context(), *in); err != nil {
				return message{}, err
			}
			return message{Message: "User registered successfully. Please check your email for confirmation."}, nil
		},
	})

	ez.RegisterAction(pub, ez.Action[struct{}, message]{
		Method: http.MethodGet,
		Path:   "/users/validate/:token",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (message, error) {
			if _, err := h.verify.ConfirmUserEmail(c.Request.Context(), c.Param("token")); err != nil {
				return message{}, err
			}
			return message{Message: "Email verified successfully, waiting for admin approval"}, nil
		},
	})

	ez.RegisterAction(pub, ez.Action[loginIn, userLoginOut]{
		Method: http.MethodPost,
		Path:   "/users/login",
		Binder: ez.BindJSON,
		Mw:     throttle,
		Handler: func(c *gin.Context, in *loginIn) (userLoginOut, error) {
			if err := in.check(); err != nil {
				return userLoginOut{}, err
			}
			tok, u, err := h.verify.LoginUser(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return userLoginOut{}, err
			}
			return userLoginOut{AuthToken: tok, User: u.Public()}, nil
		},
	})

	// 以下接口需要已审批的学生身份
	authed := pub.Group("", mdw.Auth(h.verify, domain.KindUser))

	ez.RegisterAction(authed, ez.Action[userQuery, *domain.UserProfile]{
		Method: http.MethodGet,
		Path:   "/users/me",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *userQuery) (*domain.UserProfile, error) {
			id := strings.TrimSpace(in.UserID)
			if id == "" {
				id = ez.Who(c).ID()
			}
			return h.verify.GetUser(c.Request.Context(), id)
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, *domain.AdminProfile]{
		Method: http.MethodGet,
		Path:   "/admins/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.AdminProfile, error) {
			return h.verify.GetAdmin(c.Request.Context(), c.Param("id"))
		},
	})

	ez.RegisterAction(authed, ez.Action[service.CreateQueryInput, *domain.QueryView]{
		Method: http.MethodPost,
		Path:   "/queries",
		Binder: ez.BindJSON,
		Auth:   true,
		Kinds:  []domain.IdentityKind{domain.KindUser},
		Handler: func(c *gin.Context, in *service.CreateQueryInput) (*domain.QueryView, error) {
			return h.threads.CreateQuery(c.Request.Context(), ez.Who(c).ID(), *in)
		},
	})

	// 投票是开关：再次调用即撤销
	ez.RegisterAction(authed, ez.Action[struct{}, *domain.QueryView]{
		Method: http.MethodPatch,
		Path:   "/queries/:id/vote",
		Binder: ez.BindNone,
		Auth:   true,
		Kinds:  []domain.IdentityKind{domain.KindUser},
		Handler: func(c *gin.Context, _ *struct{}) (*domain.QueryView, error) {
			return h.threads.Vote(c.Request.Context(), ez.Who(c).ID(), c.Param("id"))
		},
	})

	mountThreads(authed, h.threads, h.dir)
}
