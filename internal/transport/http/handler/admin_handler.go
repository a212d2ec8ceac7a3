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

// AdminHandler mounts the /admin/v1 routes.
type AdminHandler struct {
	verify   *service.Verification
	threads  *service.Threads
	dir      *service.Directory
	attempts mdw.KeyLimiter
}

func NewAdminHandler(v *service.Verification, t *service.Threads, d *service.Directory, attempts mdw.KeyLimiter) *AdminHandler {
	return &AdminHandler{verify: v, threads: t, dir: d, attempts: attempts}
}

func (h *AdminHandler) Priority() int { return 10 }

type adminLoginOut struct {
	AuthToken string             `json:"authToken"`
	Admin     domain.AdminPublic `json:"admin"`
}

type adminQuery struct {
	AdminID string `form:"adminId"`
}

type approveIn struct {
	RollNumber string `json:"rollNumber"`
}

type rejectIn struct {
	RollNumber string `json:"rollNumber"`
	Feedback   string `json:"feedback"`
}

type resolutionIn struct {
	Response string `json:"response"`
}

type resolutionOut struct {
	Resolved bool              `json:"resolved"`
	Query    *domain.QueryView `json:"query"`
}

func requireRoll(roll string) error {
	if strings.TrimSpace(roll) == "" {
		return domain.Validation("rollNumber is required")
	}
	return nil
}

func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) {
	pub := ez.New(g)
	throttle := []gin.HandlerFunc{mdw.LimitBy(h.attempts, "admin-auth")}

	ez.RegisterAction(pub, ez.Action[service.RegisterAdminInput, message]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: ez.BindJSON,
		Mw:     throttle,
		Handler: func(c *gin.Context, in *service.RegisterAdminInput) (message, error) {
			if _, err := h.verify.RegisterAdmin(c.Request.Context(), *in); err != nil {
				return message{}, err
			}
			return message{Message: "Admin registered successfully. Please check your email for confirmation."}, nil
		},
	})

	ez.RegisterAction(pub, ez.Action[struct{}, message]{
		Method: http.MethodGet,
		Path:   "/validate/:token",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (message, error) {
			if _, err := h.verify.ConfirmAdminEmail(c.Request.Context(), c.Param("token")); err != nil {
				return message{}, err
			}
			return message{Message: "Admin Email verified successfully"}, nil
		},
	})

	ez.RegisterAction(pub, ez.Action[loginIn, adminLoginOut]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Mw:     throttle,
		Handler: func(c *gin.Context, in *loginIn) (adminLoginOut, error) {
			if err := in.check(); err != nil {
				return adminLoginOut{}, err
			}
			tok, a, err := h.verify.LoginAdmin(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return adminLoginOut{}, err
			}
			return adminLoginOut{AuthToken: tok, Admin: a.Public()}, nil
		},
	})

	authed := pub.Group("", mdw.Auth(h.verify, domain.KindAdmin))

	ez.RegisterAction(authed, ez.Action[adminQuery, *domain.AdminProfile]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *adminQuery) (*domain.AdminProfile, error) {
			id := strings.TrimSpace(in.AdminID)
			if id == "" {
				id = ez.Who(c).ID()
			}
			return h.verify.GetAdmin(c.Request.Context(), id)
		},
	})

	ez.RegisterAction(authed, ez.Action[pageQuery, []domain.UserProfile]{
		Method: http.MethodGet,
		Path:   "/users/verified",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *pageQuery) ([]domain.UserProfile, error) {
			return h.verify.ListVerifiedUsers(c.Request.Context(), in.Limit, in.Skip)
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, []domain.UserProfile]{
		Method: http.MethodGet,
		Path:   "/users/pending",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.UserProfile, error) {
			return h.verify.ListPendingUsers(c.Request.Context())
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, *domain.UserProfile]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.UserProfile, error) {
			return h.verify.GetUser(c.Request.Context(), c.Param("id"))
		},
	})

	ez.RegisterAction(authed, ez.Action[approveIn, message]{
		Method: http.MethodPost,
		Path:   "/users/approve",
		Binder: ez.BindJSON,
		Auth:   true,
		Kinds:  []domain.IdentityKind{domain.KindAdmin},
		Handler: func(c *gin.Context, in *approveIn) (message, error) {
			if err := requireRoll(in.RollNumber); err != nil {
				return message{}, err
			}
			if _, err := h.verify.Approve(c.Request.Context(), ez.Who(c).Admin, in.RollNumber); err != nil {
				return message{}, err
			}
			return message{Message: "User has been approved by the admin"}, nil
		},
	})

	ez.RegisterAction(authed, ez.Action[rejectIn, message]{
		Method: http.MethodPost,
		Path:   "/users/reject",
		Binder: ez.BindJSON,
		Auth:   true,
		Kinds:  []domain.IdentityKind{domain.KindAdmin},
		Handler: func(c *gin.Context, in *rejectIn) (message, error) {
			if err := requireRoll(in.RollNumber); err != nil {
				return message{}, err
			}
			if err := h.verify.Reject(c.Request.Context(), ez.Who(c).Admin, in.RollNumber, in.Feedback); err != nil {
				return message{}, err
			}
			return message{Message: "Feedback sent to the user"}, nil
		},
	})

	// 开关语义：未解决时写入回复并标记已解决；已解决时删除回复。
	// 非空 response 只在解决分支使用，撤销分支会忽略它。
	ez.RegisterAction(authed, ez.Action[resolutionIn, resolutionOut]{
		Method: http.MethodPatch,
		Path:   "/queries/:id/resolution",
		Binder: ez.BindJSON,
		Auth:   true,
		Kinds:  []domain.IdentityKind{domain.KindAdmin},
		Handler: func(c *gin.Context, in *resolutionIn) (resolutionOut, error) {
			v, resolved, err := h.threads.SetResolution(c.Request.Context(), ez.Who(c).ID(), c.Param("id"), in.Response)
			if err != nil {
				return resolutionOut{}, err
			}
			return resolutionOut{Resolved: resolved, Query: v}, nil
		},
	})

	mountThreads(authed, h.threads, h.dir)
}
