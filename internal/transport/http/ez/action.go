package ez

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-notice/internal/domain"
	mdw "campus-notice/internal/transport/http/middleware"
	resp "campus-notice/internal/transport/http/response"
)

// EZ 轻封装：在一个分组上注册 Action
type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// Group returns a child EZ with extra middleware (e.g. mdw.Auth).
func (e EZ) Group(path string, h ...gin.HandlerFunc) EZ { return EZ{g: e.g.Group(path, h...)} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PATCH" | "PUT" | "DELETE"
	Path    string
	Binder  Binder
	Auth    bool                  // 是否要求已鉴权身份
	Kinds   []domain.IdentityKind // 限定身份类型（可选）
	Mw      []gin.HandlerFunc     // 仅作用于本路由的中间件（如登录限流）
	Handler func(c *gin.Context, in *I) (O, error)
}

// Who returns the authenticated caller; Actions with Auth=true always have one.
func Who(c *gin.Context) domain.Identity {
	id, _ := mdw.IdentityFrom(c)
	return id
}

func fail(c *gin.Context, err error) {
	r := resp.FromError(err)
	c.Set(mdw.KeyErrKind, string(r.Kind))
	if r.Code >= resp.CodeServerError {
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, r)
}

func allowed(kinds []domain.IdentityKind, k domain.IdentityKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/身份类型
		if a.Auth {
			id, ok := mdw.IdentityFrom(c)
			if !ok {
				fail(c, &domain.Error{Kind: domain.KindInvalidToken, Msg: "unauthorized"})
				return
			}
			if !allowed(a.Kinds, id.Kind) {
				fail(c, domain.Forbidden("forbidden"))
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			// 空 body 视为零值入参，由服务层校验必填项
			if bindErr = c.ShouldBindJSON(&in); errors.Is(bindErr, io.EOF) {
				bindErr = nil
			}
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(bindErr, &tooLarge) {
				fail(c, domain.Validation("request body too large"))
				return
			}
			fail(c, domain.Validation("invalid request: "+bindErr.Error()))
			return
		}

		// 3) 执行 + 统一错误映射
		out, err := a.Handler(c, &in)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	handlers := append(append([]gin.HandlerFunc{}, a.Mw...), h)
	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, handlers...)
	case http.MethodPut:
		e.g.PUT(a.Path, handlers...)
	case http.MethodPatch:
		e.g.PATCH(a.Path, handlers...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, handlers...)
	default: // 默认 POST
		e.g.POST(a.Path, handlers...)
	}
}
