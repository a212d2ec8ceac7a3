package response

import "campus-notice/internal/domain"

// 常见业务 系统级错误码（直接基于 HTTP 语义）
const (
	CodeOK           = 0
	CodeBadRequest   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeTooMany      = 429
	CodeServerError  = 500
	CodeUnavailable  = 503
	CodeTimeout      = 504
)

// CodeMsgMap 用于集中管理 code - msg
var CodeMsgMap = map[int]string{
	CodeOK:           "OK",
	CodeBadRequest:   "Bad Request",
	CodeUnauthorized: "Unauthorized",
	CodeForbidden:    "Forbidden",
	CodeNotFound:     "Not Found",
	CodeConflict:     "Conflict",
	CodeTooMany:      "Too Many Requests",
	CodeServerError:  "Internal Server Error",
	CodeUnavailable:  "Service Unavailable",
	CodeTimeout:      "Gateway Timeout",
}

var kindCodes = map[domain.Kind]int{
	domain.KindValidation:         CodeBadRequest,
	domain.KindMismatch:           CodeBadRequest,
	domain.KindInvalidToken:       CodeBadRequest,
	domain.KindInvalidCredentials: CodeUnauthorized,
	domain.KindEmailUnverified:    CodeUnauthorized,
	domain.KindNotApproved:        CodeUnauthorized,
	domain.KindForbidden:          CodeForbidden,
	domain.KindNotFound:           CodeNotFound,
	domain.KindConflict:           CodeConflict,
	domain.KindUnavailable:        CodeUnavailable,
}

// CodeOf maps an error kind to the envelope code.
func CodeOf(k domain.Kind) int {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return CodeServerError
}
