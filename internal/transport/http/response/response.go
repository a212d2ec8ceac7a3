package response

import (
	"errors"

	"campus-notice/internal/domain"
)

type Resp struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Kind domain.Kind `json:"kind,omitempty"`
	Data interface{} `json:"data"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

// OK 成功响应
func OK(data interface{}) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, struct{}{})
}

// Fail is Error tagged with an error kind.
func Fail(code int, kind domain.Kind, customMsg string) Resp {
	r := Error(code, customMsg)
	r.Kind = kind
	return r
}

// FromError converts a service error into the envelope.
// Internal failures never leak their message; Detail (e.g. the approving admin) goes into data.
func FromError(err error) Resp {
	var de *domain.Error
	if !errors.As(err, &de) {
		return Fail(CodeServerError, domain.KindInternal, "")
	}
	code := CodeOf(de.Kind)
	msg := de.Msg
	if code == CodeServerError {
		msg = ""
	}
	r := Fail(code, de.Kind, msg)
	if de.Detail != nil {
		r.Data = de.Detail
	}
	return r
}
