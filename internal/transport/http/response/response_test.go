package response

import (
	"errors"
	"testing"

	"campus-notice/internal/domain"
)

func TestFromErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind domain.Kind
	}{
		{domain.Validation("title is required"), CodeBadRequest, domain.KindValidation},
		{domain.Mismatch("passwords differ"), CodeBadRequest, domain.KindMismatch},
		{domain.InvalidCredentials("bad"), CodeUnauthorized, domain.KindInvalidCredentials},
		{domain.EmailUnverified("verify"), CodeUnauthorized, domain.KindEmailUnverified},
		{domain.NotApproved("wait"), CodeUnauthorized, domain.KindNotApproved},
		{domain.InvalidToken(errors.New("expired")), CodeBadRequest, domain.KindInvalidToken},
		{domain.Forbidden("no"), CodeForbidden, domain.KindForbidden},
		{domain.NotFound("gone"), CodeNotFound, domain.KindNotFound},
		{domain.Conflict("taken", nil), CodeConflict, domain.KindConflict},
		{domain.Unavailable("load", errors.New("db down")), CodeUnavailable, domain.KindUnavailable},
		{errors.New("boom"), CodeServerError, domain.KindInternal},
	}
	for _, tc := range cases {
		r := FromError(tc.err)
		if r.Code != tc.code || r.Kind != tc.kind {
			t.Fatalf("%v: got code=%d kind=%s, want %d %s", tc.err, r.Code, r.Kind, tc.code, tc.kind)
		}
	}
}

func TestFromErrorHidesInternalAndKeepsDetail(t *testing.T) {
	r := FromError(domain.Internal("hash password", errors.New("secret detail")))
	if r.Msg != CodeMsgMap[CodeServerError] {
		t.Fatalf("internal message leaked: %q", r.Msg)
	}
	ref := domain.ApproverRef{AdminName: "Warden", RollNumber: "A1"}
	r = FromError(domain.Conflict("already verified", ref))
	if r.Data != ref || r.Msg != "already verified" {
		t.Fatalf("conflict detail should be the data: %+v", r)
	}
}
