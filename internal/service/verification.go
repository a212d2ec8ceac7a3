package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"campus-notice/internal/core/auth"
	"campus-notice/internal/domain"
	"campus-notice/internal/notify"
	"campus-notice/pkg/utils"
)

// Tokens issues and parses signed bearer tokens.
type Tokens interface {
	Issue(email, kind, purpose string, ttl time.Duration) (string, error)
	Parse(token string) (*auth.Claims, error)
	ParseFor(token, kind, purpose string) (*auth.Claims, error)
}

type Policy struct {
	AdminRollNumbers []string // 允许注册管理员的学号白名单
	AdminEmails      []string // 新注册待审批时通知的邮箱
	UserVerifyTTL    time.Duration
	AdminVerifyTTL   time.Duration
	SessionTTL       time.Duration
}

type RegisterUserInput struct {
	RollNumber      string `json:"rollNumber" validate:"required,max=64"`
	Email           string `json:"email" validate:"required,email,max=191"`
	PhoneNumber     string `json:"phoneNumber" validate:"omitempty,max=13"`
	Username        string `json:"username" validate:"required,max=64"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	Reason          string `json:"reason" validate:"omitempty,max=1024"`
}

type RegisterAdminInput struct {
	RollNumber      string `json:"rollNumber" validate:"required,max=64"`
	Email           string `json:"email" validate:"required,email,max=191"`
	PhoneNumber     string `json:"phoneNumber" validate:"required,max=13"`
	AdminName       string `json:"adminName" validate:"required,max=64"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// Verification runs the registration and approval workflow of users and admins.
type Verification struct {
	users    domain.UserRepository
	admins   domain.AdminRepository
	profiles *Profiles
	tokens   Tokens
	notifier notify.Notifier
	mails    *notify.Composer
	policy   Policy
	allow    map[string]struct{}
	log      *zap.Logger
}

func NewVerification(
	users domain.UserRepository,
	admins domain.AdminRepository,
	profiles *Profiles,
	tokens Tokens,
	notifier notify.Notifier,
	mails *notify.Composer,
	policy Policy,
	l *zap.Logger,
) *Verification {
	allow := make(map[string]struct{}, len(policy.AdminRollNumbers))
	for _, r := range policy.AdminRollNumbers {
		allow[strings.TrimSpace(r)] = struct{}{}
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Verification{
		users: users, admins: admins, profiles: profiles, tokens: tokens,
		notifier: notifier, mails: mails, policy: policy, allow: allow, log: l,
	}
}

func checkPasswords(pw, confirm string) error {
	if pw != confirm {
		return domain.Mismatch("password and confirmPassword do not match")
	}
	if problems := utils.PasswordProblems(pw); len(problems) > 0 {
		return domain.Validation("password must contain " + strings.Join(problems, ", "))
	}
	return nil
}

func (s *Verification) RegisterUser(ctx context.Context, in RegisterUserInput) (*domain.User, error) {
	in.RollNumber = strings.TrimSpace(in.RollNumber)
	in.Email = normEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := checkPasswords(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}
	if err := s.ensureFreeUser(ctx, in.Email, in.RollNumber); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, domain.Internal("hash password", err)
	}
	u := &domain.User{
		RollNumber:   in.RollNumber,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		Username:     in.Username,
		PasswordHash: hash,
		Reason:       strings.TrimSpace(in.Reason),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	tok, err := s.tokens.Issue(u.Email, string(domain.KindUser), auth.PurposeVerify, s.policy.UserVerifyTTL)
	if err != nil {
		return nil, domain.Internal("issue verification token", err)
	}
	s.notifier.Notify(ctx, s.mails.UserVerification(u, tok))
	s.log.Info("user registered", zap.String("userId", u.ID), zap.String("rollNumber", u.RollNumber))
	return u, nil
}

func (s *Verification) ensureFreeUser(ctx context.Context, email, roll string) error {
	if u, err := s.users.FindByEmail(ctx, email); err != nil {
		return err
	} else if u != nil {
		return domain.Conflict("email already registered", nil)
	}
	if u, err := s.users.FindByRollNumber(ctx, roll); err != nil {
		return err
	} else if u != nil {
		return domain.Conflict("roll number already registered", nil)
	}
	return nil
}

func (s *Verification) RegisterAdmin(ctx context.Context, in RegisterAdminInput) (*domain.Admin, error) {
	in.RollNumber = strings.TrimSpace(in.RollNumber)
	in.Email = normEmail(in.Email)
	in.AdminName = strings.TrimSpace(in.AdminName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := checkPasswords(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}
	if _, ok := s.allow[in.RollNumber]; !ok {
		return nil, domain.Forbidden("roll number is not allowed to register as admin")
	}
	if a, err := s.admins.FindByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if a != nil {
		return nil, domain.Conflict("email already registered", nil)
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, domain.Internal("hash password", err)
	}
	a := &domain.Admin{
		RollNumber:   in.RollNumber,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		AdminName:    in.AdminName,
		PasswordHash: hash,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	tok, err := s.tokens.Issue(a.Email, string(domain.KindAdmin), auth.PurposeVerify, s.policy.AdminVerifyTTL)
	if err != nil {
		return nil, domain.Internal("issue verification token", err)
	}
	s.notifier.Notify(ctx, s.mails.AdminVerification(a, tok))
	s.log.Info("admin registered", zap.String("adminId", a.ID), zap.String("rollNumber", a.RollNumber))
	return a, nil
}

// ConfirmUserEmail is idempotent; the admin fan-out only happens on the first confirmation.
func (s *Verification) ConfirmUserEmail(ctx context.Context, token string) (*domain.User, error) {
	c, err := s.tokens.ParseFor(token, string(domain.KindUser), auth.PurposeVerify)
	if err != nil {
		return nil, domain.InvalidToken(err)
	}
	u, err := s.users.FindByEmail(ctx, c.Email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	if u.EmailVerified {
		return u, nil
	}
	if err := s.users.MarkEmailVerified(ctx, u.ID); err != nil {
		return nil, err
	}
	u.EmailVerified = true
	for _, m := range s.mails.PendingApproval(u, s.policy.AdminEmails) {
		s.notifier.Notify(ctx, m)
	}
	return u, nil
}

func (s *Verification) ConfirmAdminEmail(ctx context.Context, token string) (*domain.Admin, error) {
	c, err := s.tokens.ParseFor(token, string(domain.KindAdmin), auth.PurposeVerify)
	if err != nil {
		return nil, domain.InvalidToken(err)
	}
	a, err := s.admins.FindByEmail(ctx, c.Email)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.NotFound("admin not found")
	}
	if !a.Verified {
		if err := s.admins.MarkVerified(ctx, a.ID); err != nil {
			return nil, err
		}
		a.Verified = true
	}
	return a, nil
}

// alreadyApproved builds the conflict naming the admin that approved u.
func (s *Verification) alreadyApproved(ctx context.Context, u *domain.User) error {
	ref := domain.ApproverRef{}
	if by, err := s.admins.FindByID(ctx, u.VerifiedBy); err == nil && by != nil {
		ref = domain.ApproverRef{AdminName: by.AdminName, RollNumber: by.RollNumber}
	}
	msg := "user already verified"
	if ref.AdminName != "" {
		msg = "user already verified by " + ref.AdminName + " (" + ref.RollNumber + ")"
	}
	return domain.Conflict(msg, ref)
}

// pendingTarget applies the guards shared by Approve and Reject.
func (s *Verification) pendingTarget(ctx context.Context, actor *domain.Admin, roll string) (*domain.User, error) {
	if actor == nil || !actor.Verified {
		return nil, domain.Forbidden("admin is not verified")
	}
	u, err := s.users.FindByRollNumber(ctx, strings.TrimSpace(roll))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	if u.Verified {
		return nil, s.alreadyApproved(ctx, u)
	}
	return u, nil
}

func (s *Verification) Approve(ctx context.Context, actor *domain.Admin, roll string) (*domain.User, error) {
	u, err := s.pendingTarget(ctx, actor, roll)
	if err != nil {
		return nil, err
	}
	if !u.EmailVerified {
		return nil, domain.Forbidden("user has not verified their email")
	}
	ok, err := s.users.Approve(ctx, u.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 并发审批：另一位管理员先一步
		cur, err := s.users.FindByID(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, domain.NotFound("user not found")
		}
		return nil, s.alreadyApproved(ctx, cur)
	}
	u.Verified, u.VerifiedBy, u.Reason = true, actor.ID, ""
	s.notifier.Notify(ctx, s.mails.AccessApproved(u, actor))
	s.log.Info("user approved", zap.String("userId", u.ID), zap.String("by", actor.ID))
	return u, nil
}

func (s *Verification) Reject(ctx context.Context, actor *domain.Admin, roll, feedback string) error {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return domain.Validation("feedback is required")
	}
	u, err := s.pendingTarget(ctx, actor, roll)
	if err != nil {
		return err
	}
	ok, err := s.users.DeleteUnverified(ctx, u.ID)
	if err != nil {
		return err
	}
	if !ok {
		cur, err := s.users.FindByID(ctx, u.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return domain.NotFound("user not found")
		}
		return s.alreadyApproved(ctx, cur)
	}
	s.notifier.Notify(ctx, s.mails.AccessDenied(u, actor, feedback))
	s.log.Info("user rejected", zap.String("rollNumber", u.RollNumber), zap.String("by", actor.ID))
	return nil
}

func (s *Verification) checkCredentials(hash, password string) bool {
	return hash != "" && utils.CheckPassword(password, hash)
}

func (s *Verification) LoginUser(ctx context.Context, email, password string) (string, *domain.User, error) {
	u, err := s.users.FindByEmail(ctx, normEmail(email))
	if err != nil {
		return "", nil, err
	}
	if u == nil || !s.checkCredentials(u.PasswordHash, password) {
		return "", nil, domain.InvalidCredentials("invalid email or password")
	}
	if !u.EmailVerified {
		return "", nil, domain.EmailUnverified("please verify your email first")
	}
	if !u.Verified {
		return "", nil, domain.NotApproved("your registration is waiting for admin approval")
	}
	tok, err := s.tokens.Issue(u.Email, string(domain.KindUser), auth.PurposeSession, s.policy.SessionTTL)
	if err != nil {
		return "", nil, domain.Internal("issue session token", err)
	}
	return tok, u, nil
}

func (s *Verification) LoginAdmin(ctx context.Context, email, password string) (string, *domain.Admin, error) {
	a, err := s.admins.FindByEmail(ctx, normEmail(email))
	if err != nil {
		return "", nil, err
	}
	if a == nil || !s.checkCredentials(a.PasswordHash, password) {
		return "", nil, domain.InvalidCredentials("invalid email or password")
	}
	if !a.Verified {
		return "", nil, domain.NotApproved("please verify your email first")
	}
	tok, err := s.tokens.Issue(a.Email, string(domain.KindAdmin), auth.PurposeSession, s.policy.SessionTTL)
	if err != nil {
		return "", nil, domain.Internal("issue session token", err)
	}
	return tok, a, nil
}

var errWrongKind = errors.New("token belongs to another account kind")

// Authenticate resolves a session token to a usable identity of the wanted kind.
func (s *Verification) Authenticate(ctx context.Context, token string, want domain.IdentityKind) (domain.Identity, error) {
	c, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Identity{}, domain.InvalidToken(err)
	}
	if c.Purpose != auth.PurposeSession {
		return domain.Identity{}, domain.InvalidToken(auth.ErrWrongToken)
	}
	if c.Kind != string(want) {
		return domain.Identity{}, &domain.Error{Kind: domain.KindForbidden, Msg: "forbidden", Err: errWrongKind}
	}
	switch want {
	case domain.KindUser:
		u, err := s.users.FindByEmail(ctx, c.Email)
		if err != nil {
			return domain.Identity{}, err
		}
		if u == nil {
			return domain.Identity{}, domain.InvalidToken(errors.New("account no longer exists"))
		}
		if !u.EmailVerified {
			return domain.Identity{}, domain.EmailUnverified("please verify your email first")
		}
		if !u.Verified {
			return domain.Identity{}, domain.NotApproved("your registration is waiting for admin approval")
		}
		return domain.UserIdentity(u), nil
	case domain.KindAdmin:
		a, err := s.admins.FindByEmail(ctx, c.Email)
		if err != nil {
			return domain.Identity{}, err
		}
		if a == nil {
			return domain.Identity{}, domain.InvalidToken(errors.New("account no longer exists"))
		}
		if !a.Verified {
			return domain.Identity{}, domain.NotApproved("please verify your email first")
		}
		return domain.AdminIdentity(a), nil
	}
	return domain.Identity{}, domain.Forbidden("forbidden")
}

func (s *Verification) GetUser(ctx context.Context, id string) (*domain.UserProfile, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	ids, err := s.users.QueryIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	p, err := s.userProfile(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	p.Queries = ids
	return p, nil
}

func (s *Verification) userProfile(ctx context.Context, u *domain.User, approvers map[string]*domain.AdminPublic) (*domain.UserProfile, error) {
	p := &domain.UserProfile{
		UserPublic:    u.Public(),
		PhoneNumber:   u.PhoneNumber,
		Reason:        u.Reason,
		EmailVerified: u.EmailVerified,
		Verified:      u.Verified,
		Queries:       []string{},
	}
	if u.VerifiedBy == "" {
		return p, nil
	}
	if approvers != nil {
		p.VerifiedBy = approvers[u.VerifiedBy]
		return p, nil
	}
	by, err := s.profiles.Admin(ctx, u.VerifiedBy)
	if err != nil {
		return nil, err
	}
	p.VerifiedBy = by
	return p, nil
}

func (s *Verification) GetAdmin(ctx context.Context, id string) (*domain.AdminProfile, error) {
	a, err := s.admins.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.NotFound("admin not found")
	}
	ids, err := s.admins.ResponseIDs(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &domain.AdminProfile{AdminPublic: a.Public(), Verified: a.Verified, QueryResponses: ids}, nil
}

func (s *Verification) ListVerifiedUsers(ctx context.Context, limit, skip int) ([]domain.UserProfile, error) {
	limit, skip = page(limit, skip)
	us, err := s.users.ListVerified(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	return s.profilesOf(ctx, us)
}

func (s *Verification) ListPendingUsers(ctx context.Context) ([]domain.UserProfile, error) {
	us, err := s.users.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	return s.profilesOf(ctx, us)
}

func (s *Verification) profilesOf(ctx context.Context, us []domain.User) ([]domain.UserProfile, error) {
	ids := make([]string, 0, len(us))
	for i := range us {
		ids = append(ids, us[i].VerifiedBy)
	}
	approvers, err := s.profiles.Admins(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserProfile, 0, len(us))
	for i := range us {
		p, err := s.userProfile(ctx, &us[i], approvers)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func page(limit, skip int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}
