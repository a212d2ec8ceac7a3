package repo

import (
	"context"

	"gorm.io/gorm"

	"campus-notice/internal/domain"
	"campus-notice/internal/feature/identity"
	"campus-notice/internal/feature/thread"
	"campus-notice/pkg/utils"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	m := identity.UserFromDomain(u)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDupKey(err) {
			return domain.Conflict("email or roll number already registered", nil)
		}
		return wrap("create user", err)
	}
	u.CreatedAt, u.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *UserRepo) findBy(ctx context.Context, col, val string) (*domain.User, error) {
	var m identity.UserModel
	err := r.db.WithContext(ctx).Where(col+" = ?", val).First(&m).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find user", err)
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findBy(ctx, "id", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findBy(ctx, "email", email)
}

func (r *UserRepo) FindByRollNumber(ctx context.Context, roll string) (*domain.User, error) {
	return r.findBy(ctx, "roll_number", roll)
}

func (r *UserRepo) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var ms []identity.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, wrap("find users", err)
	}
	for i := range ms {
		out[ms[i].ID] = ms[i].ToDomain()
	}
	return out, nil
}

func (r *UserRepo) MarkEmailVerified(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&identity.UserModel{}).
		Where("id = ?", id).Update("email_verified", true).Error
	return wrap("verify user email", err)
}

func (r *UserRepo) Approve(ctx context.Context, userID, adminID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&identity.UserModel{}).
		Where("id = ? AND verified = ?", userID, false).
		Updates(map[string]any{"verified": true, "verified_by": adminID, "reason": ""})
	if res.Error != nil {
		return false, wrap("approve user", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *UserRepo) DeleteUnverified(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND verified = ?", id, false).Delete(&identity.UserModel{})
	if res.Error != nil {
		return false, wrap("delete user", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *UserRepo) ListVerified(ctx context.Context, offset, limit int) ([]domain.User, error) {
	var ms []identity.UserModel
	err := r.db.WithContext(ctx).Where("verified = ?", true).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&ms).Error
	if err != nil {
		return nil, wrap("list verified users", err)
	}
	return usersToDomain(ms), nil
}

func (r *UserRepo) ListPending(ctx context.Context) ([]domain.User, error) {
	var ms []identity.UserModel
	err := r.db.WithContext(ctx).Where("email_verified = ? AND verified = ?", true, false).
		Order("created_at ASC").Find(&ms).Error
	if err != nil {
		return nil, wrap("list pending users", err)
	}
	return usersToDomain(ms), nil
}

func (r *UserRepo) Search(ctx context.Context, term, excludeID string, limit int) ([]domain.User, error) {
	like := likePattern(term)
	q := r.db.WithContext(ctx).Model(&identity.UserModel{}).
		Where(`LOWER(username) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!' OR LOWER(roll_number) LIKE ? ESCAPE '!'`, like, like, like)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var ms []identity.UserModel
	if err := q.Order("username ASC").Limit(limit).Find(&ms).Error; err != nil {
		return nil, wrap("search users", err)
	}
	return usersToDomain(ms), nil
}

func (r *UserRepo) QueryIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&thread.QueryModel{}).
		Where("author_user_id = ?", userID).Order("query_number ASC").Pluck("id", &ids).Error
	if err != nil {
		return nil, wrap("list user queries", err)
	}
	return ids, nil
}

func usersToDomain(ms []identity.UserModel) []domain.User {
	out := make([]domain.User, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out
}

type AdminRepo struct{ db *gorm.DB }

func NewAdminRepo(db *gorm.DB) *AdminRepo { return &AdminRepo{db: db} }

var _ domain.AdminRepository = (*AdminRepo)(nil)

func (r *AdminRepo) Create(ctx context.Context, a *domain.Admin) error {
	if a.ID == "" {
		a.ID = utils.NewID()
	}
	m := identity.AdminFromDomain(a)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDupKey(err) {
			return domain.Conflict("email or roll number already registered", nil)
		}
		return wrap("create admin", err)
	}
	a.CreatedAt, a.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *AdminRepo) findBy(ctx context.Context, col, val string) (*domain.Admin, error) {
	var m identity.AdminModel
	err := r.db.WithContext(ctx).Where(col+" = ?", val).First(&m).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find admin", err)
	}
	return m.ToDomain(), nil
}

func (r *AdminRepo) FindByID(ctx context.Context, id string) (*domain.Admin, error) {
	return r.findBy(ctx, "id", id)
}

func (r *AdminRepo) FindByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	return r.findBy(ctx, "email", email)
}

func (r *AdminRepo) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Admin, error) {
	out := make(map[string]*domain.Admin, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var ms []identity.AdminModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, wrap("find admins", err)
	}
	for i := range ms {
		out[ms[i].ID] = ms[i].ToDomain()
	}
	return out, nil
}

func (r *AdminRepo) MarkVerified(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&identity.AdminModel{}).
		Where("id = ?", id).Update("verified", true).Error
	return wrap("verify admin email", err)
}

func (r *AdminRepo) Search(ctx context.Context, term, excludeID string, limit int) ([]domain.Admin, error) {
	like := likePattern(term)
	q := r.db.WithContext(ctx).Model(&identity.AdminModel{}).
		Where(`LOWER(admin_name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!' OR LOWER(roll_number) LIKE ? ESCAPE '!'`, like, like, like)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var ms []identity.AdminModel
	if err := q.Order("admin_name ASC").Limit(limit).Find(&ms).Error; err != nil {
		return nil, wrap("search admins", err)
	}
	out := make([]domain.Admin, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out, nil
}

func (r *AdminRepo) ResponseIDs(ctx context.Context, adminID string) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&thread.ResponseModel{}).
		Where("admin_id = ?", adminID).Order("created_at ASC").Pluck("id", &ids).Error
	if err != nil {
		return nil, wrap("list admin responses", err)
	}
	return ids, nil
}
