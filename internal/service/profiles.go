package service

import (
	"context"
	"time"

	"campus-notice/internal/core/cache"
	"campus-notice/internal/domain"
)

const adminProfileTTL = 10 * time.Minute

// Profiles resolves public projections for populated views.
// Admin projections go through the read-through cache (nil cache means straight to the DB).
type Profiles struct {
	users  domain.UserRepository
	admins domain.AdminRepository
	cache  *cache.Cache
}

func NewProfiles(users domain.UserRepository, admins domain.AdminRepository, c *cache.Cache) *Profiles {
	return &Profiles{users: users, admins: admins, cache: c}
}

func (p *Profiles) Admin(ctx context.Context, id string) (*domain.AdminPublic, error) {
	if id == "" {
		return nil, nil
	}
	return cache.GetOrLoadJSON(p.cache, ctx, "admin:public:"+id, adminProfileTTL,
		func(ctx context.Context) (*domain.AdminPublic, error) {
			a, err := p.admins.FindByID(ctx, id)
			if err != nil || a == nil {
				return nil, err
			}
			pub := a.Public()
			return &pub, nil
		})
}

func (p *Profiles) Admins(ctx context.Context, ids []string) (map[string]*domain.AdminPublic, error) {
	ids = uniq(ids)
	out := make(map[string]*domain.AdminPublic, len(ids))
	if p.cache == nil {
		found, err := p.admins.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for id, a := range found {
			pub := a.Public()
			out[id] = &pub
		}
		return out, nil
	}
	for _, id := range ids {
		a, err := p.Admin(ctx, id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out[id] = a
		}
	}
	return out, nil
}

func (p *Profiles) Users(ctx context.Context, ids []string) (map[string]*domain.UserPublic, error) {
	found, err := p.users.FindByIDs(ctx, uniq(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.UserPublic, len(found))
	for id, u := range found {
		pub := u.Public()
		out[id] = &pub
	}
	return out, nil
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
