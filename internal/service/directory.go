package service

import (
	"context"

	"campus-notice/internal/domain"
)

const searchLimit = 50

type Directory struct {
	users  domain.UserRepository
	admins domain.AdminRepository
}

func NewDirectory(users domain.UserRepository, admins domain.AdminRepository) *Directory {
	return &Directory{users: users, admins: admins}
}

// Search matches name, email or roll number case-insensitively; the caller is left out.
func (d *Directory) Search(ctx context.Context, who domain.Identity, term string) (*domain.SearchResult, error) {
	var excludeUser, excludeAdmin string
	switch who.Kind {
	case domain.KindUser:
		excludeUser = who.ID()
	case domain.KindAdmin:
		excludeAdmin = who.ID()
	}
	us, err := d.users.Search(ctx, term, excludeUser, searchLimit)
	if err != nil {
		return nil, err
	}
	as, err := d.admins.Search(ctx, term, excludeAdmin, searchLimit)
	if err != nil {
		return nil, err
	}
	out := &domain.SearchResult{
		Users:  make([]domain.UserPublic, 0, len(us)),
		Admins: make([]domain.AdminPublic, 0, len(as)),
	}
	for i := range us {
		out.Users = append(out.Users, us[i].Public())
	}
	for i := range as {
		out.Admins = append(out.Admins, as[i].Public())
	}
	return out, nil
}
