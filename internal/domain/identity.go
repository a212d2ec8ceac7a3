package domain

import "time"

// IdentityKind tags which account table an identity lives in.
type IdentityKind string

const (
	KindUser  IdentityKind = "user"
	KindAdmin IdentityKind = "admin"
)

func (k IdentityKind) Valid() bool { return k == KindUser || k == KindAdmin }

type User struct {
	ID            string
	RollNumber    string
	Email         string
	PhoneNumber   string
	Username      string
	PasswordHash  string
	Reason        string
	EmailVerified bool
	Verified      bool
	VerifiedBy    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Usable reports whether both verification gates have been passed.
func (u *User) Usable() bool { return u.EmailVerified && u.Verified }

type Admin struct {
	ID           string
	RollNumber   string
	Email        string
	PhoneNumber  string
	AdminName    string
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the resolved caller of a request: exactly one of User or Admin is set.
type Identity struct {
	Kind  IdentityKind
	User  *User
	Admin *Admin
}

func (i Identity) ID() string {
	switch i.Kind {
	case KindUser:
		if i.User != nil {
			return i.User.ID
		}
	case KindAdmin:
		if i.Admin != nil {
			return i.Admin.ID
		}
	}
	return ""
}

func (i Identity) Email() string {
	switch {
	case i.Kind == KindUser && i.User != nil:
		return i.User.Email
	case i.Kind == KindAdmin && i.Admin != nil:
		return i.Admin.Email
	}
	return ""
}

// Author converts the identity into a comment author tag.
func (i Identity) Author() Author { return Author{Kind: i.Kind, ID: i.ID()} }

func UserIdentity(u *User) Identity   { return Identity{Kind: KindUser, User: u} }
func AdminIdentity(a *Admin) Identity { return Identity{Kind: KindAdmin, Admin: a} }

// UserPublic is the projection of a User that other identities may see.
type UserPublic struct {
	ID         string    `json:"id"`
	RollNumber string    `json:"rollNumber"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (u *User) Public() UserPublic {
	return UserPublic{ID: u.ID, RollNumber: u.RollNumber, Email: u.Email, Username: u.Username, CreatedAt: u.CreatedAt}
}

// AdminPublic is the projection of an Admin that other identities may see.
type AdminPublic struct {
	ID          string `json:"id"`
	RollNumber  string `json:"rollNumber"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	AdminName   string `json:"adminName"`
}

func (a *Admin) Public() AdminPublic {
	return AdminPublic{ID: a.ID, RollNumber: a.RollNumber, Email: a.Email, PhoneNumber: a.PhoneNumber, AdminName: a.AdminName}
}

// ApproverRef names the admin that already approved a user.
type ApproverRef struct {
	AdminName  string `json:"adminName"`
	RollNumber string `json:"rollNumber"`
}
