package identity

import (
	"time"

	"campus-notice/internal/domain"
)

type UserModel struct {
	ID            string  `gorm:"primaryKey;size:36"`
	RollNumber    string  `gorm:"uniqueIndex;size:64;not null"`
	Email         string  `gorm:"uniqueIndex;size:191;not null"`
	PhoneNumber   string  `gorm:"size:13"`
	Username      string  `gorm:"size:64;not null"`
	PasswordHash  string  `gorm:"size:100;not null"`
	Reason        string  `gorm:"size:1024"`
	EmailVerified bool    `gorm:"not null;default:false;index:idx_users_gate,priority:1"`
	Verified      bool    `gorm:"not null;default:false;index:idx_users_gate,priority:2"`
	VerifiedBy    *string `gorm:"size:36"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToDomain() *domain.User {
	u := &domain.User{
		ID:            m.ID,
		RollNumber:    m.RollNumber,
		Email:         m.Email,
		PhoneNumber:   m.PhoneNumber,
		Username:      m.Username,
		PasswordHash:  m.PasswordHash,
		Reason:        m.Reason,
		EmailVerified: m.EmailVerified,
		Verified:      m.Verified,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.VerifiedBy != nil {
		u.VerifiedBy = *m.VerifiedBy
	}
	return u
}

func UserFromDomain(u *domain.User) *UserModel {
	m := &UserModel{
		ID:            u.ID,
		RollNumber:    u.RollNumber,
		Email:         u.Email,
		PhoneNumber:   u.PhoneNumber,
		Username:      u.Username,
		PasswordHash:  u.PasswordHash,
		Reason:        u.Reason,
		EmailVerified: u.EmailVerified,
		Verified:      u.Verified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if u.VerifiedBy != "" {
		v := u.VerifiedBy
		m.VerifiedBy = &v
	}
	return m
}

type AdminModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	RollNumber   string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:191;not null"`
	PhoneNumber  string `gorm:"size:13;not null"`
	AdminName    string `gorm:"size:64;not null"`
	PasswordHash string `gorm:"size:100;not null"`
	Verified     bool   `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (AdminModel) TableName() string { return "admins" }

func (m *AdminModel) ToDomain() *domain.Admin {
	return &domain.Admin{
		ID:           m.ID,
		RollNumber:   m.RollNumber,
		Email:        m.Email,
		PhoneNumber:  m.PhoneNumber,
		AdminName:    m.AdminName,
		PasswordHash: m.PasswordHash,
		Verified:     m.Verified,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func AdminFromDomain(a *domain.Admin) *AdminModel {
	return &AdminModel{
		ID:           a.ID,
		RollNumber:   a.RollNumber,
		Email:        a.Email,
		PhoneNumber:  a.PhoneNumber,
		AdminName:    a.AdminName,
		PasswordHash: a.PasswordHash,
		Verified:     a.Verified,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
