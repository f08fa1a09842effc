package types

import (
	"time"

	"github.com/google/uuid"
)

// Link rows connect users to canonical catalog entries. All carry the same
// bitemporal window as the catalog itself.

type UserSkill struct {
	UserID          uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	SkillInterestID uuid.UUID `gorm:"type:uuid;primaryKey;column:skill_interest_id" json:"skill_interest_id"`
	AssignedAt      time.Time `gorm:"not null;column:assigned_at" json:"assigned_at"`
	ValidFrom       time.Time `gorm:"not null;column:valid_from" json:"valid_from"`
	ValidTo         time.Time `gorm:"not null;column:valid_to" json:"valid_to"`
}

func (UserSkill) TableName() string {
	return "user_skills"
}

type UserInterest struct {
	UserID          uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	SkillInterestID uuid.UUID `gorm:"type:uuid;primaryKey;column:skill_interest_id" json:"skill_interest_id"`
	AssignedAt      time.Time `gorm:"not null;column:assigned_at" json:"assigned_at"`
	ValidFrom       time.Time `gorm:"not null;column:valid_from" json:"valid_from"`
	ValidTo         time.Time `gorm:"not null;column:valid_to" json:"valid_to"`
}

func (UserInterest) TableName() string {
	return "user_interests"
}

type UserCompany struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	CompanyID  uuid.UUID `gorm:"type:uuid;primaryKey;column:company_id" json:"company_id"`
	IsCurrent  bool      `gorm:"not null;default:true;column:is_current" json:"is_current"`
	AssignedAt time.Time `gorm:"not null;column:assigned_at" json:"assigned_at"`
	ValidFrom  time.Time `gorm:"not null;column:valid_from" json:"valid_from"`
	ValidTo    time.Time `gorm:"not null;column:valid_to" json:"valid_to"`
}

func (UserCompany) TableName() string {
	return "user_companies"
}

type UserJobRole struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	JobRoleID  uuid.UUID `gorm:"type:uuid;primaryKey;column:job_role_id" json:"job_role_id"`
	AssignedAt time.Time `gorm:"not null;column:assigned_at" json:"assigned_at"`
	ValidFrom  time.Time `gorm:"not null;column:valid_from" json:"valid_from"`
	ValidTo    time.Time `gorm:"not null;column:valid_to" json:"valid_to"`
}

func (UserJobRole) TableName() string {
	return "user_job_roles"
}
