// Package models contains domain entities and business models for the account system
package models

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/plastiqc/accounts/utils"
	"gorm.io/gorm"
)

// Company role values
const (
	RoleAdmin               = "admin"
	RoleManager             = "manager"
	RoleSupervisor          = "supervisor"
	RoleOperator            = "operator"
	RoleQCTechnician        = "qc_technician"
	RoleSalesRepresentative = "sales_representative"
	RoleEngineer            = "engineer"
	RoleOther               = "other"
)

// Production section values
const (
	SectionExtrusion      = "extrusion"
	SectionPrinting       = "printing"
	SectionLamination     = "lamination"
	SectionSlitting       = "slitting"
	SectionBagMaking      = "bag_making"
	SectionQualityControl = "quality_control"
	SectionMaintenance    = "maintenance"
	SectionSales          = "sales"
	SectionOther          = "other"
)

// Company branch values
const (
	BranchKawempe = "kawempe"
)

var ValidRoles = map[string]bool{
	RoleAdmin:               true,
	RoleManager:             true,
	RoleSupervisor:          true,
	RoleOperator:            true,
	RoleQCTechnician:        true,
	RoleSalesRepresentative: true,
	RoleEngineer:            true,
	RoleOther:               true,
}

var ValidSections = map[string]bool{
	SectionExtrusion:      true,
	SectionPrinting:       true,
	SectionLamination:     true,
	SectionSlitting:       true,
	SectionBagMaking:      true,
	SectionQualityControl: true,
	SectionMaintenance:    true,
	SectionSales:          true,
	SectionOther:          true,
}

var ValidBranches = map[string]bool{
	BranchKawempe: true,
}

// PhoneNumberPattern accepts an optional leading + and country digit
// followed by 9 to 15 digits.
var PhoneNumberPattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// Profile field keys accepted in staged profile data. Username and
// password are never stageable.
const (
	ProfileFieldFirstName   = "first_name"
	ProfileFieldLastName    = "last_name"
	ProfileFieldEmail       = "email"
	ProfileFieldPhoneNumber = "phone_number"
	ProfileFieldCompanyRole = "company_role"
	ProfileFieldSection     = "section"
)

var StageableProfileFields = map[string]bool{
	ProfileFieldFirstName:   true,
	ProfileFieldLastName:    true,
	ProfileFieldEmail:       true,
	ProfileFieldPhoneNumber: true,
	ProfileFieldCompanyRole: true,
	ProfileFieldSection:     true,
}

type Account struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_accounts_uuid" json:"uuid"`

	// Identity
	Username    string  `gorm:"size:150;not null;uniqueIndex:uk_accounts_username" json:"username"`
	FirstName   string  `gorm:"size:150;not null" json:"first_name"`
	LastName    string  `gorm:"size:150;not null" json:"last_name"`
	Email       string  `gorm:"size:255;not null;uniqueIndex:uk_accounts_email" json:"email"`
	PhoneNumber *string `gorm:"size:17" json:"phone_number,omitempty"`

	// Organizational placement
	CompanyBranch string `gorm:"size:20;not null;default:'kawempe'" json:"company_branch"`
	CompanyRole   string `gorm:"size:30;not null;index:idx_accounts_company_role" json:"company_role"`
	Section       string `gorm:"size:30;not null;index:idx_accounts_section" json:"section"`

	// Security
	PasswordHash       string     `gorm:"size:255;not null" json:"-"` // Never serialize password hash
	LastPasswordChange *time.Time `json:"last_password_change,omitempty"`

	// Status flags
	IsActive    *bool `gorm:"default:true;index:idx_accounts_is_active" json:"is_active"`
	IsApproved  *bool `gorm:"default:false;index:idx_accounts_is_approved" json:"is_approved"`
	IsStaff     *bool `gorm:"default:false" json:"is_staff"`
	IsSuperuser *bool `gorm:"default:false" json:"is_superuser"`

	// Approval metadata
	ApprovedByID *uint      `gorm:"index:idx_accounts_approved_by_id" json:"approved_by_id,omitempty"`
	ApprovedBy   *Account   `gorm:"foreignKey:ApprovedByID;references:ID" json:"approved_by,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`

	// Staged profile changes awaiting admin review
	ProfileUpdatePending *bool           `gorm:"default:false;index:idx_accounts_profile_update_pending" json:"profile_update_pending"`
	PendingProfileData   json.RawMessage `gorm:"type:jsonb" json:"pending_profile_data,omitempty"`
	PendingProfileFields pq.StringArray  `gorm:"type:text[]" json:"pending_profile_fields,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_accounts_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_accounts_last_login_at" json:"last_login_at,omitempty"`

	// Relations
	Sessions      []AccountSession       `gorm:"foreignKey:AccountID" json:"-"`
	AuditLogs     []AuditLog             `gorm:"foreignKey:AccountID" json:"-"`
	ResetRequests []PasswordResetRequest `gorm:"foreignKey:AccountID" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// BeforeSave keeps privileged accounts coherent: staff, superuser, and
// admin-role accounts are always approved and always staff.
func (a *Account) BeforeSave(tx *gorm.DB) error {
	if utils.IsTrue(a.IsStaff) || utils.IsTrue(a.IsSuperuser) || a.CompanyRole == RoleAdmin {
		a.IsApproved = utils.ToPtr(true)
		a.IsStaff = utils.ToPtr(true)
	}
	return nil
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID                   *uint
	UUID                 *uuid.UUID
	Username             *string
	Email                *string
	CompanyBranch        *string
	CompanyRole          *string
	Section              *string
	IsActive             *bool
	IsApproved           *bool
	IsStaff              *bool
	ProfileUpdatePending *bool
	CreatedAfter         *time.Time
	CreatedBefore        *time.Time
}

// IsAdministrator reports whether the account holds administrative
// privilege through its role or either privilege flag.
func (a *Account) IsAdministrator() bool {
	return a.CompanyRole == RoleAdmin || utils.IsTrue(a.IsSuperuser) || utils.IsTrue(a.IsStaff)
}

// IsPendingApproval reports whether the account is awaiting its initial
// admin approval.
func (a *Account) IsPendingApproval() bool {
	return utils.IsTrue(a.IsActive) && !utils.IsTrue(a.IsApproved)
}

func (a *Account) FullName() string {
	if a.FirstName == "" && a.LastName == "" {
		return a.Username
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// PendingChanges decodes the staged profile data. Returns an empty map
// when nothing is staged.
func (a *Account) PendingChanges() (map[string]string, error) {
	changes := make(map[string]string)
	if len(a.PendingProfileData) == 0 {
		return changes, nil
	}
	if err := json.Unmarshal(a.PendingProfileData, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}
