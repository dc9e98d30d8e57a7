package auth

import (
	"crypto/rand"
	"encoding/base32"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the shared identity record for every portal role. Role specific
// data lives in the profile tables, joined on account id.
type Account struct {
	bun.BaseModel `bun:"table:base_accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          Role       `bun:"role,notnull" json:"role,omitempty"`
	FirstName     string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	DateOfBirth   *time.Time `bun:"date_of_birth,nullzero" json:"date_of_birth,omitempty"`

	HouseNo   string `bun:"house_no" json:"house_no,omitempty"`
	Apartment string `bun:"apartment" json:"apartment,omitempty"`
	Colony    string `bun:"colony" json:"colony,omitempty"`
	City      string `bun:"city" json:"city,omitempty"`
	PinCode   string `bun:"pin_code" json:"pin_code,omitempty"`
	State     string `bun:"state" json:"state,omitempty"`

	PrimaryContact  string `bun:"primary_contact,unique,nullzero" json:"primary_contact,omitempty"`
	RecoveryContact string `bun:"recovery_contact,nullzero" json:"recovery_contact,omitempty"`
	PrimaryEmail    string `bun:"primary_email,notnull,unique" json:"primary_email,omitempty"`
	RecoveryEmail   string `bun:"recovery_email,nullzero" json:"recovery_email,omitempty"`
	AadharSSN       string `bun:"aadhar_ssn,unique,nullzero" json:"aadhar_ssn,omitempty"`
	ProfilePic      string `bun:"profile_pic" json:"profile_pic,omitempty"`

	PasswordHash      string     `bun:"password_hash,notnull" json:"-"`
	PasswordChangedAt *time.Time `bun:"password_changed_at,nullzero" json:"password_changed_at,omitempty"`

	// TOTP seed material is provisioned at creation; no endpoint consumes it yet
	TwoFactorEnabled   bool   `bun:"two_factor_enabled" json:"two_factor_enabled,omitempty"`
	TwoFactorSecret    string `bun:"two_factor_secret" json:"-"`
	PreferredTwoFactor string `bun:"preferred_2fa_method" json:"preferred_2fa_method,omitempty"`

	EmailVerified           bool       `bun:"email_verified" json:"email_verified,omitempty"`
	EmailVerificationToken  string     `bun:"email_verification_token" json:"-"`
	EmailVerificationSentAt *time.Time `bun:"email_verification_sent_at,nullzero" json:"-"`

	PhoneVerified         bool   `bun:"phone_verified" json:"phone_verified,omitempty"`
	PhoneVerificationCode string `bun:"phone_verification_code" json:"-"`

	FailedLoginAttempts int        `bun:"failed_login_attempts" json:"failed_login_attempts,omitempty"`
	LastFailedLogin     *time.Time `bun:"last_failed_login,nullzero" json:"last_failed_login,omitempty"`
	AccountLockedUntil  *time.Time `bun:"account_locked_until,nullzero" json:"account_locked_until,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// FullName joins first and last name for display
func (a *Account) FullName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// EnsureTwoFactorSecret seeds the TOTP secret if the account has none
func (a *Account) EnsureTwoFactorSecret() {
	if a.TwoFactorSecret == "" {
		a.TwoFactorSecret = randomBase32Secret()
	}
}

func randomBase32Secret() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
}

// PatientProfile holds the medical payload attached to a patient account
type PatientProfile struct {
	bun.BaseModel `bun:"table:patient_profiles,alias:pat"`
	AccountID     uuid.UUID `bun:"account_id,pk,type:uuid" json:"account_id,omitempty"`
	Account       *Account  `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`

	Allergies         string `bun:"allergies" json:"allergies,omitempty"`
	ChronicConditions string `bun:"chronic_conditions" json:"chronic_conditions,omitempty"`
	Medications       string `bun:"medications" json:"medications,omitempty"`
	PastSurgeries     string `bun:"past_surgeries" json:"past_surgeries,omitempty"`
	MedicalDocs       string `bun:"medical_docs" json:"medical_docs,omitempty"`

	Weight            float64 `bun:"weight" json:"weight,omitempty"`
	Height            float64 `bun:"height" json:"height,omitempty"`
	BloodPressure     string  `bun:"blood_pressure" json:"blood_pressure,omitempty"`
	BloodGlucose      string  `bun:"blood_glucose" json:"blood_glucose,omitempty"`
	AdditionalMetrics string  `bun:"additional_metrics" json:"additional_metrics,omitempty"`
}

// DoctorProfile holds the professional payload attached to a doctor account
type DoctorProfile struct {
	bun.BaseModel `bun:"table:doctor_profiles,alias:doc"`
	AccountID     uuid.UUID `bun:"account_id,pk,type:uuid" json:"account_id,omitempty"`
	Account       *Account  `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`

	MedicalLicense  string `bun:"medical_license,notnull,unique" json:"medical_license,omitempty"`
	Specialty       string `bun:"specialty" json:"specialty,omitempty"`
	YearsExperience int    `bun:"years_experience" json:"years_experience,omitempty"`
	Organization    string `bun:"organization" json:"organization,omitempty"`

	MedicalSchool        string `bun:"medical_school" json:"medical_school,omitempty"`
	Residency            string `bun:"residency" json:"residency,omitempty"`
	ContinuingEducation  string `bun:"continuing_education" json:"continuing_education,omitempty"`
	AvailabilitySchedule string `bun:"availability_schedule" json:"availability_schedule,omitempty"`
}

// ParamedicProfile holds the professional payload attached to a paramedic account
type ParamedicProfile struct {
	bun.BaseModel `bun:"table:paramedic_profiles,alias:para"`
	AccountID     uuid.UUID `bun:"account_id,pk,type:uuid" json:"account_id,omitempty"`
	Account       *Account  `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`

	EMTCertificationNumber string `bun:"emt_certification_number,notnull,unique" json:"emt_certification_number,omitempty"`
	YearsExperience        int    `bun:"years_experience" json:"years_experience,omitempty"`
	CertificationLevel     string `bun:"certification_level" json:"certification_level,omitempty"`
	ALSBLSTraining         string `bun:"als_bls_training" json:"als_bls_training,omitempty"`
}
