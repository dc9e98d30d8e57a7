package auth

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// DefaultPhoneRegion is used to parse contact numbers without a country prefix
var DefaultPhoneRegion = "IN"

// RegisterAccountMessage carries everything needed to create an account and
// its role profile in one transaction
type RegisterAccountMessage struct {
	Role        string `json:"role"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`

	HouseNo   string `json:"house_no"`
	Apartment string `json:"apartment"`
	Colony    string `json:"colony"`
	City      string `json:"city"`
	PinCode   string `json:"pin_code"`
	State     string `json:"state"`

	PrimaryContact  string `json:"primary_contact"`
	RecoveryContact string `json:"recovery_contact"`
	PrimaryEmail    string `json:"primary_email"`
	RecoveryEmail   string `json:"recovery_email"`
	AadharSSN       string `json:"aadhar_ssn"`

	Password string `json:"password"`

	// patient payload
	Allergies         string  `json:"allergies"`
	ChronicConditions string  `json:"chronic_conditions"`
	Medications       string  `json:"medications"`
	PastSurgeries     string  `json:"past_surgeries"`
	Weight            float64 `json:"weight"`
	Height            float64 `json:"height"`

	// doctor payload
	MedicalLicense  string `json:"medical_license"`
	Specialty       string `json:"specialty"`
	YearsExperience int    `json:"years_experience"`
	Organization    string `json:"organization"`

	// paramedic payload
	EMTCertificationNumber string `json:"emt_certification_number"`
	CertificationLevel     string `json:"certification_level"`

	UseHashid  bool
	OnResponse func(r *RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// Validate will validate the message, collecting every missing or malformed
// field instead of stopping at the first
func (e RegisterAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Role, validation.Required, validation.In(
			string(RolePatient),
			string(RoleDoctor),
			string(RoleParamedic),
		)),
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.DateOfBirth, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&e.PrimaryEmail, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.RecoveryEmail, is.Email),
		validation.Field(&e.PrimaryContact, validation.Required, validation.By(validPhoneNumber)),
		validation.Field(&e.RecoveryContact, validation.By(validPhoneNumber)),
		validation.Field(&e.AadharSSN, validation.Required),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&e.MedicalLicense, validation.Required.When(e.Role == string(RoleDoctor))),
		validation.Field(&e.EMTCertificationNumber, validation.Required.When(e.Role == string(RoleParamedic))),
	)
}

func validPhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, DefaultPhoneRegion)
	if err != nil {
		return err
	}

	if !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}

	return nil
}

type RegisterAccountResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type RegisterAccountHandler struct {
	repo  RepositoryManager
	codes *VerificationCodes
}

func NewRegisterAccountHandler(repo RepositoryManager, codes *VerificationCodes) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:  repo,
		codes: codes,
	}
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	verified, err := h.codes.IsVerified(ctx, event.PrimaryEmail)
	if err != nil {
		return err
	}
	if !verified {
		return ErrEmailNotVerified
	}

	account := &Account{}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		role, _ := ParseRole(event.Role)

		account.Role = role
		account.FirstName = event.FirstName
		account.LastName = event.LastName
		account.HouseNo = event.HouseNo
		account.Apartment = event.Apartment
		account.Colony = event.Colony
		account.City = event.City
		account.PinCode = event.PinCode
		account.State = event.State
		account.PrimaryContact = event.PrimaryContact
		account.RecoveryContact = event.RecoveryContact
		account.PrimaryEmail = event.PrimaryEmail
		account.RecoveryEmail = event.RecoveryEmail
		account.AadharSSN = event.AadharSSN
		account.PasswordHash = hash
		account.EmailVerified = true

		if event.DateOfBirth != "" {
			dob, err := time.Parse("2006-01-02", event.DateOfBirth)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid date of birth")
			}
			account.DateOfBirth = &dob
		}

		if event.UseHashid {
			if id, err := hashid.NewUUID(event.PrimaryEmail); err == nil {
				account.ID = id
			}
		}

		// the unique constraint on primary_email is the final arbiter
		// against concurrent registrations
		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		return h.createProfileTx(ctx, tx, account, event)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	// the handshake is consumed, a failed eviction does not undo the commit
	_ = h.codes.Invalidate(ctx, event.PrimaryEmail)

	if event.OnResponse != nil {
		event.OnResponse(&RegisterAccountResponse{
			AccountID: account.ID.String(),
			Email:     account.PrimaryEmail,
			Role:      string(account.Role),
		})
	}

	return nil
}

func (h *RegisterAccountHandler) createProfileTx(ctx context.Context, tx bun.Tx, account *Account, event RegisterAccountMessage) error {
	switch account.Role {
	case RolePatient:
		profile := &PatientProfile{
			AccountID:         account.ID,
			Allergies:         event.Allergies,
			ChronicConditions: event.ChronicConditions,
			Medications:       event.Medications,
			PastSurgeries:     event.PastSurgeries,
			Weight:            event.Weight,
			Height:            event.Height,
		}
		if _, err := h.repo.PatientProfiles().CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create patient profile")
		}
	case RoleDoctor:
		profile := &DoctorProfile{
			AccountID:       account.ID,
			MedicalLicense:  event.MedicalLicense,
			Specialty:       event.Specialty,
			YearsExperience: event.YearsExperience,
			Organization:    event.Organization,
		}
		if _, err := h.repo.DoctorProfiles().CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create doctor profile")
		}
	case RoleParamedic:
		profile := &ParamedicProfile{
			AccountID:              account.ID,
			EMTCertificationNumber: event.EMTCertificationNumber,
			YearsExperience:        event.YearsExperience,
			CertificationLevel:     event.CertificationLevel,
		}
		if _, err := h.repo.ParamedicProfiles().CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create paramedic profile")
		}
	}

	return nil
}
