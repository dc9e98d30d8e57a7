package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
	PatientProfiles() repository.Repository[*PatientProfile]
	DoctorProfiles() repository.Repository[*DoctorProfile]
	ParamedicProfiles() repository.Repository[*ParamedicProfile]
}

func NewPatientProfilesRepository(db *bun.DB) repository.Repository[*PatientProfile] {
	handlers := repository.ModelHandlers[*PatientProfile]{
		NewRecord: func() *PatientProfile {
			return &PatientProfile{}
		},
		GetID: func(record *PatientProfile) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.AccountID
		},
		SetID: func(record *PatientProfile, id uuid.UUID) {
			record.AccountID = id
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewDoctorProfilesRepository(db *bun.DB) repository.Repository[*DoctorProfile] {
	handlers := repository.ModelHandlers[*DoctorProfile]{
		NewRecord: func() *DoctorProfile {
			return &DoctorProfile{}
		},
		GetID: func(record *DoctorProfile) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.AccountID
		},
		SetID: func(record *DoctorProfile, id uuid.UUID) {
			record.AccountID = id
		},
		GetIdentifier: func() string {
			return "medical_license"
		},
	}
	return repository.NewRepository(db, handlers)
}

func NewParamedicProfilesRepository(db *bun.DB) repository.Repository[*ParamedicProfile] {
	handlers := repository.ModelHandlers[*ParamedicProfile]{
		NewRecord: func() *ParamedicProfile {
			return &ParamedicProfile{}
		},
		GetID: func(record *ParamedicProfile) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.AccountID
		},
		SetID: func(record *ParamedicProfile, id uuid.UUID) {
			record.AccountID = id
		},
		GetIdentifier: func() string {
			return "emt_certification_number"
		},
	}
	return repository.NewRepository(db, handlers)
}

type mngr struct {
	db                *bun.DB
	accounts          Accounts
	patientProfiles   repository.Repository[*PatientProfile]
	doctorProfiles    repository.Repository[*DoctorProfile]
	paramedicProfiles repository.Repository[*ParamedicProfile]
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:                db,
		accounts:          NewAccountsRepository(db),
		patientProfiles:   NewPatientProfilesRepository(db),
		doctorProfiles:    NewDoctorProfilesRepository(db),
		paramedicProfiles: NewParamedicProfilesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.patientProfiles == nil {
		return errors.New("repository patientProfiles should be initialized")
	}

	if m.doctorProfiles == nil {
		return errors.New("repository doctorProfiles should be initialized")
	}

	if m.paramedicProfiles == nil {
		return errors.New("repository paramedicProfiles should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) PatientProfiles() repository.Repository[*PatientProfile] {
	return m.patientProfiles
}

func (m mngr) DoctorProfiles() repository.Repository[*DoctorProfile] {
	return m.doctorProfiles
}

func (m mngr) ParamedicProfiles() repository.Repository[*ParamedicProfile] {
	return m.paramedicProfiles
}
