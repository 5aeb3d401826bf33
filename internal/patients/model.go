package patients

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrNameRequired    = errors.New("patient name is required")
)

// Patient is one row of the clinic's registry. Deactivation is a soft
// delete: inactive patients keep their history but leave the listings.
type Patient struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	CPF           *string    `json:"cpf,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	Email         *string    `json:"email,omitempty"`
	Address       *string    `json:"address,omitempty"`
	BirthDate     *time.Time `json:"birth_date,omitempty"`
	DentalHistory *string    `json:"dental_history,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// UpsertRequest carries the fields the admin form and the webhook may set.
// A nil ID means insert.
type UpsertRequest struct {
	ID            *uuid.UUID `json:"id,omitempty"`
	Name          string     `json:"name"`
	CPF           *string    `json:"cpf,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	Email         *string    `json:"email,omitempty"`
	Address       *string    `json:"address,omitempty"`
	BirthDate     *time.Time `json:"birth_date,omitempty"`
	DentalHistory *string    `json:"dental_history,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

func (r *UpsertRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	return nil
}
