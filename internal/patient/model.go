package patient

import (
	"time"

	"github.com/google/uuid"
)

type Sex string

const (
	SexUnknown Sex = ""
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexOther   Sex = "other"
)

type Consent struct {
	Messaging  bool `json:"messaging"`
	Marketing  bool `json:"marketing"`
	VoiceCalls bool `json:"voice_calls"`
}

type Patient struct {
	ID        uuid.UUID  `json:"id"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	ClinicID  uuid.UUID  `json:"clinic_id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	DOB       *time.Time `json:"dob,omitempty"`
	Sex       Sex        `json:"sex,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Email     string     `json:"email,omitempty"`
	Consent   Consent    `json:"consent"`
	Tags      []string   `json:"tags"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (p Patient) OwnerID() uuid.UUID   { return p.DoctorID }
func (p Patient) ClinicRef() uuid.UUID { return p.ClinicID }

func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Patch carries the mutable fields of a patient. Nil fields are left as is.
type Patch struct {
	Phone   *string   `json:"phone,omitempty"`
	Email   *string   `json:"email,omitempty"`
	Consent *Consent  `json:"consent,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

type Filter struct {
	Search string
	Tag    string
	Limit  int
	Offset int
}
