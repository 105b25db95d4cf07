package student

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vintech/portal/core"
)

// Student is an enrollment record. Field names mirror the backend "students"
// table columns; RollNumber carries the branch-letter prefix.
type Student struct {
	RollNumber    string   `json:"roll_number"`
	StudentName   string   `json:"student_name"`
	FatherName    string   `json:"father_name"`
	MotherName    string   `json:"mother_name,omitempty"`
	Course        string   `json:"course"`
	Duration      string   `json:"duration,omitempty"`
	FeeMonth      *float64 `json:"fee_month,omitempty"` // recurring expected amount
	PhoneNumber   string   `json:"phone_number,omitempty"`
	AdmissionDate string   `json:"admission_date,omitempty"`
	Branch        string   `json:"branch"`
	BatchTime     string   `json:"batch_time,omitempty"`
}

// NewStudent is one row of the multi-row admission form. RollNumber is the
// bare number; the branch prefix is applied on create.
type NewStudent struct {
	RollNumber    string   `json:"roll_number" validate:"required,alphanum_"`
	StudentName   string   `json:"student_name" validate:"required"`
	FatherName    string   `json:"father_name" validate:"required"`
	MotherName    string   `json:"mother_name"`
	Course        string   `json:"course" validate:"required"`
	Duration      string   `json:"duration"`
	FeeMonth      *float64 `json:"fee_month"`
	PhoneNumber   string   `json:"phone_number"`
	AdmissionDate string   `json:"admission_date"`
	Branch        string   `json:"branch" validate:"required,branchname,ne=all"`
	BatchTime     string   `json:"batch_time"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, translator ut.Translator) error {
	ns.RollNumber = core.CleanString(ns.RollNumber, true /* lower */)
	ns.StudentName = core.CleanString(ns.StudentName, true /* lower */)
	ns.FatherName = core.CleanString(ns.FatherName, true /* lower */)
	ns.MotherName = core.CleanString(ns.MotherName, true /* lower */)
	ns.Course = core.CleanString(ns.Course, true /* lower */)
	ns.Duration = core.CleanString(ns.Duration)
	ns.PhoneNumber = core.CleanString(ns.PhoneNumber)
	ns.AdmissionDate = core.CleanString(ns.AdmissionDate)
	ns.Branch = core.CleanString(ns.Branch, true /* lower */)
	ns.BatchTime = core.CleanString(ns.BatchTime)
	return validate.Struct(ns)
}

// UpdateStudent defines what may be patched on an existing Student. The roll
// number and branch are immutable: they encode each other.
type UpdateStudent struct {
	StudentName   string   `json:"student_name"`
	FatherName    string   `json:"father_name"`
	MotherName    string   `json:"mother_name"`
	Course        string   `json:"course"`
	Duration      string   `json:"duration"`
	FeeMonth      *float64 `json:"fee_month"`
	PhoneNumber   string   `json:"phone_number"`
	AdmissionDate string   `json:"admission_date"`
	BatchTime     string   `json:"batch_time"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.StudentName = core.CleanString(us.StudentName, true /* lower */)
	us.FatherName = core.CleanString(us.FatherName, true /* lower */)
	us.MotherName = core.CleanString(us.MotherName, true /* lower */)
	us.Course = core.CleanString(us.Course, true /* lower */)
	us.Duration = core.CleanString(us.Duration)
	return validate.Struct(us)
}
