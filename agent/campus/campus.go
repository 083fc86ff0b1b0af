/*
Package campus has the domain of the student identity credential: the
credential schema, the student record an issuer turns into a credential, and
the kinds of proofs a verifier asks for.
*/
package campus

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/findy-network/campus-agent/agent/capability"
)

// Attribute names of the student identity schema in schema order.
const (
	AttrName       = "name"
	AttrStudentID  = "studentId"
	AttrUniversity = "university"
	AttrIsStudent  = "isStudent"
	AttrBirthDate  = "birthDate"
)

const (
	SchemaName    = "Student Identity"
	SchemaVersion = "1.0"
	DefinitionTag = "default"
)

// SchemaAttributes returns the attribute names of the schema in order.
func SchemaAttributes() []string {
	return []string{AttrName, AttrStudentID, AttrUniversity, AttrIsStudent, AttrBirthDate}
}

// Student is the issuer's context of a pending exchange. BirthDate is
// YYYYMMDD as an integer so that it can be used in predicates.
type Student struct {
	Name       string `json:"name"`
	StudentID  string `json:"studentId"`
	University string `json:"university"`
	IsStudent  bool   `json:"isStudent"`
	BirthDate  int    `json:"birthDate"`
}

// Attributes returns the credential attributes of s in schema order.
func (s Student) Attributes() []capability.Attribute {
	return []capability.Attribute{
		{Name: AttrName, Value: s.Name},
		{Name: AttrStudentID, Value: s.StudentID},
		{Name: AttrUniversity, Value: s.University},
		{Name: AttrIsStudent, Value: strconv.FormatBool(s.IsStudent)},
		{Name: AttrBirthDate, Value: strconv.Itoa(s.BirthDate)},
	}
}

// ErrMissingFields tells which required fields an issue request lacks.
type ErrMissingFields []string

func (e ErrMissingFields) Error() string {
	return "Missing required fields: " + strings.Join(e, ", ")
}

// StudentRequest is the JSON body of an issue request. Pointers tell missing
// fields apart from zero values.
type StudentRequest struct {
	Name       *string `json:"name"`
	StudentID  *string `json:"studentId"`
	University *string `json:"university"`
	IsStudent  *bool   `json:"isStudent"`
	BirthDate  *Date   `json:"birthDate"`
}

// Date is a YYYYMMDD date which unmarshals from a JSON number or a string of
// digits.
type Date int

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBirthDate, s)
	}
	*d = Date(n)
	return nil
}

// Student validates r and converts it. Missing fields give ErrMissingFields.
func (r StudentRequest) Student() (Student, error) {
	var missing ErrMissingFields
	if r.Name == nil || *r.Name == "" {
		missing = append(missing, AttrName)
	}
	if r.StudentID == nil || *r.StudentID == "" {
		missing = append(missing, AttrStudentID)
	}
	if r.University == nil || *r.University == "" {
		missing = append(missing, AttrUniversity)
	}
	if r.IsStudent == nil {
		missing = append(missing, AttrIsStudent)
	}
	if r.BirthDate == nil {
		missing = append(missing, AttrBirthDate)
	}
	if len(missing) > 0 {
		return Student{}, missing
	}
	if err := ValidateBirthDate(int(*r.BirthDate)); err != nil {
		return Student{}, err
	}
	return Student{
		Name:       *r.Name,
		StudentID:  *r.StudentID,
		University: *r.University,
		IsStudent:  *r.IsStudent,
		BirthDate:  int(*r.BirthDate),
	}, nil
}

// ErrBirthDate is returned for a birth date which isn't a YYYYMMDD date.
var ErrBirthDate = errors.New("birthDate must be a date in YYYYMMDD format")

// ValidateBirthDate checks that d is a real calendar date in YYYYMMDD.
func ValidateBirthDate(d int) error {
	if d < 10000101 || d > 99991231 {
		return ErrBirthDate
	}
	s := strconv.Itoa(d)
	if _, err := time.Parse("20060102", s); err != nil {
		return fmt.Errorf("%w: %d", ErrBirthDate, d)
	}
	return nil
}

// DateInt returns t as a YYYYMMDD integer.
func DateInt(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// RequestType is the kind of proof a verifier asks for. It's the verifier's
// context of a pending exchange.
type RequestType string

const (
	AgeVerification     RequestType = "age"
	StudentVerification RequestType = "student"
)

// ParseRequestType parses the type names used in routes and notifications.
func ParseRequestType(s string) (RequestType, error) {
	switch strings.ToLower(s) {
	case "age", "age-verification":
		return AgeVerification, nil
	case "student", "student-verification":
		return StudentVerification, nil
	}
	return "", fmt.Errorf("unknown proof request type: %q", s)
}

func (t RequestType) String() string { return string(t) }
