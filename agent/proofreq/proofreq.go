/*
Package proofreq builds the verifier's AnonCreds proof requests and decides
whether a cryptographically verified presentation also satisfies the
verifier's business rules.
*/
package proofreq

import (
	"fmt"
	"time"

	"github.com/findy-network/campus-agent/agent/campus"
	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/findy-network/campus-agent/agent/utils"
)

const (
	// AgePredicate is the referent of the age predicate.
	AgePredicate = "age_verification"

	DefaultMinAge  = 18
	RequestVersion = "1.0"

	StudentRequestName = "Student Status Verification"
)

// StudentReferents are the attribute referents of the student request. They
// are the attribute names as well.
var StudentReferents = []string{
	campus.AttrUniversity,
	campus.AttrIsStudent,
	campus.AttrName,
	campus.AttrStudentID,
}

// Builder builds proof requests. Restrictions are added only for the ids
// which are set.
type Builder struct {
	CredDefID string
	SchemaID  string
	MinAge    int
	Location  *time.Location
	Now       func() time.Time
}

func (b Builder) now() time.Time {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	loc := b.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

func (b Builder) minAge() int {
	if b.MinAge <= 0 {
		return DefaultMinAge
	}
	return b.MinAge
}

func (b Builder) restrictions() []capability.Restriction {
	if b.CredDefID == "" && b.SchemaID == "" {
		return nil
	}
	return []capability.Restriction{{CredDefID: b.CredDefID, SchemaID: b.SchemaID}}
}

// MaxBirthDate returns the latest YYYYMMDD birth date which is old enough
// today. Feb 29 rolls to Mar 1 in non-leap years.
func (b Builder) MaxBirthDate() int {
	today := b.now()
	return campus.DateInt(today.AddDate(-b.minAge(), 0, 0))
}

// Age builds the age request: a single birthDate predicate and no revealed
// attributes.
func (b Builder) Age() capability.ProofRequest {
	return capability.ProofRequest{
		Name:                fmt.Sprintf("Age Verification (%d+ years)", b.minAge()),
		Version:             RequestVersion,
		Nonce:               utils.NewNonceStr(),
		RequestedAttributes: map[string]capability.RequestedAttribute{},
		RequestedPredicates: map[string]capability.RequestedPredicate{
			AgePredicate: {
				Name:         campus.AttrBirthDate,
				PType:        "<=",
				PValue:       b.MaxBirthDate(),
				Restrictions: b.restrictions(),
			},
		},
	}
}

// Student builds the student status request which reveals four attributes.
func (b Builder) Student() capability.ProofRequest {
	attrs := make(map[string]capability.RequestedAttribute, len(StudentReferents))
	for _, name := range StudentReferents {
		attrs[name] = capability.RequestedAttribute{
			Name:         name,
			Restrictions: b.restrictions(),
		}
	}
	return capability.ProofRequest{
		Name:                StudentRequestName,
		Version:             RequestVersion,
		Nonce:               utils.NewNonceStr(),
		RequestedAttributes: attrs,
		RequestedPredicates: map[string]capability.RequestedPredicate{},
	}
}

// For builds the request of type t.
func (b Builder) For(t campus.RequestType) (capability.ProofRequest, error) {
	switch t {
	case campus.AgeVerification:
		return b.Age(), nil
	case campus.StudentVerification:
		return b.Student(), nil
	}
	return capability.ProofRequest{}, fmt.Errorf("unknown proof request type: %q", t)
}
