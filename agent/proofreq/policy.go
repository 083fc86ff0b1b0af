package proofreq

import (
	"strings"

	"github.com/findy-network/campus-agent/agent/campus"
	"github.com/findy-network/campus-agent/agent/capability"
)

// Policy holds the business rules on top of cryptographic validity. An empty
// ExpectedUniversity accepts any university.
type Policy struct {
	ExpectedUniversity string
}

// Verdict is the outcome of Evaluate. Reasons explain a failure.
type Verdict struct {
	Passed  bool
	Reasons []string
}

func (v Verdict) String() string {
	if v.Passed {
		return "passed"
	}
	return "failed: " + strings.Join(v.Reasons, "; ")
}

// Infer guesses the request type from a presentation. Revealed student
// attributes mean a student request, an age predicate alone an age request.
func Infer(res *capability.PresentationResult) (campus.RequestType, bool) {
	if res == nil {
		return "", false
	}
	_, hasIsStudent := res.RevealedAttributes[campus.AttrIsStudent]
	_, hasUniversity := res.RevealedAttributes[campus.AttrUniversity]
	if hasIsStudent || hasUniversity {
		return campus.StudentVerification, true
	}
	if res.Predicates[AgePredicate] {
		return campus.AgeVerification, true
	}
	return "", false
}

// Evaluate checks res against the rules of request type t.
func (p Policy) Evaluate(t campus.RequestType, res *capability.PresentationResult) Verdict {
	if res == nil {
		return Verdict{Reasons: []string{"no presentation"}}
	}
	var reasons []string
	if !res.IsVerified {
		reasons = append(reasons, "presentation is not cryptographically valid")
	}

	switch t {
	case campus.StudentVerification:
		for _, key := range StudentReferents {
			if _, ok := res.RevealedAttributes[key]; !ok {
				reasons = append(reasons, "missing attribute "+key)
			}
		}
		if v, ok := res.RevealedAttributes[campus.AttrIsStudent]; ok && v != "true" {
			reasons = append(reasons, "isStudent is "+v)
		}
		if u, ok := res.RevealedAttributes[campus.AttrUniversity]; ok &&
			p.ExpectedUniversity != "" && u != p.ExpectedUniversity {
			reasons = append(reasons, "university "+u+" is not accepted")
		}
	case campus.AgeVerification:
		// validity alone decides
	default:
		reasons = append(reasons, "unknown request type "+string(t))
	}
	return Verdict{Passed: len(reasons) == 0, Reasons: reasons}
}
