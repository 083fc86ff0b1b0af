package proofreq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/findy-network/campus-agent/agent/campus"
	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 10, 0, 0, 0, time.UTC) }
}

func TestBuilder_Age(t *testing.T) {
	tests := []struct {
		name string
		now  func() time.Time
		want int
	}{
		{"normal", fixed(2024, 5, 1), 20060501},
		{"leap day", fixed(2024, 2, 29), 20060301},
		{"new year", fixed(2025, 1, 1), 20070101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Builder{Now: tt.now, Location: time.UTC}
			req := b.Age()
			assert.Equal(t, "Age Verification (18+ years)", req.Name)
			assert.Equal(t, "1.0", req.Version)
			assert.Empty(t, req.RequestedAttributes)
			require.Contains(t, req.RequestedPredicates, AgePredicate)
			p := req.RequestedPredicates[AgePredicate]
			assert.Equal(t, "birthDate", p.Name)
			assert.Equal(t, "<=", p.PType)
			assert.Equal(t, tt.want, p.PValue)
			assert.Nil(t, p.Restrictions)
		})
	}
}

func TestBuilder_Restrictions(t *testing.T) {
	b := Builder{CredDefID: "cd1", Now: fixed(2024, 5, 1)}
	age := b.Age()
	assert.Equal(t, []capability.Restriction{{CredDefID: "cd1"}},
		age.RequestedPredicates[AgePredicate].Restrictions)

	b.SchemaID = "s1"
	st := b.Student()
	assert.Equal(t, StudentRequestName, st.Name)
	assert.Len(t, st.RequestedAttributes, 4)
	assert.Empty(t, st.RequestedPredicates)
	for _, ref := range StudentReferents {
		a := st.RequestedAttributes[ref]
		assert.Equal(t, ref, a.Name)
		assert.Equal(t, []capability.Restriction{{CredDefID: "cd1", SchemaID: "s1"}}, a.Restrictions)
	}

	data, err := json.Marshal(age.RequestedPredicates[AgePredicate].Restrictions)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"cred_def_id":"cd1"}]`, string(data))
}

func TestBuilder_For(t *testing.T) {
	b := Builder{}
	r, err := b.For(campus.StudentVerification)
	require.NoError(t, err)
	assert.Equal(t, StudentRequestName, r.Name)
	_, err = b.For("unknown")
	assert.Error(t, err)
}

func studentResult(isStudent, university string, verified bool) *capability.PresentationResult {
	return &capability.PresentationResult{
		IsVerified: verified,
		RevealedAttributes: map[string]string{
			"name":       "Alice",
			"studentId":  "S1",
			"university": university,
			"isStudent":  isStudent,
		},
	}
}

func TestPolicy_Evaluate(t *testing.T) {
	p := Policy{ExpectedUniversity: "National Taiwan University"}
	missing := studentResult("true", "National Taiwan University", true)
	delete(missing.RevealedAttributes, "studentId")

	tests := []struct {
		name   string
		policy Policy
		typ    campus.RequestType
		res    *capability.PresentationResult
		pass   bool
	}{
		{"student ok", p, campus.StudentVerification, studentResult("true", "National Taiwan University", true), true},
		{"not a student", p, campus.StudentVerification, studentResult("false", "National Taiwan University", true), false},
		{"wrong university", p, campus.StudentVerification, studentResult("true", "Other", true), false},
		{"any university", Policy{}, campus.StudentVerification, studentResult("true", "Other", true), true},
		{"invalid crypto", p, campus.StudentVerification, studentResult("true", "National Taiwan University", false), false},
		{"missing key", p, campus.StudentVerification, missing, false},
		{"age ok", p, campus.AgeVerification, &capability.PresentationResult{IsVerified: true, Predicates: map[string]bool{AgePredicate: true}}, true},
		{"age without predicate results", p, campus.AgeVerification, &capability.PresentationResult{IsVerified: true}, true},
		{"age invalid", p, campus.AgeVerification, &capability.PresentationResult{IsVerified: false, Predicates: map[string]bool{AgePredicate: true}}, false},
		{"nil", p, campus.AgeVerification, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.policy.Evaluate(tt.typ, tt.res)
			assert.Equal(t, tt.pass, v.Passed, v.String())
			if !tt.pass {
				assert.NotEmpty(t, v.Reasons)
			}
		})
	}
}

func TestInfer(t *testing.T) {
	typ, ok := Infer(studentResult("true", "U", true))
	assert.True(t, ok)
	assert.Equal(t, campus.StudentVerification, typ)

	typ, ok = Infer(&capability.PresentationResult{Predicates: map[string]bool{AgePredicate: true}})
	assert.True(t, ok)
	assert.Equal(t, campus.AgeVerification, typ)

	_, ok = Infer(&capability.PresentationResult{})
	assert.False(t, ok)
}
