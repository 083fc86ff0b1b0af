package campus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/findy-network/campus-agent/agent/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudent_Attributes(t *testing.T) {
	s := Student{Name: "Alice", StudentID: "S1", University: "NTU", IsStudent: true, BirthDate: 20000101}
	assert.Equal(t, []capability.Attribute{
		{Name: "name", Value: "Alice"},
		{Name: "studentId", Value: "S1"},
		{Name: "university", Value: "NTU"},
		{Name: "isStudent", Value: "true"},
		{Name: "birthDate", Value: "20000101"},
	}, s.Attributes())

	names := make([]string, 0, 5)
	for _, a := range s.Attributes() {
		names = append(names, a.Name)
	}
	assert.Equal(t, SchemaAttributes(), names)
}

func TestStudentRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		missing ErrMissingFields
		wantErr error
	}{
		{"ok", `{"name":"A","studentId":"1","university":"U","isStudent":false,"birthDate":19991231}`, nil, nil},
		{"missing two", `{"name":"A","university":"U","isStudent":true}`, ErrMissingFields{"studentId", "birthDate"}, nil},
		{"empty string", `{"name":"","studentId":"1","university":"U","isStudent":true,"birthDate":20000101}`, ErrMissingFields{"name"}, nil},
		{"string date", `{"name":"A","studentId":"1","university":"U","isStudent":false,"birthDate":"19991231"}`, nil, nil},
		{"bad date", `{"name":"A","studentId":"1","university":"U","isStudent":true,"birthDate":20001301}`, nil, ErrBirthDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r StudentRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &r))
			s, err := r.Student()
			switch {
			case tt.missing != nil:
				var m ErrMissingFields
				require.ErrorAs(t, err, &m)
				assert.Equal(t, tt.missing, m)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, "A", s.Name)
				assert.False(t, s.IsStudent)
			}
		})
	}
	assert.Equal(t, "Missing required fields: studentId, birthDate",
		ErrMissingFields{"studentId", "birthDate"}.Error())
}

func TestDateInt(t *testing.T) {
	assert.Equal(t, 20060102, DateInt(time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)))
}

func TestParseRequestType(t *testing.T) {
	rt, err := ParseRequestType("age-verification")
	require.NoError(t, err)
	assert.Equal(t, AgeVerification, rt)
	rt, err = ParseRequestType("Student")
	require.NoError(t, err)
	assert.Equal(t, StudentVerification, rt)
	_, err = ParseRequestType("other")
	assert.Error(t, err)
}
