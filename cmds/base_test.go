package cmds

import (
	"bytes"
	"testing"
	"time"

	"github.com/lainio/err2/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		required bool
		ok       bool
	}{
		{"empty optional", "", false, true},
		{"empty required", "", true, false},
		{"http", "http://localhost:3001", true, true},
		{"https path", "https://campus.example.org/agent", true, true},
		{"no scheme", "localhost:3001", false, false},
		{"ws scheme", "ws://localhost:3001", false, false},
		{"no host", "http://", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PushTester(t)
			defer assert.PopTester()

			err := ValidateURL("url", tt.url, tt.required)
			if tt.ok {
				assert.NoError(err)
			} else {
				assert.Error(err)
			}
		})
	}
}

func TestValidatePort(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	assert.NoError(ValidatePort("port", 3001))
	assert.NoError(ValidatePort("port", 65535))
	assert.Error(ValidatePort("port", 0))
	assert.Error(ValidatePort("port", 65536))
}

func TestValidateDuration(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	assert.NoError(ValidateDuration("ttl", time.Minute))
	assert.Error(ValidateDuration("ttl", 0))
	assert.Error(ValidateDuration("ttl", -time.Second))
}

func TestFprintln(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	Fprintln(nil, "nothing")

	var b bytes.Buffer
	Fprintln(&b, "issuer", 3001)
	assert.Equal(b.String(), "issuer 3001\n")
	b.Reset()
	Fprintf(&b, "%s:%d", "verifier", 3003)
	assert.Equal(b.String(), "verifier:3003")
}
