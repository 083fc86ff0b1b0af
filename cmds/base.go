/*
Package cmds has the command structs behind the CLI. A command is filled from
flags, checked with Validate and run with Exec. The cobra layer in cmd/ only
binds flags and calls these.
*/
package cmds

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lainio/err2/try"
)

var ErrInvalid = errors.New("invalid command, check arguments")

type Result interface {
	JSON() ([]byte, error)
}

type Command interface {
	Validate() error
	Exec(w io.Writer) (r Result, err error)
}

// ValidateURL checks that s is an absolute http(s) url. Empty s is an error
// only when required.
func ValidateURL(name, s string, required bool) error {
	if s == "" {
		if required {
			return fmt.Errorf("%s cannot be empty", name)
		}
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) url: %s", name, s)
	}
	return nil
}

func ValidatePort(name string, port uint) error {
	if port == 0 || port > 65535 {
		return fmt.Errorf("%s must be 1-65535, was %d", name, port)
	}
	return nil
}

func ValidateDuration(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, was %v", name, d)
	}
	return nil
}

// ParseLoggingArgs parses glog flags from a string like
// "-logtostderr=true -v=2".
func ParseLoggingArgs(s string) {
	args := make([]string, 1, 12)
	args[0] = os.Args[0]
	args = append(args, strings.Fields(s)...)
	orgArgs := os.Args
	os.Args = args
	flag.Parse()
	os.Args = orgArgs
}

// Fprintln is fmt.Fprintln but it allows writer to be nil. Note! it panics
// with the error which err2 handlers catch.
func Fprintln(w io.Writer, a ...any) {
	if w != nil {
		try.To1(fmt.Fprintln(w, a...))
	}
}

// Fprintf is fmt.Fprintf but it allows writer to be nil. Note! it panics
// with the error which err2 handlers catch.
func Fprintf(w io.Writer, format string, a ...any) {
	if w != nil {
		try.To1(fmt.Fprintf(w, format, a...))
	}
}
