/*
Package completionhelp has the shell completion helpers of the CLI flags.
*/
package completionhelp

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// LedgerExt is the file extension of the loopback ledger databases.
const LedgerExt = ".bolt"

// LedgerFiles lists the ledger databases in dir which start with prefix.
func LedgerFiles(dir, prefix string) (files []string) {
	defer err2.Catch(err2.Err(func(err error) {
		_, _ = fmt.Fprintln(os.Stderr, err)
	}))

	entries := try.To1(os.ReadDir(dir))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != LedgerExt || !strings.HasPrefix(name, prefix) {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files
}
