package completionhelp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lainio/err2/assert"
)

func TestLedgerFiles(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	dir := t.TempDir()
	for _, name := range []string{"demo.bolt", "campus.bolt", "notes.txt"} {
		assert.NoError(os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	assert.NoError(os.Mkdir(filepath.Join(dir, "dir.bolt"), 0o700))

	assert.DeepEqual(LedgerFiles(dir, ""), []string{"campus.bolt", "demo.bolt"})
	assert.DeepEqual(LedgerFiles(dir, "de"), []string{"demo.bolt"})
	assert.That(len(LedgerFiles(filepath.Join(dir, "missing"), "")) == 0)
}
