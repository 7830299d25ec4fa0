// Package corpora provides a mechanism for managing test corpora, i.e., a
// collection of files that define some kind of compiler test. This is
// essentially a way of doing table-driven tests where the "table" is in the
// file system: each .bond file under a corpus root is one case, and each
// configured output is a sibling golden file.
package corpora

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"
)

// Corpus describes a test data corpus.
type Corpus struct {
	// The root of the test data directory. This path is relative to the
	// file that calls [Corpus.Run].
	Root string

	// An environment variable holding a glob of test names to run in
	// "refresh" mode, regenerating their golden files instead of comparing.
	Refresh string

	// The file extension (without a dot) of files which define a test case,
	// e.g. "bond".
	Extension string

	// Possible outputs of the test, found using Output.Extension. If the
	// file for a particular output is missing, it is implicitly treated as
	// being expected to be empty.
	Outputs []Output

	// Test executes one test case from the corpus. Returns a slice of
	// strings corresponding to the elements of Outputs.
	Test func(t *testing.T, path, text string) []string
}

func (c Corpus) Run(t *testing.T) {
	testDir := callerDir(0)
	root := filepath.Join(testDir, c.Root)

	// Enumerate the tests to run by walking the filesystem.
	var tests []string
	err := filepath.Walk(root, func(p string, fi fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() && strings.TrimPrefix(path.Ext(p), ".") == c.Extension {
			tests = append(tests, p)
		}
		return nil
	})
	if err != nil {
		t.Fatal("corpora: error while walking testdata FS:", err)
	}

	var refresh string
	if c.Refresh != "" {
		refresh = os.Getenv(c.Refresh)
		if !doublestar.ValidatePattern(refresh) {
			t.Fatalf("corpora: invalid refresh glob %q", refresh)
		}
	}
	if refresh != "" {
		// refreshed goldens must not be mistaken for a passing run
		t.Logf("corpora: refreshing test data because %s=%s", c.Refresh, refresh)
		t.Fail()
	}

	for _, casePath := range tests {
		name, _ := filepath.Rel(testDir, casePath)
		t.Run(name, func(t *testing.T) {
			bytes, err := os.ReadFile(casePath)
			if err != nil {
				t.Fatalf("corpora: error while loading input file %q: %v", casePath, err)
			}

			results := c.Test(t, name, string(bytes))
			if len(results) != len(c.Outputs) {
				t.Fatalf("corpora: test returned %d outputs, want %d", len(results), len(c.Outputs))
			}

			refreshThis, _ := doublestar.Match(refresh, name)
			for i, output := range c.Outputs {
				goldenPath := fmt.Sprint(casePath, ".", output.Extension)

				if refreshThis {
					c.writeGolden(t, goldenPath, results[i])
					continue
				}

				want, err := os.ReadFile(goldenPath)
				if err != nil && !errors.Is(err, os.ErrNotExist) {
					t.Errorf("corpora: error while loading output file %q: %v", goldenPath, err)
					continue
				}
				cmp := output.Compare
				if cmp == nil {
					cmp = defaultCompare
				}
				if msg := cmp(results[i], string(want)); msg != "" {
					t.Errorf("output mismatch for %q:\n%s", goldenPath, msg)
				}
			}
		})
	}
}

func (c Corpus) writeGolden(t *testing.T, path, content string) {
	if content == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			t.Errorf("corpora: error while deleting output file %q: %v", path, err)
		}
		return
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Errorf("corpora: error while writing output file %q: %v", path, err)
	}
}

// Output represents one output of a test case. Its golden file is the
// case's main file name suffixed with "." and Extension.
type Output struct {
	Extension string

	// The comparison function for this output. May be nil, in which case
	// the values are compared byte-for-byte.
	Compare Compare
}

// Compare is a comparison function between strings, used in [Output].
// Returns empty string if the strings match, otherwise an error message.
type Compare func(got, want string) string

func defaultCompare(got, want string) string {
	if got == want {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

func callerDir(skip int) string {
	_, file, _, ok := runtime.Caller(skip + 2)
	if !ok {
		panic("corpora: could not determine test file's directory")
	}
	return filepath.Dir(file)
}
