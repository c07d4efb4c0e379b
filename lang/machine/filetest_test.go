package machine_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/loxvm/internal/filetest"
	"github.com/mna/loxvm/lang/machine"
)

var testUpdateMachineTests = flag.Bool("test.update-machine-tests", false, "If set, replace expected machine test results with actual results.")

// TestRunScripts drives every .lox fixture under testdata/in through a fresh
// VM and diffs stdout/stderr against the golden files in testdata/out, the
// same golden-script idiom the teacher's scanner/parser/resolver tests use.
func TestRunScripts(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".lox") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}

			var out, errOut bytes.Buffer
			vm := machine.New()
			vm.Stdout = &out
			vm.Stderr = &errOut

			if err := vm.Interpret(string(src)); err != nil {
				errOut.WriteString(err.Error())
				errOut.WriteByte('\n')
			}

			filetest.DiffOutput(t, fi, out.String(), resultDir, testUpdateMachineTests)
			filetest.DiffErrors(t, fi, errOut.String(), resultDir, testUpdateMachineTests)
		})
	}
}
