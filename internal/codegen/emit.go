// internal/codegen/emit.go
package codegen

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"plum/internal/compiler"
)

// EmitTextual lowers a program and returns its textual LLVM IR.
func EmitTextual(prog *compiler.Program) (string, error) {
	module, err := Lower(prog)
	if err != nil {
		return "", err
	}
	return module.String(), nil
}

// BuildExecutable lowers a program and links it into a native executable at
// outPath. The IR goes through a uniquely named temporary file handed to the
// system C compiler, which does the assembling and linking.
func BuildExecutable(prog *compiler.Program, outPath string) error {
	ir, err := EmitTextual(prog)
	if err != nil {
		return err
	}

	tmpPath := filepath.Join(os.TempDir(), "plum-"+uuid.NewString()+".ll")
	if err := os.WriteFile(tmpPath, []byte(ir), 0o644); err != nil {
		return pkgerrors.Wrap(err, "write intermediate file")
	}
	defer os.Remove(tmpPath)

	cc := os.Getenv("PLUM_CC")
	if cc == "" {
		cc = "clang"
	}
	log.Debug("linking", "cc", cc, "ir", tmpPath, "out", outPath)

	cmd := exec.Command(cc, tmpPath, "-o", outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return pkgerrors.Wrapf(err, "%s failed: %s", cc, string(out))
	}

	if info, err := os.Stat(outPath); err == nil {
		log.Info("built executable", "path", outPath, "size", humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
