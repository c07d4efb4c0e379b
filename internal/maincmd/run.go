package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/loxvm/lang/machine"
)

// Run compiles and executes a single source file (spec.md "run" command).
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		return printError(stdio, fmt.Errorf("run: a source file must be provided"))
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, fmt.Errorf("run: %w", err))
	}

	vm := machine.New()
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr

	if err := vm.Interpret(string(src)); err != nil {
		return printError(stdio, err)
	}
	return nil
}
