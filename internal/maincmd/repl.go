package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/mna/loxvm/lang/machine"
)

// Repl starts an interactive read-eval-print loop: each line is compiled and
// run against the same VM instance, so top-level var/fun/class declarations
// persist across lines the way the REPL mode described in spec.md requires.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	vm := machine.New()
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr

	in := bufio.NewScanner(stdio.Stdin)
	in.Buffer(make([]byte, 64*1024), 1<<20)

	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !in.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return in.Err()
		}

		line := in.Text()
		if line == "" {
			continue
		}

		if err := vm.Interpret(line); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
