package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vitebski/mysql-library-manager/pkg/models"
)

const shellHelp = `Commands:
  setup       create the tables and import CSV files
  unreturned  list books that have not been returned
  search      find rows by keyword
  frequency   loans per book category and student major
  recent      most recent loans
  stats       average loans per student by major
  reset       drop the database and recreate the tables
  help        show this list
  exit        leave the shell`

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(r *runner) error {
				return newShell(r, os.Stdin).run()
			})
		},
	}
}

// shell reads commands from in until exit or end of input. A failing
// command prints its error and the prompt comes back.
type shell struct {
	r   *runner
	in  *bufio.Scanner
	out io.Writer
}

func newShell(r *runner, in io.Reader) *shell {
	return &shell{r: r, in: bufio.NewScanner(in), out: r.out}
}

func (sh *shell) run() error {
	fmt.Fprintln(sh.out, "Library manager shell. Type 'help' for commands.")
	for {
		line, ok := sh.prompt("library> ")
		if !ok {
			fmt.Fprintln(sh.out)
			return sh.in.Err()
		}

		cmd := strings.ToLower(line)
		if cmd == "" {
			continue
		}
		if cmd == "exit" || cmd == "quit" {
			fmt.Fprintln(sh.out, "Goodbye.")
			return nil
		}

		if err := sh.dispatch(cmd); err != nil {
			fmt.Fprintf(sh.out, "Error: %v\n", err)
		}
	}
}

func (sh *shell) dispatch(cmd string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			sh.r.logger.Errorf("Command %s panicked: %v", cmd, p)
			err = fmt.Errorf("%s: %v", cmd, p)
		}
	}()

	switch cmd {
	case "help":
		fmt.Fprintln(sh.out, shellHelp)
		return nil
	case "setup":
		dir, err := sh.ask("Data directory", dataDir(""))
		if err != nil {
			return err
		}
		return sh.r.setup(dir, true)
	case "unreturned":
		return sh.r.unreturned()
	case "search":
		table, err := sh.ask("Table", "")
		if err != nil {
			return err
		}
		column, err := sh.ask("Column", "")
		if err != nil {
			return err
		}
		keyword, err := sh.ask("Keyword", "")
		if err != nil {
			return err
		}
		return sh.r.search(table, column, keyword)
	case "frequency":
		desc, err := sh.askYesNo("Sort descending", true)
		if err != nil {
			return err
		}
		limit, err := sh.askInt("Limit (0 for all)", 0)
		if err != nil {
			return err
		}
		return sh.r.frequency(desc, limit)
	case "recent":
		count, err := sh.askInt("Number of transactions", 10)
		if err != nil {
			return err
		}
		return sh.r.recent(count)
	case "stats":
		desc, err := sh.askYesNo("Sort descending", true)
		if err != nil {
			return err
		}
		return sh.r.stats(desc)
	case "reset":
		confirm, err := sh.askYesNo("Drop the database and recreate the schema", false)
		if err != nil {
			return err
		}
		if !confirm {
			fmt.Fprintln(sh.out, "Reset cancelled.")
			return nil
		}
		return sh.r.reset(models.ResetDropDatabase, true)
	default:
		return fmt.Errorf("unknown command %q, type 'help' for commands", cmd)
	}
}

func (sh *shell) prompt(label string) (string, bool) {
	fmt.Fprint(sh.out, label)
	if !sh.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(sh.in.Text()), true
}

// ask prompts for a value; an empty answer yields def
func (sh *shell) ask(label, def string) (string, error) {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	answer, ok := sh.prompt(label + ": ")
	if !ok {
		return "", io.ErrUnexpectedEOF
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (sh *shell) askInt(label string, def int) (int, error) {
	answer, err := sh.ask(label, strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", answer)
	}
	return n, nil
}

func (sh *shell) askYesNo(label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	answer, ok := sh.prompt(fmt.Sprintf("%s [%s]: ", label, hint))
	if !ok {
		return false, io.ErrUnexpectedEOF
	}
	switch strings.ToLower(answer) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected yes or no, got %q", answer)
	}
}
