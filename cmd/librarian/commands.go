package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/vitebski/mysql-library-manager/internal/generator"
	"github.com/vitebski/mysql-library-manager/internal/schema"
	"github.com/vitebski/mysql-library-manager/internal/utils"
	"github.com/vitebski/mysql-library-manager/pkg/models"
)

const defaultDataDir = "data"

// dataDir resolves the CSV directory from the flag, LIBRARY_DATA_DIR or the default
func dataDir(flag string) string {
	if flag != "" {
		return flag
	}
	if dir := os.Getenv("LIBRARY_DATA_DIR"); dir != "" {
		return dir
	}
	return defaultDataDir
}

func newSetupCmd(a *app) *cobra.Command {
	var (
		dir    string
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the library tables and import their CSV files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(r *runner) error {
				return r.setup(dataDir(dir), verify)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "data-dir", "", "Directory holding <table>.csv files (default: $LIBRARY_DATA_DIR or ./data)")
	cmd.Flags().BoolVarP(&verify, "verify", "v", false, "Print the row count of every table after the import")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import TABLE FILE",
		Short: "Bulk load one CSV file into a table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(r *runner) error {
				return r.importFile(args[0], args[1])
			})
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info TABLE",
		Short: "Print every row of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(r *runner) error {
				return r.info(args[0])
			})
		},
	}
}

func newUnreturnedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unreturned",
		Short: "List books that have not been returned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(r *runner) error {
				return r.unreturned()
			})
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search TABLE COLUMN KEYWORD",
		Short: "Find rows whose column contains the keyword",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(r *runner) error {
				return r.search(args[0], args[1], args[2])
			})
		},
	}
}

func newFrequencyCmd(a *app) *cobra.Command {
	var (
		limit int
		asc   bool
	)
	cmd := &cobra.Command{
		Use:   "frequency",
		Short: "Count loans per book category and student major",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(r *runner) error {
				return r.frequency(!asc, limit)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of groups to print (0 prints all)")
	cmd.Flags().BoolVar(&asc, "asc", false, "Sort by ascending frequency")
	return cmd
}

func newRecentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recent N",
		Short: "List the N most recent loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid count %q: %w", args[0], err)
			}
			return a.withSession(func(r *runner) error {
				return r.recent(count)
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	var asc bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Average number of loans per student, by major",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(func(r *runner) error {
				return r.stats(!asc)
			})
		},
	}
	cmd.Flags().BoolVar(&asc, "asc", false, "Sort by ascending average")
	return cmd
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return RECORD_ID DATE",
		Short: "Record the return of a loan (DATE as YYYY-MM-DD)",
		Long: `Record the return of a loan.

A return more than 30 days after the borrow date fines the student 10.00.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record id %q: %w", args[0], err)
			}
			returned, err := time.Parse(dateLayout, args[1])
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", args[1], err)
			}
			return a.withSession(func(r *runner) error {
				return r.recordReturn(recordID, returned)
			})
		},
	}
}

func newFinesCmd(a *app) *cobra.Command {
	var student int64
	cmd := &cobra.Command{
		Use:   "fines",
		Short: "List fines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var studentID *int64
			if cmd.Flags().Changed("student") {
				studentID = &student
			}
			return a.withSession(func(r *runner) error {
				return r.fines(studentID)
			})
		},
	}
	cmd.Flags().Int64Var(&student, "student", 0, "Only list fines of this student id")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var (
		dropTables bool
		noRecreate bool
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the database, then recreate the tables",
		Long: `Drop and recreate the database, then recreate the tables.

With --drop-tables only the triggers and tables of the database are dropped.
MySQL commits each DROP on its own, so a failure part way through leaves the
tables dropped so far gone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy := models.ResetDropDatabase
			if dropTables {
				strategy = models.ResetDropTables
			}
			return a.withSession(func(r *runner) error {
				return r.reset(strategy, !noRecreate)
			})
		},
	}
	cmd.Flags().BoolVar(&dropTables, "drop-tables", false, "Drop the tables and triggers one by one instead of the whole database")
	cmd.Flags().BoolVar(&noRecreate, "no-recreate", false, "Leave the schema empty after the reset")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		out   string
		seed  int64
		today string
		opts  = generator.DefaultOptions()
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write sample books, students and loan CSV files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = int64(utils.GetEnvInt("LIBRARY_SAMPLE_SEED", 1))
			}

			now := time.Now()
			if today != "" {
				var err error
				if now, err = time.Parse(dateLayout, today); err != nil {
					return fmt.Errorf("invalid date %q: %w", today, err)
				}
			}

			dg := generator.NewDataGenerator(seed, now, a.logger)
			paths, err := dg.WriteDataset(dataDir(out), opts)
			if err != nil {
				return err
			}
			for _, table := range []string{schema.BooksTable, schema.StudentsTable, schema.LoanTable} {
				fmt.Fprintln(a.out, paths[table])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default: $LIBRARY_DATA_DIR or ./data)")
	cmd.Flags().IntVar(&opts.Books, "books", opts.Books, "Number of books")
	cmd.Flags().IntVar(&opts.Students, "students", opts.Students, "Number of students")
	cmd.Flags().IntVar(&opts.Loans, "loans", opts.Loans, "Number of loans")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed (default: $LIBRARY_SAMPLE_SEED or 1)")
	cmd.Flags().StringVar(&today, "today", "", "Date generated loans end at, as YYYY-MM-DD (default: today)")
	return cmd
}
