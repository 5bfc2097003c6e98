package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/mysql-library-manager/internal/connector"
	"github.com/vitebski/mysql-library-manager/internal/schema"
	"github.com/vitebski/mysql-library-manager/internal/utils"
	"github.com/vitebski/mysql-library-manager/pkg/models"
)

// app carries the flags shared by every command
type app struct {
	host       string
	user       string
	password   string
	database   string
	port       string
	envFile    string
	logLevel   string
	schemaFile string

	logger *logrus.Logger
	out    io.Writer
}

func main() {
	a := &app{out: os.Stdout}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "librarian",
		Short: "Manage a small MySQL library database",
		Long: `Library Manager

Creates and resets the library schema (books, students, loans, fines),
bulk loads CSV files into it and answers reporting queries about
borrowing activity.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			a.logger = utils.SetupLogging(a.logLevel)

			// Load environment variables
			utils.LoadEnvironmentVariables(a.envFile, a.logger)
		},
	}

	// Define flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.host, "host", "H", "", "MySQL host (default: localhost)")
	flags.StringVarP(&a.user, "user", "u", "", "MySQL user (default: root)")
	flags.StringVarP(&a.password, "password", "p", "", "MySQL password")
	flags.StringVarP(&a.database, "database", "d", "", "MySQL database name")
	flags.StringVarP(&a.port, "port", "P", "", "MySQL port (default: 3306)")
	flags.StringVarP(&a.envFile, "env-file", "e", ".env", "Path to .env file")
	flags.StringVarP(&a.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.schemaFile, "schema-file", "", "JSON file with table definitions (default: built-in library schema)")

	rootCmd.AddCommand(
		newSetupCmd(a),
		newImportCmd(a),
		newInfoCmd(a),
		newUnreturnedCmd(a),
		newSearchCmd(a),
		newFrequencyCmd(a),
		newRecentCmd(a),
		newStatsCmd(a),
		newReturnCmd(a),
		newFinesCmd(a),
		newResetCmd(a),
		newGenerateCmd(a),
		newShellCmd(a),
	)
	return rootCmd
}

// definitions loads the table definitions from --schema-file, then
// LIBRARY_SCHEMA_FILE, falling back to the built-in schema
func (a *app) definitions() ([]models.TableDefinition, error) {
	path := a.schemaFile
	if path == "" {
		path = os.Getenv("LIBRARY_SCHEMA_FILE")
	}
	defs, err := schema.LoadDefinitions(path)
	if err != nil {
		return nil, fmt.Errorf("load schema definitions: %w", err)
	}
	return defs, nil
}

// openSession validates the connection parameters and connects. Callers
// must defer Disconnect on the returned session.
func (a *app) openSession() (*connector.Session, error) {
	session := connector.NewSession(a.host, a.user, a.password, a.database, a.port, a.logger)

	if err := utils.CheckConnectionParams(session.Host, session.User, session.Database, session.Port); err != nil {
		return nil, fmt.Errorf("invalid connection parameters: %w", err)
	}
	if session.Password == "" {
		a.logger.Warning("Database password is empty")
	}

	if err := session.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return session, nil
}

// withSession runs fn against a connected session and the active table
// definitions, closing the session afterwards
func (a *app) withSession(fn func(r *runner) error) error {
	defs, err := a.definitions()
	if err != nil {
		return err
	}

	session, err := a.openSession()
	if err != nil {
		return err
	}
	defer session.Disconnect()

	return fn(newRunner(session, defs, a.logger, a.out))
}
