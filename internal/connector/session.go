package connector

import (
	"database/sql"
	"fmt"
	"net"
	"os"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// Querier is the subset of *sql.DB and *sql.Tx used to run statements
type Querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Session holds the live connection to the library database
type Session struct {
	Host     string
	User     string
	Password string
	Database string
	Port     string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewSession creates a new, not yet connected, session
func NewSession(host, user, password, database, port string, logger *logrus.Logger) *Session {
	if host == "" {
		host = getEnvOrDefault("MYSQL_HOST", "localhost")
	}
	if user == "" {
		user = getEnvOrDefault("MYSQL_USER", "root")
	}
	if password == "" {
		password = getEnvOrDefault("MYSQL_PASSWORD", "")
	}
	if database == "" {
		database = getEnvOrDefault("MYSQL_DATABASE", "")
	}
	if port == "" {
		port = getEnvOrDefault("MYSQL_PORT", "3306")
	}

	return &Session{
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
		Port:     port,
		Logger:   logger,
	}
}

// NewSessionFromDB wraps an already opened database handle
func NewSessionFromDB(db *sql.DB, database string, logger *logrus.Logger) *Session {
	return &Session{
		Database: database,
		DB:       db,
		Logger:   logger,
	}
}

// DSN returns the driver connection string for this session
func (s *Session) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = s.User
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, s.Port)
	cfg.DBName = s.Database
	cfg.ParseTime = true
	// Strict mode turns bad CSV values into errors instead of silent zeroes
	cfg.Params = map[string]string{"sql_mode": "'TRADITIONAL'"}
	return cfg.FormatDSN()
}

// Connect establishes the connection to the MySQL database.
// The pool is capped at one connection so session variables such as
// FOREIGN_KEY_CHECKS apply to every statement of the session.
func (s *Session) Connect() error {
	if s.Database == "" {
		return fmt.Errorf("database name must be provided either as an argument or as MYSQL_DATABASE environment variable")
	}

	db, err := sql.Open("mysql", s.DSN())
	if err != nil {
		s.Logger.Errorf("Error connecting to MySQL database: %v", err)
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Test the connection
	if err := db.Ping(); err != nil {
		s.Logger.Errorf("Error pinging MySQL database: %v", err)
		db.Close()
		return fmt.Errorf("ping database %s: %w", s.Database, err)
	}

	s.DB = db
	s.Logger.Infof("Connected to MySQL database: %s", s.Database)
	return nil
}

// Disconnect closes the database connection
func (s *Session) Disconnect() {
	if s.DB != nil {
		err := s.DB.Close()
		if err != nil {
			s.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			s.Logger.Info("MySQL connection closed")
		}
		s.DB = nil
	}
}

func (s *Session) ensureConnected() error {
	if s.DB == nil {
		return s.Connect()
	}
	return nil
}

// ExecuteQuery executes a SQL query and returns the results keyed by column
func (s *Session) ExecuteQuery(query string, params ...interface{}) ([]map[string]interface{}, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	rs, err := QueryResultSet(s.DB, query, params...)
	if err != nil {
		s.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}

	var results []map[string]interface{}
	for _, values := range rs.Rows {
		row := make(map[string]interface{}, len(rs.Columns))
		for i, col := range rs.Columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, nil
}

// QueryResultSet executes a SQL query and returns its rows in column order
func (s *Session) QueryResultSet(query string, params ...interface{}) (*ResultSet, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	rs, err := QueryResultSet(s.DB, query, params...)
	if err != nil {
		s.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}
	return rs, nil
}

// ExecuteStatement executes a SQL statement and returns the number of affected rows
func (s *Session) ExecuteStatement(query string, params ...interface{}) (int64, error) {
	if err := s.ensureConnected(); err != nil {
		return 0, err
	}

	result, err := s.DB.Exec(query, params...)
	if err != nil {
		s.Logger.Errorf("Error executing statement: %v", err)
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.Logger.Errorf("Error getting affected rows: %v", err)
		return 0, err
	}

	return affected, nil
}

// WithTransaction runs fn inside a transaction. The transaction is committed
// when fn returns nil and rolled back otherwise, including when fn panics.
func (s *Session) WithTransaction(fn func(tx *sql.Tx) error) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}

	tx, err := s.DB.Begin()
	if err != nil {
		s.Logger.Errorf("Error starting transaction: %v", err)
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.Logger.Errorf("Error rolling back transaction: %v", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.Logger.Errorf("Error rolling back transaction: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		s.Logger.Errorf("Error committing transaction: %v", err)
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
