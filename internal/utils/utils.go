package utils

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Log level sources, most specific first
var logLevelKeys = []string{"LIBRARY_LOG_LEVEL", "MYSQL_LOG_LEVEL"}

// requiredEnv must be set after .env loading unless given as flags
var requiredEnv = []string{"MYSQL_USER", "MYSQL_DATABASE"}

var secretEnv = map[string]bool{"MYSQL_PASSWORD": true}

// ResolveLogLevel picks the level from explicit, then the environment.
// Unknown names fall back to info.
func ResolveLogLevel(explicit string) logrus.Level {
	name := explicit
	for _, key := range logLevelKeys {
		if name != "" {
			break
		}
		name = os.Getenv(key)
	}

	level, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// SetupLogging returns a text logger on stderr, leaving stdout to reports
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(ResolveLogLevel(logLevel))

	logger.Debugf("Log level %s", logger.Level)
	return logger
}

// LoadEnvironmentVariables merges envFile into the process environment and
// reports whether the required connection settings are now present.
// Variables already set in the environment are not overridden.
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	switch _, err := os.Stat(envFile); {
	case err == nil:
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Could not read %s: %v", envFile, err)
		} else {
			logger.Infof("Loaded settings from %s", envFile)
		}
	case os.IsNotExist(err):
		if _, sampleErr := os.Stat(envFile + ".sample"); sampleErr == nil {
			logger.Infof("%s is missing; copy %s.sample to get started", envFile, envFile)
		} else {
			logger.Debugf("%s is missing, using the process environment", envFile)
		}
	default:
		logger.Warningf("Could not stat %s: %v", envFile, err)
	}

	var missing []string
	for _, key := range requiredEnv {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		logger.Warningf("%s not set; pass them as flags, environment variables or in %s",
			strings.Join(missing, ", "), envFile)
		return false
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logSettings(logger)
	}
	return true
}

// logSettings prints the MYSQL_ and LIBRARY_ variables in name order
func logSettings(logger *logrus.Logger) {
	settings := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !(strings.HasPrefix(key, "MYSQL_") || strings.HasPrefix(key, "LIBRARY_")) {
			continue
		}
		if secretEnv[key] {
			value = "********"
		}
		settings[key] = value
	}

	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		logger.Debugf("%s=%s", key, settings[key])
	}
}

// GetEnvInt reads an integer variable, returning def when unset or malformed
func GetEnvInt(varName string, def int) int {
	n, err := strconv.Atoi(os.Getenv(varName))
	if err != nil {
		return def
	}
	return n
}

// CheckConnectionParams returns every problem with the connection settings
// joined into one error. An empty password is allowed.
func CheckConnectionParams(host, user, database, port string) error {
	var errs []error
	for _, field := range []struct{ name, value string }{
		{"host", host},
		{"user", user},
		{"database", database},
	} {
		if field.value == "" {
			errs = append(errs, fmt.Errorf("database %s is required", field.name))
		}
	}

	if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", port))
	}
	return errors.Join(errs...)
}
