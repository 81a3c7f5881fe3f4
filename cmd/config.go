package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
	m "gooze.dev/pkg/bytemut/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "bytemut"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName        = "output"
	operatorsFlagName     = "operators"
	runParallelFlagName   = "parallel"
	testsFlagName         = "tests"
	mutantTimeoutFlagName = "mutant-timeout"
	workDirFlagName       = "work-dir"
	runnerFlagName        = "runner"
	commandFlagName       = "command"
	languageFlagName      = "language"
	mutantFlagName        = "mutant"
	paramFlagName         = "param"
	verboseFlagName       = "verbose"
	logFlagName           = "log"

	operatorsConfigKey   = "run.operators"
	runParallelConfigKey = "run.parallel"
	testsConfigKey       = "run.tests"
	mutantTimeoutKey     = "run.mutant_timeout"
	workDirKey           = "run.work_dir"
	runnerKey            = "run.runner"
	commandKey           = "run.command"
	maxStepsKey          = "run.max_steps"
	paramsKey            = "run.params"
	diffLanguageKey      = "diff.language"

	defaultMutantTimeout = time.Minute * 2

	defaultReportsDir  = ".bytemut-reports"
	defaultWorkDir     = ".bytemut-work"
	defaultRunParallel = 1
	defaultRunner      = runnerVM
	defaultLanguage    = string(m.LanguageIL)

	runnerVM      = "vm"
	runnerCommand = "command"

	envPrefix = "BYTEMUT"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".bytemut.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(operatorsConfigKey, []string{})
	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(testsConfigKey, "")
	viper.SetDefault(mutantTimeoutKey, int64(defaultMutantTimeout.Seconds()))
	viper.SetDefault(workDirKey, defaultWorkDir)
	viper.SetDefault(runnerKey, defaultRunner)
	viper.SetDefault(commandKey, []string{})
	viper.SetDefault(maxStepsKey, 0)
	viper.SetDefault(paramsKey, map[string]string{})
	viper.SetDefault(diffLanguageKey, defaultLanguage)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// parseLanguage validates a diff language name.
func parseLanguage(value string) (m.CodeLanguage, error) {
	switch lang := m.CodeLanguage(strings.ToLower(strings.TrimSpace(value))); lang {
	case "":
		return m.LanguageIL, nil
	case m.LanguageIL, m.LanguageExpr:
		return lang, nil
	default:
		return "", fmt.Errorf("unknown code language %q (want %s or %s)", value, m.LanguageIL, m.LanguageExpr)
	}
}

// mutantTimeout reads run.mutant_timeout in seconds; zero or less disables it.
func mutantTimeout() time.Duration {
	seconds := viper.GetInt64(mutantTimeoutKey)
	if seconds <= 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose || viper.GetBool(logVerboseKey) {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
