package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	appDirName     = ".form-trainer"
	defaultLogName = "form-trainer.log"
)

type SetupParams struct {
	LogFileName string
	MaxSizeMB   int
	MaxBackups  int
	Compress    bool
	// Optional extra sinks
	UILines chan<- string
	Stderr  bool
}

// DefaultLogFile is ~/.form-trainer/form-trainer.log
func DefaultLogFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, appDirName, defaultLogName), nil
}

// Setup builds the application logger. The returned closer releases the log file.
func Setup(params SetupParams) (*log.Logger, io.Closer, error) {
	fileName := params.LogFileName
	if fileName == "" {
		var err error
		if fileName, err = DefaultLogFile(); err != nil {
			return nil, nil, err
		}
	}
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}
	if err := os.MkdirAll(filepath.Dir(fileName), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	maxSize := params.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	lumberJackLogger := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    maxSize, // megabytes
		MaxBackups: params.MaxBackups,
		LocalTime:  true,
		Compress:   params.Compress,
	}

	writers := []io.Writer{lumberJackLogger}
	if params.UILines != nil {
		writers = append(writers, NewChannelWriter(params.UILines))
	}
	if params.Stderr {
		writers = append(writers, os.Stderr)
	}

	logger := log.New(NewCombinedWriter(writers...), "", log.Ltime)
	logger.Printf("Logging to %s", fileName)
	return logger, lumberJackLogger, nil
}

// Discard returns a logger that writes nowhere, for tests
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
