package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLogDir is where session transcripts are written
const DefaultLogDir = "research_logs"

// Setup installs the console logger used across the process
func Setup(verbose bool, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

// SessionLogger writes the full transcript of a single research session to a file
type SessionLogger struct {
	sessionID string
	query     string
	logFile   *os.File
	mutex     sync.Mutex
	startTime time.Time
}

// StartSessionLogging creates the transcript file for a new session
func StartSessionLogging(dir, sessionID, query string) (*SessionLogger, error) {
	if dir == "" {
		dir = DefaultLogDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(dir, fmt.Sprintf("session_%s_%s.log", sessionID, timestamp))

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &SessionLogger{
		sessionID: sessionID,
		query:     query,
		logFile:   logFile,
		startTime: time.Now(),
	}
	logger.writeHeader()
	return logger, nil
}

// Path returns the transcript file path
func (s *SessionLogger) Path() string {
	if s == nil || s.logFile == nil {
		return ""
	}
	return s.logFile.Name()
}

// Log writes a message to the session log
func (s *SessionLogger) Log(format string, args ...interface{}) {
	if s == nil {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.write(fmt.Sprintf(format, args...))
}

func (s *SessionLogger) write(message string) {
	if s.logFile == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(s.startTime)
	fmt.Fprintf(s.logFile, "[%s] [+%v] %s\n", timestamp, elapsed.Round(time.Millisecond), message)
}

// LogSection writes a section header to the log
func (s *SessionLogger) LogSection(title string) {
	if s == nil {
		return
	}

	separator := strings.Repeat("=", 80)
	s.Log("%s", separator)
	s.Log("= %s", title)
	s.Log("%s", separator)
}

// LogBlock writes a labelled multi-line payload
func (s *SessionLogger) LogBlock(label, body string) {
	if s == nil {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.write(fmt.Sprintf("--- %s START (%d chars) ---", label, len(body)))
	if s.logFile != nil {
		s.logFile.WriteString(body + "\n")
	}
	s.write(fmt.Sprintf("--- %s END ---", label))
}

// LogRequest records a model call
func (s *SessionLogger) LogRequest(round int, model string, turns int, toolsEnabled bool) {
	s.LogSection(fmt.Sprintf("MODEL REQUEST - Round %d", round))
	s.Log("Model: %s", model)
	s.Log("Turns sent: %d, tools enabled: %v", turns, toolsEnabled)
}

// LogToolCall records one tool execution and its outcome
func (s *SessionLogger) LogToolCall(id, name, input, output string, isError bool) {
	s.LogSection(fmt.Sprintf("TOOL CALL %s (%s)", id, name))
	s.LogBlock("INPUT", input)
	if isError {
		s.Log("Tool returned an error")
	}
	s.LogBlock("OUTPUT", output)
}

// LogError logs an error
func (s *SessionLogger) LogError(context string, err error) {
	s.Log("ERROR in %s: %v", context, err)
}

// Close finalizes the log file
func (s *SessionLogger) Close() {
	if s == nil {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.logFile != nil {
		s.write(fmt.Sprintf("Session completed. Total duration: %v", time.Since(s.startTime).Round(time.Millisecond)))
		s.logFile.Sync()
		s.logFile.Close()
		s.logFile = nil
	}
}

func (s *SessionLogger) writeHeader() {
	header := fmt.Sprintf(`DEEP RESEARCH SESSION LOG
Session ID: %s
Query: %s
Start Time: %s
Log Format: [HH:MM:SS.mmm] [+duration] message

`, s.sessionID, s.query, s.startTime.Format("2006-01-02 15:04:05"))

	s.logFile.WriteString(header)
	s.logFile.Sync()
}
