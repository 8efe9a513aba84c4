package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jeremyhahn/go-pki-tool/pkg/logging"
	"github.com/jeremyhahn/go-pki-tool/pkg/serializer"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

type Operation string

const (
	OperationCSR     Operation = "csr"
	OperationPKCS12  Operation = "pkcs12"
	OperationExtract Operation = "extract"
	OperationMatch   Operation = "match"

	DefaultFile = "history.jsonl"
)

var (
	ErrInvalidOperation = errors.New("history: invalid operation")
	ErrCorruptLog       = errors.New("history: corrupt log entry")
)

// Entry records a single operation performed by the CLI or web
// service. Entries carry descriptive metadata only; certificates,
// keys and passwords are never written to the log.
type Entry struct {
	ID        string    `yaml:"id" json:"id"`
	Ticket    uint64    `yaml:"ticket" json:"ticket"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Operation Operation `yaml:"operation" json:"operation"`
	Subject   string    `yaml:"subject,omitempty" json:"subject,omitempty"`
	Detail    string    `yaml:"detail,omitempty" json:"detail,omitempty"`
	Success   bool      `yaml:"success" json:"success"`
}

type Params struct {
	Fs     afero.Fs
	Logger *logging.Logger
	File   string
}

// Log is an append-only JSON lines history file. Appends are
// serialized and assigned monotonically increasing ticket numbers.
type Log struct {
	mu     sync.Mutex
	fs     afero.Fs
	logger *logging.Logger
	file   string
	ticket uint64
}

// Opens the history log, creating its parent directory if needed.
// The ticket counter resumes from the last entry in an existing log.
func NewLog(params *Params) (*Log, error) {
	if params.Fs == nil {
		params.Fs = afero.NewOsFs()
	}
	if params.Logger == nil {
		params.Logger = logging.NewDiscardLogger()
	}
	if params.File == "" {
		params.File = DefaultFile
	}
	if err := params.Fs.MkdirAll(filepath.Dir(params.File), os.ModePerm); err != nil {
		params.Logger.Error(err)
		return nil, err
	}
	log := &Log{
		fs:     params.Fs,
		logger: params.Logger,
		file:   params.File,
	}
	entries, err := log.List()
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		log.ticket = entries[len(entries)-1].Ticket
	}
	return log, nil
}

// Appends a new entry to the log and returns it
func (l *Log) Append(op Operation, subject, detail string, success bool) (*Entry, error) {

	switch op {
	case OperationCSR, OperationPKCS12, OperationExtract, OperationMatch:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidOperation, op)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := &Entry{
		ID:        ksuid.New().String(),
		Ticket:    l.ticket + 1,
		Timestamp: time.Now().UTC(),
		Operation: op,
		Subject:   subject,
		Detail:    detail,
		Success:   success,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	f, err := l.fs.OpenFile(l.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.logger.Error(err, slog.String("file", l.file))
		return nil, err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		l.logger.Error(err, slog.String("file", l.file))
		return nil, err
	}

	l.ticket = entry.Ticket
	l.logger.Debug("history: appended entry",
		slog.Uint64("ticket", entry.Ticket),
		slog.String("operation", string(op)))

	return entry, nil
}

// Returns all entries in the order they were appended. A missing
// log file returns an empty list.
func (l *Log) List() ([]Entry, error) {
	data, err := afero.ReadFile(l.fs, l.file)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	entries := make([]Entry, 0)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("%w: line %d: %s", ErrCorruptLog, line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Serializes every entry in the log using the provided serializer
func (l *Log) Export(s serializer.Serializer[[]Entry]) ([]byte, error) {
	entries, err := l.List()
	if err != nil {
		return nil, err
	}
	return s.Serialize(entries)
}
