package logger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// AccessFields is the W3C field list written in the access log header.
const AccessFields = "date time c-ip cs-uri sc-status x-meta sc-bytes sc-time-taken"

// MaskedAddr is written in place of the client address when masking is on.
const MaskedAddr = "-"

// AccessRecord is one completed (or rejected) request.
type AccessRecord struct {
	Received   time.Time
	RemoteAddr string
	// URL is the validated URL, or the sanitized raw request line when
	// validation failed. Empty when nothing usable was read.
	URL     string
	Status  int
	Meta    string
	Bytes   int64
	Elapsed time.Duration
}

// String renders the record in the access log line format:
//
//	date time remote-ip url status "meta" bytes-sent elapsed-ms
func (r AccessRecord) String() string {
	received := r.Received.UTC()
	return strings.Join([]string{
		received.Format("2006-01-02"),
		received.Format("15:04:05"),
		orDash(r.RemoteAddr),
		orDash(SanitizeField(r.URL)),
		strconv.Itoa(r.Status),
		`"` + strings.ReplaceAll(sanitizeText(r.Meta), `"`, `'`) + `"`,
		strconv.FormatInt(r.Bytes, 10),
		strconv.FormatInt(r.Elapsed.Milliseconds(), 10),
	}, " ")
}

// AccessLog is the process-wide access log sink. Writes from concurrent
// connection goroutines are serialized and each line is flushed so that
// tail followers see it immediately.
//
// A nil *AccessLog is valid and discards everything.
type AccessLog struct {
	mu            sync.Mutex
	w             *bufio.Writer
	closer        io.Closer
	headerWritten bool
	now           func() time.Time
}

// OpenAccessLog opens the access log at path in append mode.
// An empty path disables access logging and returns a nil *AccessLog;
// "-" writes to stdout.
func OpenAccessLog(path string) (*AccessLog, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		return NewAccessLog(os.Stdout), nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open access log %s: %w", path, err)
	}
	a := NewAccessLog(f)
	a.closer = f
	return a, nil
}

// NewAccessLog creates an access log writing to w.
func NewAccessLog(w io.Writer) *AccessLog {
	return &AccessLog{
		w:   bufio.NewWriter(w),
		now: time.Now,
	}
}

// Log appends one record.
func (a *AccessLog) Log(rec AccessRecord) error {
	if a == nil {
		return nil
	}
	return a.writeLine(rec.String())
}

// LogError appends a connection-level failure line.
func (a *AccessLog) LogError(remoteAddr, what string, err error) error {
	if a == nil {
		return nil
	}
	now := a.now().UTC()
	line := now.Format("2006-01-02") + " " + now.Format("15:04:05") + " " +
		orDash(remoteAddr) + " ERROR: " + sanitizeText(what)
	if err != nil {
		line += " " + sanitizeText(err.Error())
	}
	return a.writeLine(line)
}

// Close flushes pending output and closes the underlying file, if any.
func (a *AccessLog) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.w.Flush()
	if a.closer != nil {
		if cerr := a.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
		a.closer = nil
	}
	return err
}

func (a *AccessLog) writeLine(line string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.headerWritten {
		a.headerWritten = true
		fmt.Fprintf(a.w, "#Version: 1.0\n#Date: %s\n#Fields: %s\n",
			a.now().UTC().Format("02-Jan-2006 15:04:05"), AccessFields)
	}
	a.w.WriteString(line)
	a.w.WriteByte('\n')
	return a.w.Flush()
}

// SanitizeField makes untrusted text (such as a raw request line) safe to
// embed as one space-delimited log field: invalid UTF-8 and control
// characters become '?', spaces become %20.
func SanitizeField(s string) string {
	return strings.ReplaceAll(sanitizeText(s), " ", "%20")
}

func sanitizeText(s string) string {
	s = strings.ToValidUTF8(s, "?")
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '?'
		}
		return r
	}, s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
