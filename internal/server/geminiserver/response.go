package geminiserver

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// MaxMetaSize is the longest meta string sent on a status line.
const MaxMetaSize = 1024

var (
	// ErrStatusWritten is returned when a second status line is attempted.
	ErrStatusWritten = errors.New("geminiserver: status line already written")

	// ErrNoStatus is returned when body bytes are written before a status line.
	ErrNoStatus = errors.New("geminiserver: body written before status line")
)

// Response is the output side of one connection.
//
// Exactly one status line may be written; the status helpers are the only
// way to set Status and Meta. Body writes are accepted only after the
// status line. Writes that fail because the client has gone away are
// swallowed: the request is over from the server's point of view.
//
// A Response is owned by a single goroutine and is not safe for concurrent
// use.
type Response struct {
	w          *bufio.Writer
	status     Status
	meta       string
	written    int64
	clientGone bool
}

// NewResponse returns a Response writing to w.
func NewResponse(w io.Writer) *Response {
	return &Response{w: bufio.NewWriter(w)}
}

// writeDeadliner is the part of net.Conn that deadlineWriter needs.
type writeDeadliner interface {
	io.Writer
	SetWriteDeadline(t time.Time) error
}

// deadlineWriter renews the write deadline before every write, so the
// timeout bounds a stalled client rather than the length of the body.
type deadlineWriter struct {
	conn    writeDeadliner
	timeout time.Duration
}

func (d *deadlineWriter) Write(p []byte) (int, error) {
	if err := d.conn.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.conn.Write(p)
}

// newConnResponse returns a Response on conn where each write to the
// connection must make progress within timeout.
func newConnResponse(conn writeDeadliner, timeout time.Duration) *Response {
	return NewResponse(&deadlineWriter{conn: conn, timeout: timeout})
}

// Status returns the status code, or 0 if no status line has been written.
func (r *Response) Status() Status { return r.status }

// Meta returns the meta string of the status line.
func (r *Response) Meta() string { return r.meta }

// Written returns the number of bytes emitted so far, status line included.
func (r *Response) Written() int64 { return r.written }

// InFlight reports whether anything has been sent to the client yet.
func (r *Response) InFlight() bool { return r.written > 0 }

// Input asks the client for a line of input (10).
func (r *Response) Input(prompt string) error {
	return r.WriteStatus(StatusInput, prompt)
}

// SensitiveInput asks for input that clients should not echo (11).
func (r *Response) SensitiveInput(prompt string) error {
	return r.WriteStatus(StatusSensitiveInput, prompt)
}

// Success starts a successful response with the given MIME type (20).
// An empty mimeType means text/gemini.
func (r *Response) Success(mimeType string) error {
	if mimeType == "" {
		mimeType = "text/gemini"
	}
	return r.WriteStatus(StatusSuccess, mimeType)
}

// Redirect sends a temporary redirect (30).
func (r *Response) Redirect(url string) error {
	return r.WriteStatus(StatusRedirectTemporary, url)
}

// RedirectPermanent sends a permanent redirect (31).
func (r *Response) RedirectPermanent(url string) error {
	return r.WriteStatus(StatusRedirectPermanent, url)
}

// Error sends a temporary failure (40).
func (r *Response) Error(msg string) error {
	return r.WriteStatus(StatusTemporaryFailure, msg)
}

// SlowDown tells the client to wait before retrying (44). The meta is the
// wait in whole seconds, rounded up.
func (r *Response) SlowDown(wait time.Duration) error {
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return r.WriteStatus(StatusSlowDown, strconv.Itoa(secs))
}

// NotFound reports that nothing exists for the URL (51).
func (r *Response) NotFound(msg string) error {
	return r.WriteStatus(StatusNotFound, msg)
}

// ProxyRefused refuses a request for another protocol or host (53).
func (r *Response) ProxyRefused(what string) error {
	return r.WriteStatus(StatusProxyRequestRefused, "Will not proxy requests for other "+what)
}

// BadRequest rejects a malformed request (59).
func (r *Response) BadRequest(msg string) error {
	return r.WriteStatus(StatusBadRequest, msg)
}

// WriteStatus writes "<code> <meta>\r\n". CR and LF in meta are replaced
// by spaces and meta is truncated to MaxMetaSize bytes.
func (r *Response) WriteStatus(code Status, meta string) error {
	if r.status != 0 {
		return ErrStatusWritten
	}
	meta = sanitizeMeta(meta)
	r.status = code
	r.meta = meta
	return r.write([]byte(code.String() + " " + meta + "\r\n"))
}

// Write appends body bytes. It implements io.Writer.
func (r *Response) Write(p []byte) (int, error) {
	if r.status == 0 {
		return 0, ErrNoStatus
	}
	if err := r.write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteString appends a body string.
func (r *Response) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

// WriteLine appends s followed by a newline.
func (r *Response) WriteLine(s string) error {
	_, err := r.WriteString(s + "\n")
	return err
}

// ReadFrom streams src into the body. It implements io.ReaderFrom.
// Only read errors from src are returned; once the client disconnects the
// rest of src is skipped.
func (r *Response) ReadFrom(src io.Reader) (int64, error) {
	if r.status == 0 {
		return 0, ErrNoStatus
	}

	buf := make([]byte, 32*1024)
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if werr := r.write(buf[:n]); werr != nil {
				return total, werr
			}
			if r.clientGone {
				return total, nil
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Flush sends buffered bytes to the connection.
func (r *Response) Flush() error {
	if r.clientGone {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		if isDisconnect(err) {
			r.clientGone = true
			return nil
		}
		return err
	}
	return nil
}

func (r *Response) write(p []byte) error {
	r.written += int64(len(p))
	if r.clientGone {
		return nil
	}
	if _, err := r.w.Write(p); err != nil {
		if isDisconnect(err) {
			r.clientGone = true
			return nil
		}
		return err
	}
	return nil
}

// isDisconnect reports write errors caused by the peer going away.
func isDisconnect(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}

func sanitizeMeta(meta string) string {
	meta = strings.NewReplacer("\r", " ", "\n", " ").Replace(meta)
	if len(meta) > MaxMetaSize {
		meta = strings.ToValidUTF8(meta[:MaxMetaSize], "")
	}
	return meta
}
