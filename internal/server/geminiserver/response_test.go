package geminiserver

import (
	"bytes"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestResponse_StatusHelpers(t *testing.T) {
	tests := []struct {
		name  string
		write func(*Response) error
		want  string
	}{
		{"input", func(r *Response) error { return r.Input("Name?") }, "10 Name?\r\n"},
		{"sensitive input", func(r *Response) error { return r.SensitiveInput("Password") }, "11 Password\r\n"},
		{"success", func(r *Response) error { return r.Success("text/plain") }, "20 text/plain\r\n"},
		{"success default mime", func(r *Response) error { return r.Success("") }, "20 text/gemini\r\n"},
		{"redirect", func(r *Response) error { return r.Redirect("/new") }, "30 /new\r\n"},
		{"permanent redirect", func(r *Response) error { return r.RedirectPermanent("/new") }, "31 /new\r\n"},
		{"error", func(r *Response) error { return r.Error("oops") }, "40 oops\r\n"},
		{"slow down", func(r *Response) error { return r.SlowDown(1500 * time.Millisecond) }, "44 2\r\n"},
		{"slow down floor", func(r *Response) error { return r.SlowDown(0) }, "44 1\r\n"},
		{"not found", func(r *Response) error { return r.NotFound("nope") }, "51 nope\r\n"},
		{"proxy refused", func(r *Response) error { return r.ProxyRefused("protocols") }, "53 Will not proxy requests for other protocols\r\n"},
		{"bad request", func(r *Response) error { return r.BadRequest("bad") }, "59 bad\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := NewResponse(&buf)
			if err := tt.write(r); err != nil {
				t.Fatalf("write error: %v", err)
			}
			if err := r.Flush(); err != nil {
				t.Fatalf("Flush() error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
			if r.Written() != int64(len(tt.want)) {
				t.Errorf("Written() = %d, want %d", r.Written(), len(tt.want))
			}
		})
	}
}

func TestResponse_SingleStatusLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewResponse(&buf)

	if err := r.Success("text/gemini"); err != nil {
		t.Fatal(err)
	}
	if err := r.NotFound("again"); !errors.Is(err, ErrStatusWritten) {
		t.Errorf("second status error = %v, want ErrStatusWritten", err)
	}
	if r.Status() != StatusSuccess || r.Meta() != "text/gemini" {
		t.Errorf("status/meta changed: %d %q", r.Status(), r.Meta())
	}
}

func TestResponse_BodyBeforeStatus(t *testing.T) {
	var buf bytes.Buffer
	r := NewResponse(&buf)

	if _, err := r.WriteString("body"); !errors.Is(err, ErrNoStatus) {
		t.Errorf("WriteString() error = %v, want ErrNoStatus", err)
	}
	if _, err := r.ReadFrom(strings.NewReader("body")); !errors.Is(err, ErrNoStatus) {
		t.Errorf("ReadFrom() error = %v, want ErrNoStatus", err)
	}
	if r.InFlight() {
		t.Error("nothing should be in flight")
	}
}

func TestResponse_Body(t *testing.T) {
	var buf bytes.Buffer
	r := NewResponse(&buf)

	_ = r.Success("text/gemini")
	_ = r.WriteLine("# Title")
	n, err := r.ReadFrom(strings.NewReader(strings.Repeat("x", 100000)))
	if err != nil || n != 100000 {
		t.Fatalf("ReadFrom() = %d, %v", n, err)
	}
	_ = r.Flush()

	want := "20 text/gemini\r\n# Title\n" + strings.Repeat("x", 100000)
	if buf.String() != want {
		t.Errorf("body mismatch (len %d, want %d)", buf.Len(), len(want))
	}
	if r.Written() != int64(len(want)) {
		t.Errorf("Written() = %d, want %d", r.Written(), len(want))
	}
}

func TestResponse_MetaSanitized(t *testing.T) {
	var buf bytes.Buffer
	r := NewResponse(&buf)

	_ = r.Error("line one\r\n20 text/gemini")
	_ = r.Flush()

	if got := buf.String(); got != "40 line one  20 text/gemini\r\n" {
		t.Errorf("got %q", got)
	}

	long := NewResponse(&bytes.Buffer{})
	_ = long.Error(strings.Repeat("m", 5000))
	if len(long.Meta()) != MaxMetaSize {
		t.Errorf("meta length = %d, want %d", len(long.Meta()), MaxMetaSize)
	}
}

type brokenPipeWriter struct{ calls int }

func (w *brokenPipeWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, syscall.EPIPE
}

func TestResponse_ClientGoneIsSwallowed(t *testing.T) {
	w := &brokenPipeWriter{}
	r := NewResponse(w)

	_ = r.Success("application/octet-stream")
	n, err := r.ReadFrom(strings.NewReader(strings.Repeat("x", 200000)))
	if err != nil {
		t.Fatalf("ReadFrom() error = %v, want nil", err)
	}
	if n == 0 || n == 200000 {
		t.Errorf("ReadFrom() should stop early after disconnect, copied %d", n)
	}
	if err := r.Flush(); err != nil {
		t.Errorf("Flush() error = %v, want nil", err)
	}
	if w.calls != 1 {
		t.Errorf("underlying writer called %d times, want 1", w.calls)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestResponse_OtherWriteErrorsSurface(t *testing.T) {
	r := NewResponse(failingWriter{})
	_ = r.Success("text/plain")
	if err := r.Flush(); err == nil {
		t.Error("Flush() should report non-disconnect errors")
	}
}

func TestStatus_Class(t *testing.T) {
	if StatusSlowDown.Class() != 4 || StatusBadRequest.Class() != 5 || StatusInput.Class() != 1 {
		t.Error("unexpected status class")
	}
	if StatusNotFound.String() != "51" {
		t.Errorf("String() = %q", StatusNotFound.String())
	}
}

type deadlineRecorder struct {
	bytes.Buffer
	deadlines []time.Time
}

func (d *deadlineRecorder) SetWriteDeadline(t time.Time) error {
	d.deadlines = append(d.deadlines, t)
	return nil
}

func TestResponse_WriteDeadlineRenewedPerChunk(t *testing.T) {
	conn := &deadlineRecorder{}
	w := newConnResponse(conn, time.Minute)

	if err := w.Success("application/octet-stream"); err != nil {
		t.Fatal(err)
	}
	body := strings.Repeat("x", 100*1024)
	start := time.Now()
	if _, err := w.ReadFrom(strings.NewReader(body)); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	if conn.Len() != len("20 application/octet-stream\r\n")+len(body) {
		t.Errorf("wrote %d bytes", conn.Len())
	}
	if len(conn.deadlines) < 3 {
		t.Fatalf("deadline set %d times, want one per chunk", len(conn.deadlines))
	}
	for i, d := range conn.deadlines {
		if d.Before(start.Add(time.Minute)) {
			t.Errorf("deadline %d = %v is not renewed from the time of the write", i, d)
		}
	}
}
