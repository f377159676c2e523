package geminiserver

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime/debug"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/capsule/internal/server/staticfile"
	"github.com/yndnr/capsule/internal/telemetry/logger"
)

// exchange is the per-connection state carried to the access log.
type exchange struct {
	received time.Time
	remote   string
	url      string
	resp     *Response
}

func (s *Server) serveConn(ctx context.Context, raw net.Conn) {
	s.metrics.ConnectionsTotal.Inc()
	s.metrics.ConnectionsActive.Inc()
	defer s.metrics.ConnectionsActive.Dec()

	connID := ulid.Make().String()
	clientIP := hostOf(raw.RemoteAddr())
	ex := &exchange{received: time.Now(), remote: s.displayAddr(clientIP)}
	log := s.logger.With("conn_id", connID, "remote", ex.remote)
	ctx = logger.WithConnID(ctx, connID)

	conn := tls.Server(raw, s.tlsConfig)
	// Close sends close_notify once the handshake has completed.
	defer conn.Close()

	hsCtx, cancel := context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
	err := conn.HandshakeContext(hsCtx)
	cancel()
	if err != nil {
		s.metrics.HandshakeFailures.Inc()
		log.Debug("tls handshake failed", "error", err)
		s.logAccessError(ex.remote, "tls handshake failed", err)
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

	ex.resp = newConnResponse(conn, s.cfg.WriteTimeout)
	defer s.finish(log, ex)

	line, err := ReadRequestLine(bufio.NewReaderSize(conn, MaxRequestSize))
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			ex.url = logger.SanitizeField(line)
			log.Debug("bad request line", "error", err)
			_ = ex.resp.BadRequest("Invalid request: " + reqErr.Reason)
			return
		}
		// Timeouts and resets abort the connection without a response.
		ex.resp = nil
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			log.Debug("request read timed out")
			s.logAccessError(ex.remote, "request read timed out", err)
			return
		}
		log.Debug("request read failed", "error", err)
		s.logAccessError(ex.remote, "request read failed", err)
		return
	}

	u, err := ValidateURL(line, s.policy)
	if err != nil {
		ex.url = logger.SanitizeField(line)
		log.Debug("request rejected", "url", ex.url, "error", err)
		rejectURL(ex.resp, err)
		return
	}
	ex.url = u.String()

	if s.limiter != nil {
		if wait, ok := s.limiter.allow(clientIP, time.Now()); !ok {
			s.metrics.RateLimited.Inc()
			log.Debug("rate limited", "wait", wait)
			_ = ex.resp.SlowDown(wait)
			return
		}
	}

	s.ServeGemini(ex.resp, NewRequest(ctx, u, ex.remote, ex.received))
}

// ServeGemini dispatches a validated request: routes first, then
// redirects, then static files. It lets a Server be driven without a
// network connection.
func (s *Server) ServeGemini(w *Response, r *Request) {
	route := r.Route()
	log := s.logger.With("route", route)

	if h, ok := s.router.Match(route); ok {
		s.invoke(log, h, w, r)
		return
	}

	if rd, ok := s.redirects.Match(route); ok {
		_ = w.WriteStatus(rd.Status(), rd.Target)
		return
	}

	if s.static != nil {
		s.serveStatic(log, w, r)
		return
	}

	_ = w.NotFound("Could not find a file or route for this URL")
}

func (s *Server) invoke(log *slog.Logger, h Handler, w *Response, r *Request) {
	defer func() {
		if p := recover(); p != nil {
			s.metrics.HandlerPanics.Inc()
			log.ErrorContext(r.Context(), "handler panic", "panic", p, "stack", string(debug.Stack()))
			if !w.InFlight() {
				_ = w.Error("Internal server error")
				return
			}
			// Status line already sent; append to the body.
			_, _ = fmt.Fprintf(w, "\n\nInternal server error: %v\n", p)
		}
	}()

	h.ServeGemini(w, r)
	if !w.InFlight() {
		log.WarnContext(r.Context(), "handler wrote no response")
		_ = w.Error("Handler produced no response")
	}
}

func (s *Server) serveStatic(log *slog.Logger, w *Response, r *Request) {
	u := r.URL()
	res := s.static.Resolve(u.EscapedPath(), u.RawQuery)

	switch res.Kind {
	case staticfile.KindFile:
		f, err := os.Open(res.Path)
		if err != nil {
			log.WarnContext(r.Context(), "open static file failed", "path", res.Path, "error", err)
			_ = w.NotFound("Cannot locate file for URL")
			return
		}
		defer f.Close()
		_ = w.Success(res.MIME)
		if _, err := w.ReadFrom(f); err != nil {
			log.WarnContext(r.Context(), "static file copy failed", "path", res.Path, "error", err)
		}

	case staticfile.KindRedirect:
		_ = w.Redirect(res.Target)

	case staticfile.KindTraversal:
		s.metrics.TraversalAttempts.Inc()
		log.WarnContext(r.Context(), "path traversal attempt",
			"event", "security",
			"url", logger.SanitizeField(u.String()),
			"remote", r.RemoteAddr(),
		)
		_ = w.BadRequest("Invalid request")

	case staticfile.KindBadPath:
		_ = w.BadRequest("Invalid URL path")

	default:
		_ = w.NotFound("Cannot locate file for URL")
	}
}

// finish flushes the response and records it. A nil response means the
// connection was aborted and already logged.
func (s *Server) finish(log *slog.Logger, ex *exchange) {
	if ex.resp == nil {
		return
	}
	if err := ex.resp.Flush(); err != nil {
		log.Debug("flush failed", "error", err)
	}

	elapsed := time.Since(ex.received)
	s.metrics.ObserveResponse(int(ex.resp.Status()), ex.resp.Written(), elapsed)

	err := s.accessLog.Log(logger.AccessRecord{
		Received:   ex.received,
		RemoteAddr: ex.remote,
		URL:        ex.url,
		Status:     int(ex.resp.Status()),
		Meta:       ex.resp.Meta(),
		Bytes:      ex.resp.Written(),
		Elapsed:    elapsed,
	})
	if err != nil {
		log.Warn("access log write failed", "error", err)
	}
}

func (s *Server) logAccessError(remote, what string, err error) {
	if lerr := s.accessLog.LogError(remote, what, err); lerr != nil {
		s.logger.Warn("access log write failed", "error", lerr)
	}
}

func (s *Server) displayAddr(ip string) string {
	if s.cfg.MaskRemoteAddr {
		return logger.MaskedAddr
	}
	return ip
}

func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
