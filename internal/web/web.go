package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"encoding/xml"
	"errors"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"famcal/internal/config"
	"famcal/internal/intake"
	appLog "famcal/internal/log"
	"famcal/internal/route"
)

const maxBodyBytes = 64 << 10

// smsSweepAt is the number of tracked senders above which refilled limiters
// are dropped.
const smsSweepAt = 256

// Server exposes the quick-add and SMS intake endpoints.
type Server struct {
	cfg *config.Config
	svc *intake.Service
	mux *http.ServeMux

	// Per-sender SMS limiters, created lazily.
	smsMu       sync.Mutex
	smsLimiters map[string]*rate.Limiter
	now         func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *intake.Service) *Server {
	s := &Server{
		cfg:         cfg,
		svc:         svc,
		mux:         http.NewServeMux(),
		smsLimiters: make(map[string]*rate.Limiter),
		now:         time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="famcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/quick-add", s.handleQuickAdd)
	s.mux.HandleFunc("POST /api/sms", s.handleSMS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// quickAddRequest is the JSON body of /api/quick-add.
type quickAddRequest struct {
	Text   string `json:"text"`
	User   string `json:"user,omitempty"`
	Person string `json:"person,omitempty"`
}

// intakeResponse is the JSON response shape shared by both entry points.
type intakeResponse struct {
	Success bool            `json:"success"`
	Speak   string          `json:"speak"`
	Event   *intake.Summary `json:"event,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// handleQuickAdd adds one event from a voice shortcut or app.
//
// POST /api/quick-add {"text": "...", "user": "...", "person": "..."}
func (s *Server) handleQuickAdd(w http.ResponseWriter, r *http.Request) {
	var req quickAddRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, intakeResponse{
			Speak: "Sorry, I couldn't read that request.",
			Error: "invalid JSON body",
		})
		return
	}

	status, resp := s.add(r.Context(), intake.Request{
		Text:    req.Text,
		User:    req.User,
		Person:  req.Person,
		Channel: "api",
	})
	writeJSON(w, status, resp)
}

// smsFields are the inputs accepted by /api/sms in either encoding.
type smsFields struct {
	body string
	from string
}

// handleSMS adds one event from an SMS webhook. Form-encoded requests
// (Twilio style, Body/From) are answered with a TwiML envelope; JSON
// requests get the quick-add JSON shape.
func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	form := mediaType == "application/x-www-form-urlencoded"

	var in smsFields
	if form {
		if err := r.ParseForm(); err != nil {
			writeTwiML(w, "Sorry, I couldn't read that message.")
			return
		}
		in = smsFields{body: r.PostForm.Get("Body"), from: r.PostForm.Get("From")}
	} else {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeJSON(w, http.StatusBadRequest, intakeResponse{
				Speak: "Sorry, I couldn't read that request.",
				Error: "invalid JSON body",
			})
			return
		}
		in = smsFields{
			body: firstString(raw, "text", "Body"),
			from: firstString(raw, "from", "From"),
		}
	}

	if !s.allowSMS(in.from) {
		appLog.Warn("sms throttled", "from", in.from)
		const msg = "Too many messages. Please wait a minute and try again."
		if form {
			writeTwiML(w, msg)
			return
		}
		writeJSON(w, http.StatusTooManyRequests, intakeResponse{Speak: msg, Error: "rate limited"})
		return
	}

	user := in.from
	if id, ok := s.cfg.UserForPhone(in.from); ok {
		user = id
	}

	status, resp := s.add(r.Context(), intake.Request{
		Text:    in.body,
		User:    user,
		Channel: "sms",
	})
	if form {
		writeTwiML(w, resp.Speak)
		return
	}
	writeJSON(w, status, resp)
}

// add runs the intake service and maps its outcome onto a status code and
// response body.
func (s *Server) add(ctx context.Context, req intake.Request) (int, intakeResponse) {
	res, err := s.svc.Add(ctx, req)
	if err == nil {
		return http.StatusOK, intakeResponse{Success: true, Speak: res.Speak, Event: &res.Summary}
	}

	var (
		inErr  *intake.InputError
		cfgErr *route.ConfigurationError
		wErr   *intake.WriteError
	)
	switch {
	case errors.As(err, &inErr):
		return http.StatusBadRequest, intakeResponse{
			Speak: "Please tell me what to add, like \"Soccer Saturday 9am at the park\".",
			Error: inErr.Reason,
		}
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, intakeResponse{
			Speak: "No calendar is set up for that event.",
			Error: "calendar not configured",
		}
	case errors.As(err, &wErr):
		return http.StatusInternalServerError, intakeResponse{
			Speak: "Sorry, I couldn't add that to the calendar.",
			Error: "calendar write failed",
		}
	default:
		appLog.Error("intake failed", err, "channel", req.Channel)
		return http.StatusInternalServerError, intakeResponse{
			Speak: "Sorry, something went wrong.",
			Error: "internal error",
		}
	}
}

// allowSMS applies the per-sender token bucket.
func (s *Server) allowSMS(from string) bool {
	key := strings.TrimSpace(from)
	if key == "" {
		key = "unknown"
	}

	now := s.now()

	s.smsMu.Lock()
	lim, ok := s.smsLimiters[key]
	if !ok {
		if len(s.smsLimiters) >= smsSweepAt {
			s.sweepSMSLimiters(now)
		}
		perSecond := rate.Limit(s.cfg.SMS.RatePerMinute / 60)
		lim = rate.NewLimiter(perSecond, s.cfg.SMS.Burst)
		s.smsLimiters[key] = lim
	}
	s.smsMu.Unlock()

	return lim.AllowN(now, 1)
}

// sweepSMSLimiters drops limiters whose bucket has refilled. A full bucket
// behaves exactly like a new one, so forgetting it changes nothing.
// Callers hold smsMu.
func (s *Server) sweepSMSLimiters(now time.Time) {
	for key, lim := range s.smsLimiters {
		if lim.TokensAt(now) >= float64(lim.Burst()) {
			delete(s.smsLimiters, key)
		}
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// twimlResponse is the XML envelope SMS gateways read the reply from.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// writeTwiML always answers 200 so the gateway delivers the message text,
// including error messages.
func writeTwiML(w http.ResponseWriter, msg string) {
	out, err := xml.Marshal(twimlResponse{Message: msg})
	if err != nil {
		appLog.Error("failed to encode TwiML response", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
