// Package fastbilltest provides an in-process fake of the FastBill API
// endpoint for tests.
package fastbilltest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/smallbiznis/fastbillsync/internal/debuglog"
	"github.com/smallbiznis/fastbillsync/internal/fastbill"
	"github.com/smallbiznis/fastbillsync/internal/fastbill/wire"
	"go.uber.org/zap"
)

const (
	Email  = "owner@example.com"
	APIKey = "secret-key"
)

// Request is one call received by the fake.
type Request struct {
	Service     string
	Tree        *wire.Node
	Body        string
	Email       string
	APIKey      string
	ContentType string
}

// Data returns the DATA payload of the request.
func (r Request) Data() *wire.Node {
	return r.Tree.Child("DATA")
}

func (r Request) Filter() *wire.Node {
	return r.Tree.Child("FILTER")
}

type Server struct {
	*httptest.Server

	mu        sync.Mutex
	requests  []Request
	responses map[string]string
}

// NewServer starts a fake that answers every service with an empty success
// until scripted otherwise.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{responses: map[string]string{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// On scripts the body returned for service.
func (s *Server) On(service, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[service] = body
}

// Services lists the services called, in order.
func (s *Server) Services() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req.Service)
	}
	return out
}

// Requests returns the received calls for service, or all calls when service
// is empty.
func (s *Server) Requests(service string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, req := range s.requests {
		if service == "" || req.Service == service {
			out = append(out, req)
		}
	}
	return out
}

func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Client returns a client wired to the fake with valid credentials.
func (s *Server) Client(debug *debuglog.Logger) *fastbill.Client {
	return fastbill.NewClient(s.Transport(debug), zap.NewNop(), nil)
}

func (s *Server) Transport(debug *debuglog.Logger) *fastbill.HTTPTransport {
	return fastbill.NewHTTPTransport(fastbill.TransportConfig{
		Endpoint:    s.URL,
		Credentials: fastbill.Credentials{Email: Email, APIKey: APIKey},
	}, debug)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	tree, _ := wire.ParseTree(body)
	email, key, _ := r.BasicAuth()

	req := Request{
		Tree:        tree,
		Body:        string(body),
		Email:       email,
		APIKey:      key,
		ContentType: r.Header.Get("Content-Type"),
	}
	if tree != nil {
		req.Service = tree.Value("SERVICE")
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	response, ok := s.responses[req.Service]
	s.mu.Unlock()

	if !ok {
		response = Success("")
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = io.WriteString(w, response)
}

// Success wraps inner in a success envelope.
func Success(inner string) string {
	return `<?xml version="1.0" encoding="utf-8"?><FBAPI><RESPONSE><STATUS>success</STATUS>` +
		inner + `</RESPONSE></FBAPI>`
}

// Failure returns an error envelope carrying messages.
func Failure(messages ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?><FBAPI><RESPONSE><ERRORS>`)
	for _, msg := range messages {
		b.WriteString("<ERROR>" + msg + "</ERROR>")
	}
	b.WriteString(`</ERRORS></RESPONSE></FBAPI>`)
	return b.String()
}
