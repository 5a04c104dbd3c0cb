package fastbill

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/fastbillsync/internal/debuglog"
)

const (
	DefaultEndpoint = "https://my.fastbill.com/api/1.0/api.php"
	DefaultTimeout  = 40 * time.Second
	maxRedirects    = 3
)

// Transport delivers one encoded request and returns the raw response body.
type Transport interface {
	Send(ctx context.Context, payload []byte) ([]byte, error)
}

type Credentials struct {
	Email  string
	APIKey string
}

func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Email) != "" && strings.TrimSpace(c.APIKey) != ""
}

type TransportConfig struct {
	Endpoint    string
	Timeout     time.Duration
	Credentials Credentials
}

// HTTPTransport posts XML documents to the FastBill endpoint with basic auth.
// Any HTTP response counts as delivered, whatever its status code.
type HTTPTransport struct {
	endpoint string
	creds    Credentials
	client   *http.Client
	debug    *debuglog.Logger
}

func NewHTTPTransport(cfg TransportConfig, debug *debuglog.Logger) *HTTPTransport {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if debug == nil {
		debug = debuglog.Nop()
	}

	return &HTTPTransport{
		endpoint: endpoint,
		creds:    cfg.Credentials,
		debug:    debug,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	if !t.creds.Valid() {
		return nil, &TransportError{Err: ErrMissingCredentials}
	}

	t.debug.Add(ctx, "SENDING XML:\n"+string(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/xml")
	req.SetBasicAuth(strings.TrimSpace(t.creds.Email), strings.TrimSpace(t.creds.APIKey))

	resp, err := t.client.Do(req)
	if err != nil {
		t.debug.Add(ctx, "Something went wrong: "+err.Error())
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil && !errors.Is(err, io.EOF) {
		t.debug.Add(ctx, "Something went wrong: "+err.Error())
		return nil, &TransportError{Err: fmt.Errorf("read body: %w", err)}
	}

	t.debug.Add(ctx, "RESPONSE XML: "+string(body))
	return body, nil
}
