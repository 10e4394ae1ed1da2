package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DefaultTimeout bounds every gateway call.
const DefaultTimeout = 10 * time.Second

// NewHTTPClient returns the client shared by the gateway integrations.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// doRequest sends a request and returns the body. Non-2xx responses are errors
// carrying the gateway's own message when one can be extracted.
func doRequest(ctx context.Context, client *http.Client, method, url string, body io.Reader, headers map[string]any) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	for key, value := range headers {
		request.Header.Set(key, cast.ToString(value))
	}

	resp, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return respBytes, &statusError{Status: resp.StatusCode, Message: extractMessage(respBytes)}
	}

	return respBytes, nil
}

// doJSON marshals body as JSON and decodes the response into out.
func doJSON(ctx context.Context, client *http.Client, method, url string, body any, headers map[string]any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	if headers == nil {
		headers = map[string]any{}
	}
	headers["Content-Type"] = "application/json"

	respBytes, err := doRequest(ctx, client, method, url, reader, headers)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBytes, out)
}

type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// extractMessage pulls a human-readable message out of common gateway error shapes.
func extractMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}

	if nested, ok := payload["error"].(map[string]any); ok {
		if msg := cast.ToString(nested["message"]); msg != "" {
			return msg
		}
	}
	for _, key := range []string{"message", "error_description", "error"} {
		if msg := cast.ToString(payload[key]); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(body))
}

// wrapTransport marks transport and status failures as gateway errors.
func wrapTransport(name string, err error) error {
	var se *statusError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: %s: %s", ErrGateway, name, se.Error())
	}
	return fmt.Errorf("%w: %s: %v", ErrGateway, name, err)
}
