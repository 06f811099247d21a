package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// loggedRequest is the request metadata persisted to the audit log. The
// Authorization value is always redacted before serialization.
type loggedRequest struct {
	URL           string      `json:"url"`
	Method        string      `json:"method"`
	Authorization string      `json:"authorization"`
	Body          interface{} `json:"body"`
}

func marshalLoggedRequest(url, authScheme string, body interface{}) string {
	data, err := json.Marshal(loggedRequest{
		URL:           url,
		Method:        http.MethodPost,
		Authorization: authScheme + " " + redacted,
		Body:          body,
	})
	if err != nil {
		return fmt.Sprintf(`{"url":%q,"marshal_error":%q}`, url, err.Error())
	}
	return string(data)
}

// postJSON issues one JSON POST with a bounded timeout and measures its
// duration. The duration is returned even on failure so the audit entry
// can carry it.
func postJSON(ctx context.Context, client Doer, url, authHeader string, body interface{}, timeout time.Duration) (status int, respBody []byte, duration time.Duration, err error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration = time.Since(start)
	if err != nil {
		return 0, nil, duration, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, duration, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, respBody, duration, fmt.Errorf("%w: http %d", ErrTransport, resp.StatusCode)
	}
	return resp.StatusCode, respBody, duration, nil
}
