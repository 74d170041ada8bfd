/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cleaner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type httpPurger struct {
	endpoint string
	client   *http.Client
}

var _ Purger = &httpPurger{}

// NewHTTPPurger returns a purger that asks the inference runtime to
// release its device caches through an admin endpoint.
func NewHTTPPurger(endpoint string, timeout time.Duration) Purger {
	return &httpPurger{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *httpPurger) Purge(ctx context.Context, device int) error {
	body, err := json.Marshal(map[string]int{"device": device})
	if err != nil {
		return fmt.Errorf("failed to marshal purge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create purge request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call purge endpoint %s: %w", p.endpoint, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("purge endpoint %s returned status %d", p.endpoint, resp.StatusCode)
	}

	return nil
}
