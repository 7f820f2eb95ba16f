// Package adapters holds the concrete HTTP/GraphQL clients that satisfy the
// external-I/O collaborator interfaces named throughout internal/families and
// internal/bargain (Fetcher, GeneFetcher, PriceSource, HeroSource,
// summonengine.Engine). Grounded on internal/market/price.go's bare
// net/http.Client+JSON idiom: a short-timeout client, a context-carrying
// request, an explicit non-2xx status check, and json.Decoder straight off
// the response body. GraphQL calls use the same shape with a POST body
// instead of a query string.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// doJSON issues req and decodes a 2xx JSON body into out.
func doJSON(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("adapters: %s %s: status %s", req.Method, req.URL, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// graphQLRequest builds a POST request carrying {query, variables} as the
// teacher's price.go builds a GET request, just with a JSON body instead of
// a query string.
func graphQLRequest(ctx context.Context, url, query string, variables map[string]interface{}) (*http.Request, error) {
	body, err := json.Marshal(map[string]interface{}{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("adapters: marshal graphql body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "indexerfleet/1.0")
	return req, nil
}

func newClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// postJSON builds a plain JSON POST request (no GraphQL envelope), for REST-
// style services such as the external summon-probability engine.
func postJSON(ctx context.Context, url string, body interface{}) (*http.Request, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("adapters: marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "indexerfleet/1.0")
	return req, nil
}
