package manager

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// runtimeClient talks to the Ollama HTTP API. It holds no state beyond the
// base URL and transport; every call carries its deadline in ctx.
type runtimeClient struct {
	baseURL    string
	httpClient *http.Client
}

func newRuntimeClient(baseURL string) *runtimeClient {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: all requests must carry context-based timeouts.
	return &runtimeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: tr, Timeout: 0},
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// generateLine is one object of a /api/generate response (whole or streamed).
type generateLine struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

type pullLine struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Digest    string `json:"digest"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type nameRequest struct {
	Name string `json:"name"`
}

func (c *runtimeClient) do(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound && body != nil {
			if nr, ok := body.(nameRequest); ok {
				return nil, ErrModelNotFound(nr.Name)
			}
		}
		return nil, runtimeStatusError{op: op, code: resp.StatusCode}
	}
	return resp, nil
}

// version succeeds when GET /api/version answers 200.
func (c *runtimeClient) version(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify("version", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return runtimeStatusError{op: "version", code: resp.StatusCode}
	}
	return nil
}

func (c *runtimeClient) tags(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, "tags", http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var tr tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, classify("tags", err)
	}
	names := make([]string, 0, len(tr.Models))
	for _, m := range tr.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// pull streams /api/pull progress to onLine and reports whether a success
// status was seen. An error field or an early end of stream is a failure.
func (c *runtimeClient) pull(ctx context.Context, name string, onLine func(pullLine)) (bool, error) {
	resp, err := c.do(ctx, "pull", http.MethodPost, "/api/pull", nameRequest{Name: name})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)
	for {
		line, rerr := r.ReadBytes('\n')
		if l := bytes.TrimSpace(line); len(l) > 0 {
			var pl pullLine
			if json.Unmarshal(l, &pl) == nil {
				if pl.Error != "" {
					return false, errors.New("pull: " + pl.Error)
				}
				if onLine != nil {
					onLine(pl)
				}
				if strings.Contains(strings.ToLower(pl.Status), "success") {
					return true, nil
				}
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return false, nil
			}
			return false, classify("pull", rerr)
		}
	}
}

func (c *runtimeClient) generate(ctx context.Context, model, prompt string, p InferParams) (string, error) {
	resp, err := c.do(ctx, "generate", http.MethodPost, "/api/generate",
		generateRequest{Model: model, Prompt: prompt, Stream: false, Options: p.options()})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var gl generateLine
	if err := json.NewDecoder(resp.Body).Decode(&gl); err != nil {
		return "", classify("generate", err)
	}
	if gl.Error != "" {
		return "", errors.New("generate: " + gl.Error)
	}
	return gl.Response, nil
}

// generateStream reads NDJSON fragments from /api/generate and hands each
// non-empty fragment to emit. It returns when a done line arrives, the body
// ends, or emit returns false. Lines that are not valid JSON are skipped.
func (c *runtimeClient) generateStream(ctx context.Context, model, prompt string, p InferParams, emit func(text string, done bool) bool) error {
	resp, err := c.do(ctx, "generate", http.MethodPost, "/api/generate",
		generateRequest{Model: model, Prompt: prompt, Stream: true, Options: p.options()})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)
	for {
		line, rerr := r.ReadBytes('\n')
		if l := bytes.TrimSpace(line); len(l) > 0 {
			var gl generateLine
			if json.Unmarshal(l, &gl) == nil {
				if gl.Error != "" {
					return errors.New("generate: " + gl.Error)
				}
				if gl.Done {
					emit(gl.Response, true)
					return nil
				}
				if gl.Response != "" && !emit(gl.Response, false) {
					return nil
				}
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				emit("", true)
				return nil
			}
			return classify("generate", rerr)
		}
	}
}

func (c *runtimeClient) show(ctx context.Context, name string) (json.RawMessage, error) {
	resp, err := c.do(ctx, "show", http.MethodPost, "/api/show", nameRequest{Name: name})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify("show", err)
	}
	if !json.Valid(b) {
		return nil, errors.New("show: invalid JSON body")
	}
	return json.RawMessage(b), nil
}

func (c *runtimeClient) delete(ctx context.Context, name string) error {
	resp, err := c.do(ctx, "delete", http.MethodDelete, "/api/delete", nameRequest{Name: name})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
