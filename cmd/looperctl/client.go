package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// apiClient talks to looperd's HTTP command/event surface.
type apiClient struct {
	addr string
	http *http.Client
}

func newAPIClient(addr string) *apiClient {
	return &apiClient{addr: strings.TrimRight(addr, "/"), http: &http.Client{}}
}

// command posts a single command to /api/command.
func (c *apiClient) command(body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.addr+"/api/command", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("looperd: %s", strings.TrimSpace(string(msg)))
	}
	return nil
}

// status fetches a one-shot snapshot from /api/status.
func (c *apiClient) status() (statusResponse, error) {
	var out statusResponse
	resp, err := c.http.Get(c.addr + "/api/status")
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

type statusResponse struct {
	Tracks []struct {
		Index        int     `json:"index"`
		State        string  `json:"state"`
		LoopDuration float64 `json:"loop_duration"`
		Divider      int     `json:"divider"`
		PitchSemis   float64 `json:"pitch_semis"`
		UILocked     bool    `json:"ui_locked"`
	} `json:"tracks"`
	LoopbackDetected bool `json:"loopback_detected"`
}

// sseEvent mirrors cmd/looperd's eventEnvelope wire shape.
type sseEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// streamEvents connects to /api/events and sends every decoded event on ch
// until the connection drops or the body is exhausted; callers reconnect.
func (c *apiClient) streamEvents(ch chan<- sseEvent) error {
	resp, err := c.http.Get(c.addr + "/api/events")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		var env sseEvent
		if err := json.Unmarshal([]byte(data), &env); err == nil {
			ch <- env
		}
	}
	return scanner.Err()
}
