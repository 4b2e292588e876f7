package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/mars-rover/api"
	"github.com/wricardo/mars-rover/mission/config"
	"github.com/wricardo/mars-rover/mission/controller"
	"github.com/wricardo/mars-rover/mission/rover"
	"github.com/wricardo/mars-rover/mission/service"
	"github.com/wricardo/mars-rover/mission/session"
)

const classicInput = "5 5\n1 2 N\nLMLMLMLMM\n3 3 E\nMMRMMRMRRM\n"

// newAPIServer starts a real REST API backed by in-memory sessions
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "classic.txt"), []byte(classicInput), 0644); err != nil {
		t.Fatalf("Failed to write mission: %v", err)
	}

	missions, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create mission manager: %v", err)
	}

	svc := service.NewMissionService(session.NewManager(), missions)
	server := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(server.Close)
	return server
}

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Fatal("HTTP client not initialized")
	}
	if client.httpClient.Timeout != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", client.httpClient.Timeout)
	}
	if client.GetMCPServer() == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestClient_apiCallErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/nested":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   "line 2: bad start",
				"failure": map[string]interface{}{"kind": "format", "line": 2},
			})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	err := client.apiCall(ctx, "GET", "/nested", nil, nil)
	if err == nil || err.Error() != "line 2: bad start" {
		t.Errorf("Expected the error message from the body, got %v", err)
	}

	err = client.apiCall(ctx, "GET", "/other", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "API error: 500") {
		t.Errorf("Expected 'API error: 500', got %v", err)
	}
}

func TestClient_handleSimulate(t *testing.T) {
	client := NewClient(newAPIServer(t).URL)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   string
		isError bool
		want    []string
	}{
		{
			name:  "canonical mission",
			input: classicInput,
			want:  []string{"✓ Mission complete", "1 3 N", "5 1 E"},
		},
		{
			name:  "collision keeps earlier reports",
			input: "5 5\n0 0 N\nM\n0 2 S\nMM\n",
			want:  []string{"✗ Mission stopped", "0 1 N", "Failure (collision)", "Rover #2 blocked at (0,1)"},
		},
		{
			name:    "format error",
			input:   "5 5\n1 2 N\nLMX\n",
			isError: true,
			want:    []string{"line 3"},
		},
		{
			name:    "missing input",
			input:   "",
			isError: true,
			want:    []string{"input is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := client.handleSimulate(ctx, callTool("simulate", map[string]interface{}{"input": tt.input}))
			if err != nil {
				t.Fatalf("handleSimulate returned error: %v", err)
			}
			if result.IsError != tt.isError {
				t.Errorf("Expected IsError=%v, got %v", tt.isError, result.IsError)
			}
			text := resultText(t, result)
			for _, want := range tt.want {
				if !strings.Contains(text, want) {
					t.Errorf("Expected %q in result, got: %s", want, text)
				}
			}
		})
	}
}

func TestClient_SessionWorkflow(t *testing.T) {
	client := NewClient(newAPIServer(t).URL)
	ctx := context.Background()

	result, err := client.handleCreateSession(ctx, callTool("create_session", map[string]interface{}{"mission_id": "classic"}))
	if err != nil {
		t.Fatalf("handleCreateSession failed: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Mission: classic") || !strings.Contains(text, "Rovers: 2") {
		t.Fatalf("Unexpected create result: %s", text)
	}

	line := strings.SplitN(text, "\n", 2)[0]
	sessionID := strings.TrimSpace(strings.TrimPrefix(line, "Created session:"))
	if len(sessionID) != 4 {
		t.Fatalf("Expected a 4-character session ID, got %q", sessionID)
	}
	args := map[string]interface{}{"session_id": sessionID}

	result, _ = client.handleGetSession(ctx, callTool("get_session", args))
	text = resultText(t, result)
	if !strings.Contains(text, "Status: pending") || !strings.Contains(text, "#1 1 2 N") {
		t.Errorf("Unexpected session details: %s", text)
	}

	result, _ = client.handleExecute(ctx, callTool("execute_session", args))
	text = resultText(t, result)
	if !strings.Contains(text, "✓ Mission complete (19 steps)") || !strings.Contains(text, "5 1 E") {
		t.Errorf("Unexpected execute result: %s", text)
	}

	result, _ = client.handleHistory(ctx, callTool("session_history", map[string]interface{}{
		"session_id": sessionID,
		"page":       float64(1),
		"limit":      float64(5),
		"order":      "asc",
	}))
	text = resultText(t, result)
	if !strings.Contains(text, "Page 1/4") || !strings.Contains(text, "1. rover #1 L (1,2) N -> (1,2) W") {
		t.Errorf("Unexpected history: %s", text)
	}

	result, _ = client.handleListSessions(ctx, callTool("list_sessions", map[string]interface{}{}))
	text = resultText(t, result)
	if !strings.Contains(text, sessionID) || !strings.Contains(text, "executed") {
		t.Errorf("Unexpected session list: %s", text)
	}

	result, _ = client.handleReset(ctx, callTool("reset_session", args))
	text = resultText(t, result)
	if !strings.Contains(text, "Session reset successfully") || !strings.Contains(text, "Status: pending") {
		t.Errorf("Unexpected reset result: %s", text)
	}
}

func TestClient_SessionErrors(t *testing.T) {
	client := NewClient(newAPIServer(t).URL)
	ctx := context.Background()

	result, _ := client.handleExecute(ctx, callTool("execute_session", map[string]interface{}{}))
	if !result.IsError || !strings.Contains(resultText(t, result), "session_id is required") {
		t.Error("Expected missing session_id to be reported")
	}

	result, _ = client.handleGetSession(ctx, callTool("get_session", map[string]interface{}{"session_id": "zzzz"}))
	if !result.IsError {
		t.Error("Expected unknown session to be an error result")
	}

	result, _ = client.handleCreateSession(ctx, callTool("create_session", map[string]interface{}{"mission_id": "nope"}))
	if !result.IsError {
		t.Error("Expected unknown mission to be an error result")
	}
}

func TestClient_handleListMissions(t *testing.T) {
	client := NewClient(newAPIServer(t).URL)

	result, err := client.handleListMissions(context.Background(), callTool("list_missions", nil))
	if err != nil {
		t.Fatalf("handleListMissions failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "• classic") || !strings.Contains(text, "Plateau: 5x5 (36 cells), Rovers: 2") {
		t.Errorf("Unexpected missions list: %s", text)
	}
}

func TestClient_handleRoverInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleRoverInstructions(context.Background(), callTool("rover_instructions", nil))
	if err != nil {
		t.Fatalf("handleRoverInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"INPUT FORMAT:", "INSTRUCTIONS:", "FAILURE KINDS:", "out_of_bounds", "collision", "1 3 N\n5 1 E"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in instructions", want)
		}
	}
}

func TestFormatRunResult(t *testing.T) {
	pos := rover.Position{X: 3, Y: 4}
	result := formatRunResult(&service.RunResult{
		SessionID:  "a1b2",
		Success:    false,
		Plateau:    controller.Plateau{Xmax: 4, Ymax: 4},
		Reports:    []string{"3 3 N"},
		TotalSteps: 3,
		Failure: &service.Failure{
			Kind:     service.FailureOutOfBounds,
			Message:  "rover 2 would leave the plateau at (3,5)",
			Rover:    1,
			Position: &pos,
		},
	})

	for _, want := range []string{"✗ Mission stopped after 3 steps", "Session: a1b2", "Plateau: 4x4", "3 3 N", "Failure (out_of_bounds)", "Rover #2 blocked at (3,4)"} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in formatted output, got: %s", want, result)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	result := formatHistory(&service.HistoryResponse{
		Steps: []controller.Step{
			{Index: 7, Rover: 1, Instruction: rover.Move, From: rover.Position{X: 3, Y: 3}, To: rover.Position{X: 4, Y: 3}, HeadingBefore: rover.East, HeadingAfter: rover.East},
		},
		TotalSteps: 19,
		Page:       2,
		TotalPages: 4,
	})

	if !strings.Contains(result, "Page 2/4") || !strings.Contains(result, "Total: 19") {
		t.Errorf("Missing pagination header: %s", result)
	}
	if !strings.Contains(result, "7. rover #2 M (3,3) E -> (4,3) E") {
		t.Errorf("Unexpected step line: %s", result)
	}
}
