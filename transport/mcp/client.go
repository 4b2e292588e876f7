package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mars-rover/mission/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Mars Rover Mission Control",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Mars Rover Mission Control - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A mission places rovers on a rectangular plateau and drives them one after
another with L, R and M instructions. Every move is checked before it is
applied: a rover never leaves the plateau and never enters a cell occupied
by another rover.

AVAILABLE TOOLS:
- simulate: Run a mission description end to end, no session needed
- create_session: Create a session from a preset (mission_id) or raw input
- execute_session: Execute a session's batch (once; repeats return the stored result)
- get_session: Get session details and current rover positions
- list_sessions: List sessions
- reset_session: Rebuild a session from its input so it can run again
- session_history: View applied steps with pagination
- list_missions: List mission presets
- rover_instructions: Input format, rules and failure kinds`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	sessionIDProperty := map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulate",
		Description: "Ingest and execute a complete mission description and return the final rover reports",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"input": map[string]interface{}{
					"type":        "string",
					"description": "Mission text: plateau size line, then a start line and an instruction line per rover",
				},
			},
			Required: []string{"input"},
		},
	}, c.handleSimulate)

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new mission session from a preset or from raw input",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"mission_id": map[string]interface{}{
					"type":        "string",
					"description": "Preset to load (optional, see list_missions)",
				},
				"input": map[string]interface{}{
					"type":        "string",
					"description": "Raw mission text (optional, takes precedence over mission_id)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all mission sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty,
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Mission operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "execute_session",
		Description: "Execute every rover of the session in order and return the reports",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty,
			},
			Required: []string{"session_id"},
		},
	}, c.handleExecute)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_session",
		Description: "Rebuild a session from its original input",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty,
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "session_history",
		Description: "Get the applied instruction steps of an executed session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty,
				"page": map[string]interface{}{
					"type":        "number",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Steps per page (default 20, max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"description": "asc or desc (default desc)",
					"enum":        []string{"asc", "desc"},
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_missions",
		Description: "List available mission presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListMissions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rover_instructions",
		Description: "Get the mission input format, movement rules and failure kinds",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleRoverInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Error bodies may carry a nested "failure" object next to "error"
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"].(string); ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func requireSessionID(args map[string]interface{}) (string, error) {
	sessionID, _ := args["session_id"].(string)
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return url.PathEscape(sessionID), nil
}

// Tool handlers

func (c *Client) handleSimulate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	input, _ := args["input"].(string)
	if strings.TrimSpace(input) == "" {
		return mcp.NewToolResultError("input is required"), nil
	}

	var result service.RunResult
	if err := c.apiCall(ctx, "POST", "/api/simulate", map[string]string{"input": input}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunResult(&result)), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	missionID, _ := args["mission_id"].(string)
	input, _ := args["input"].(string)

	body := map[string]string{}
	if missionID != "" {
		body["mission_id"] = missionID
	}
	if input != "" {
		body["input"] = input
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\n", session.ID)
	if session.MissionName != "" {
		result += fmt.Sprintf("Mission: %s\n", session.MissionName)
	}
	result += fmt.Sprintf("Plateau: %dx%d, Rovers: %d\n", session.Plateau.Xmax, session.Plateau.Ymax, len(session.Rovers))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "pending"
		if s.Executed {
			status = "executed"
		}
		mission := s.MissionName
		if mission == "" {
			mission = "custom"
		}
		result += fmt.Sprintf("- %s (Mission: %s, Rovers: %d, %s, Created: %s)\n",
			s.ID, mission, len(s.Rovers), status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireSessionID(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+sessionID, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireSessionID(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.RunResult
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+sessionID+"/execute", nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireSessionID(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string              `json:"message"`
		Session service.SessionInfo `json:"session"`
	}
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+sessionID+"/reset", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response.Message + "\n\n" + formatSessionInfo(&response.Session)), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := requireSessionID(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}

	path := "/api/sessions/" + sessionID + "/history"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListMissions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var missions []service.MissionInfo
	if err := c.apiCall(ctx, "GET", "/api/missions", nil, &missions); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Missions:\n\n"
	for _, m := range missions {
		result += fmt.Sprintf("• %s\n  Plateau: %dx%d (%d cells), Rovers: %d\n\n",
			m.MissionID, m.Plateau.Xmax, m.Plateau.Ymax, m.Plateau.Cells(), m.Rovers)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRoverInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(roverInstructions), nil
}

const roverInstructions = `Mars Rover Mission Control - Instructions

INPUT FORMAT:
Line 1: plateau upper-right corner, two non-negative integers: "5 5"
Then, for every rover, two lines:
  start condition: x y heading, heading one of N, E, S, W: "1 2 N"
  instructions: one or more of L, R, M: "LMLMLMLMM"
Fields are separated by exactly one space. Blank lines are ignored.

COORDINATES:
The lower-left corner is (0,0). North is +y, East is +x.
A plateau of "5 5" has cells 0..5 on both axes.

INSTRUCTIONS:
L - rotate 90 degrees left, position unchanged
R - rotate 90 degrees right, position unchanged
M - move one cell forward in the current heading

EXECUTION:
Rovers run sequentially in input order. Each rover finishes all of its
instructions before the next one starts. Every M is checked before it is
applied.

FAILURE KINDS:
format              - a line does not match the expected format
out_of_bounds       - a start position or move leaves the plateau
collision           - a start position or move enters an occupied cell
invalid_instruction - an unknown instruction letter

When a run stops, the reports of the rovers that finished are kept and the
offending rover stays where it was before the rejected move.

OUTPUT:
One line per rover, "x y heading": "1 3 N"

EXAMPLE:
5 5
1 2 N
LMLMLMLMM
3 3 E
MMRMMRMRRM

produces
1 3 N
5 1 E`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	if session.MissionName != "" {
		fmt.Fprintf(&b, "Mission: %s\n", session.MissionName)
	}
	fmt.Fprintf(&b, "Created: %s\n", session.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Plateau: %dx%d\n", session.Plateau.Xmax, session.Plateau.Ymax)
	if session.Executed {
		b.WriteString("Status: executed\n")
	} else {
		b.WriteString("Status: pending\n")
	}

	b.WriteString("\nRovers:\n")
	for _, r := range session.Rovers {
		fmt.Fprintf(&b, "  #%d %s  [%s]\n", r.Index+1, r.Report, r.Instructions)
	}

	if session.Result != nil && session.Result.Failure != nil {
		fmt.Fprintf(&b, "\n✗ %s\n", session.Result.Failure.Message)
	}

	return b.String()
}

func formatRunResult(result *service.RunResult) string {
	var b strings.Builder

	if result.Success {
		fmt.Fprintf(&b, "✓ Mission complete (%d steps)\n", result.TotalSteps)
	} else {
		fmt.Fprintf(&b, "✗ Mission stopped after %d steps\n", result.TotalSteps)
	}
	if result.SessionID != "" {
		fmt.Fprintf(&b, "Session: %s\n", result.SessionID)
	}
	fmt.Fprintf(&b, "Plateau: %dx%d\n", result.Plateau.Xmax, result.Plateau.Ymax)

	b.WriteString("\nReports:\n")
	for _, report := range result.Reports {
		fmt.Fprintf(&b, "%s\n", report)
	}

	if f := result.Failure; f != nil {
		fmt.Fprintf(&b, "\nFailure (%s): %s\n", f.Kind, f.Message)
		if f.Position != nil {
			fmt.Fprintf(&b, "Rover #%d blocked at %s\n", f.Rover+1, f.Position)
		}
	}

	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	result := fmt.Sprintf("Step History (Page %d/%d), Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalSteps)

	for _, step := range history.Steps {
		result += fmt.Sprintf("%d. rover #%d %s %s %s -> %s %s\n",
			step.Index, step.Rover+1, step.Instruction.Letter(),
			step.From, step.HeadingBefore.Letter(), step.To, step.HeadingAfter.Letter())
	}

	return result
}
