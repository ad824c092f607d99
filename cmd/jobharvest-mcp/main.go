package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// searchRequest mirrors the jobharvest API request model.
type searchRequest struct {
	Query      string `json:"query"`
	Location   string `json:"location,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
	RemoteOnly *bool  `json:"remote_only,omitempty"`
}

// searchResponse mirrors the jobharvest API response model.
type searchResponse struct {
	Success bool `json:"success"`
	Records []struct {
		Title           string  `json:"title"`
		Company         string  `json:"company"`
		Location        string  `json:"location"`
		Snippet         string  `json:"snippet"`
		URL             string  `json:"url"`
		PostedAt        string  `json:"posted_at"`
		CompensationMin float64 `json:"compensation_min"`
		CompensationMax float64 `json:"compensation_max"`
		RemoteType      string  `json:"remote_type"`
	} `json:"records"`
	Summary *struct {
		Records        int `json:"records"`
		PagesFetched   int `json:"pages_fetched"`
		PagesAbandoned int `json:"pages_abandoned"`
	} `json:"summary"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("JOBHARVEST_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("JOBHARVEST_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "JOBHARVEST_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"jobharvest",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	searchJobsTool := mcp.NewTool("search_jobs",
		mcp.WithDescription("Search a job board for listings matching a query. Returns normalized job records with title, company, location, compensation, and detail URL. A search crawls multiple pages and can take several minutes."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The job search query, e.g. 'software engineer'"),
		),
		mcp.WithString("location",
			mcp.Description("Location filter (default: 'Remote')"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of listings to return (default: 50, max: 200)"),
		),
		mcp.WithBoolean("remote_only",
			mcp.Description("Restrict to remote listings (default: true)"),
		),
	)

	s.AddTool(searchJobsTool, handleSearchJobs(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleSearchJobs(apiURL, apiKey string) server.ToolHandlerFunc {
	// A crawl paces itself against anti-bot timing, so the client timeout has
	// to cover minutes, not seconds.
	client := &http.Client{Timeout: 30 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		reqBody := searchRequest{
			Query:      query,
			Location:   request.GetString("location", ""),
			MaxResults: request.GetInt("max_results", 0),
		}
		if args := request.GetArguments(); args != nil {
			if v, ok := args["remote_only"].(bool); ok {
				reqBody.RemoteOnly = &v
			}
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/search", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var searchResp searchResponse
		if err := json.Unmarshal(respBody, &searchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !searchResp.Success {
			errMsg := "search failed"
			if searchResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", searchResp.Error.Code, searchResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		if searchResp.Summary != nil {
			sb.WriteString(fmt.Sprintf("Found %d listings (%d pages fetched, %d abandoned)\n\n",
				searchResp.Summary.Records,
				searchResp.Summary.PagesFetched,
				searchResp.Summary.PagesAbandoned,
			))
		}
		for i, r := range searchResp.Records {
			sb.WriteString(fmt.Sprintf("--- [%d] %s at %s ---\n", i+1, r.Title, r.Company))
			if r.Location != "" {
				sb.WriteString("Location: " + r.Location)
				if r.RemoteType != "" {
					sb.WriteString(" (" + r.RemoteType + ")")
				}
				sb.WriteString("\n")
			}
			if r.CompensationMin > 0 {
				if r.CompensationMax > r.CompensationMin {
					sb.WriteString(fmt.Sprintf("Compensation: $%.0f - $%.0f/yr\n", r.CompensationMin, r.CompensationMax))
				} else {
					sb.WriteString(fmt.Sprintf("Compensation: $%.0f/yr\n", r.CompensationMin))
				}
			}
			if r.PostedAt != "" {
				sb.WriteString("Posted: " + r.PostedAt + "\n")
			}
			if r.Snippet != "" {
				sb.WriteString(r.Snippet + "\n")
			}
			sb.WriteString(r.URL + "\n\n")
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
