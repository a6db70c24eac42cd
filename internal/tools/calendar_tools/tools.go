package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/lexsync/internal/server"
	"github.com/teemow/lexsync/internal/tools/common"
)

var calendarIDParam = mcp.WithString("calendarId",
	mcp.Description("Calendar ID (default: 'primary')"),
)

// RegisterCalendarTools registers the event tools with the MCP server.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listTool := mcp.NewTool("events_list",
		mcp.WithDescription("List calendar events in a time range, ordered by start time"),
		calendarIDParam,
		mcp.WithString("timeMin",
			mcp.Description("Lower bound for event start (RFC 3339 or YYYY-MM-DD)"),
		),
		mcp.WithString("timeMax",
			mcp.Description("Upper bound for event start (RFC 3339 or YYYY-MM-DD)"),
		),
		mcp.WithString("query",
			mcp.Description("Free text matched against summary, description, location and attendees"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of events to return (default: 50, max: 2500)"),
		),
		mcp.WithString("pageToken",
			mcp.Description("Page token from a previous events_list call"),
		),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler("events_list", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListEvents(ctx, request, sc)
	}))

	getTool := mcp.NewTool("events_get",
		mcp.WithDescription("Get a calendar event by ID"),
		calendarIDParam,
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("The event ID"),
		),
	)
	s.AddTool(getTool, common.InstrumentedToolHandler("events_get", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetEvent(ctx, request, sc)
	}))

	if readOnly {
		return nil
	}

	createTool := mcp.NewTool("events_create",
		mcp.WithDescription("Create a calendar event, optionally with a video conference link"),
		calendarIDParam,
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start time (RFC 3339, or YYYY-MM-DD for all-day events)"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End time (RFC 3339, or YYYY-MM-DD for all-day events)"),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone, e.g. 'Europe/Berlin' (default: UTC)"),
		),
		mcp.WithBoolean("allDay",
			mcp.Description("Create an all-day event (default: false)"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated attendee email addresses"),
		),
		mcp.WithBoolean("conference",
			mcp.Description("Attach a video conference link (default: false)"),
		),
	)
	s.AddTool(createTool, common.InstrumentedToolHandler("events_create", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCreateEvent(ctx, request, sc)
	}))

	updateTool := mcp.NewTool("events_update",
		mcp.WithDescription("Change fields of a calendar event. Omitted fields keep their value."),
		calendarIDParam,
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("The event ID"),
		),
		mcp.WithString("summary",
			mcp.Description("New title"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("location",
			mcp.Description("New location"),
		),
		mcp.WithString("start",
			mcp.Description("New start time (RFC 3339 or YYYY-MM-DD)"),
		),
		mcp.WithString("end",
			mcp.Description("New end time (RFC 3339 or YYYY-MM-DD)"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone for the new start and end"),
		),
		mcp.WithBoolean("allDay",
			mcp.Description("Treat the new start and end as all-day dates"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated attendee list replacing the current one"),
		),
	)
	s.AddTool(updateTool, common.InstrumentedToolHandler("events_update", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleUpdateEvent(ctx, request, sc)
	}))

	deleteTool := mcp.NewTool("events_delete",
		mcp.WithDescription("Delete one or more calendar events"),
		calendarIDParam,
		mcp.WithString("eventIds",
			mcp.Required(),
			mcp.Description("Event ID (string) or array of event IDs to delete"),
		),
	)
	s.AddTool(deleteTool, common.InstrumentedToolHandler("events_delete", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleDeleteEvents(ctx, request, sc)
	}))

	return nil
}
