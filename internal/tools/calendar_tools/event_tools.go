package calendar_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/lexsync/internal/calendar"
	"github.com/teemow/lexsync/internal/server"
	"github.com/teemow/lexsync/internal/tools/batch"
	"github.com/teemow/lexsync/internal/tools/common"
)

const maxListResults = 2500

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	opts := calendar.ListOptions{
		Query:      common.StringArg(args, "query"),
		MaxResults: common.IntArg(args, "maxResults", 50),
		PageToken:  common.StringArg(args, "pageToken"),
	}
	if opts.MaxResults < 1 || opts.MaxResults > maxListResults {
		return mcp.NewToolResultError(fmt.Sprintf("maxResults must be between 1 and %d", maxListResults)), nil
	}

	var err error
	if opts.TimeMin, _, err = common.TimeArg(args, "timeMin"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if opts.TimeMax, _, err = common.TimeArg(args, "timeMax"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !opts.TimeMin.IsZero() && !opts.TimeMax.IsZero() && opts.TimeMax.Before(opts.TimeMin) {
		return mcp.NewToolResultError("timeMax is before timeMin"), nil
	}

	events, next, err := sc.Session().Events().List(ctx, common.StringArg(args, "calendarId"), opts)
	if err != nil {
		return common.ErrorResult("Failed to list events", err), nil
	}

	return common.JSONResult(fmt.Sprintf("Found %d event(s):", len(events)), map[string]any{
		"events":        events,
		"nextPageToken": next,
	})
}

func handleGetEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	eventID, err := common.RequiredString(args, "eventId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	event, err := sc.Session().Events().Get(ctx, common.StringArg(args, "calendarId"), eventID)
	if err != nil {
		return common.ErrorResult("Failed to get event", err), nil
	}
	return common.JSONResult("", event)
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	summary, err := common.RequiredString(args, "summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, ok, err := common.TimeArg(args, "start")
	if err != nil || !ok {
		return mcp.NewToolResultError("start is required as an RFC 3339 time or a YYYY-MM-DD date"), nil
	}
	end, ok, err := common.TimeArg(args, "end")
	if err != nil || !ok {
		return mcp.NewToolResultError("end is required as an RFC 3339 time or a YYYY-MM-DD date"), nil
	}

	event, err := sc.Session().Events().Create(ctx, common.StringArg(args, "calendarId"), calendar.EventInput{
		Summary:     summary,
		Description: common.StringArg(args, "description"),
		Location:    common.StringArg(args, "location"),
		Start:       start,
		End:         end,
		TimeZone:    common.StringArg(args, "timeZone"),
		AllDay:      common.BoolArg(args, "allDay", false),
		Attendees:   common.ParseCommaList(common.StringArg(args, "attendees")),
		Conference:  common.BoolArg(args, "conference", false),
	})
	if err != nil {
		return common.ErrorResult("Failed to create event", err), nil
	}
	return common.JSONResult("Event created:", event)
}

func handleUpdateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	eventID, err := common.RequiredString(args, "eventId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	update := calendar.EventUpdate{
		TimeZone: common.StringArg(args, "timeZone"),
		AllDay:   common.BoolArg(args, "allDay", false),
	}
	changed := false
	for name, field := range map[string]**string{
		"summary":     &update.Summary,
		"description": &update.Description,
		"location":    &update.Location,
	} {
		if v, ok := args[name].(string); ok {
			*field = &v
			changed = true
		}
	}
	for name, field := range map[string]**time.Time{
		"start": &update.Start,
		"end":   &update.End,
	} {
		t, ok, err := common.TimeArg(args, name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if ok {
			*field = &t
			changed = true
		}
	}
	if v, ok := args["attendees"].(string); ok {
		update.Attendees = common.ParseCommaList(v)
		if update.Attendees == nil {
			update.Attendees = []string{}
		}
		changed = true
	}
	if !changed {
		return mcp.NewToolResultError("nothing to update"), nil
	}

	event, err := sc.Session().Events().Update(ctx, common.StringArg(args, "calendarId"), eventID, update)
	if err != nil {
		return common.ErrorResult("Failed to update event", err), nil
	}
	return common.JSONResult("Event updated:", event)
}

func handleDeleteEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	ids, err := batch.ParseStringOrArray(args["eventIds"], "eventIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	calendarID := common.StringArg(args, "calendarId")
	events := sc.Session().Events()

	res := batch.Process(ctx, ids, func(ctx context.Context, id string) (string, error) {
		if err := events.Delete(ctx, calendarID, id); err != nil {
			return "", err
		}
		return "deleted", nil
	})
	return batch.ToolResult("delete events", res), nil
}
