// Package calendar_tools exposes calendar events as MCP tools: events_list,
// events_get, events_create, events_update and events_delete. The write
// tools are left out in read-only mode.
package calendar_tools
