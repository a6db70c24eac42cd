// Package calendar is the events adapter: list, get, create, update and
// delete over the Google Calendar API.
//
// Create can ask the provider to provision a conferencing link. Update is
// partial: only fields set on EventUpdate are sent, through the PATCH
// method, so concurrent edits to other fields survive.
//
// Example usage:
//
//	client, err := calendar.New(ctx, executor.HTTPClient())
//	if err != nil {
//	    return err
//	}
//
//	events, next, err := client.List(ctx, calendar.PrimaryCalendar, calendar.ListOptions{
//	    TimeMin: time.Now(),
//	    TimeMax: time.Now().AddDate(0, 0, 7),
//	    Query:   "hearing",
//	})
package calendar
