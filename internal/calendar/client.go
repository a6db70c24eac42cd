package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/lexsync/internal/api"
	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/logging"
)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at a different API root, e.g. a test server.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps the Google Calendar service
type Client struct {
	svc *calendar.Service

	endpoint string
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	newID    func() string
}

// New creates a Client on top of hc, which must attach the credential.
func New(ctx context.Context, hc *http.Client, opts ...Option) (*Client, error) {
	c := &Client{
		logger: logging.Discard(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithService(c.logger, instrumentation.ServiceEvents)

	svcOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(c.endpoint))
	}

	svc, err := calendar.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	c.svc = svc
	return c, nil
}

func (c *Client) track(ctx context.Context, op, id string) (context.Context, func(error) error) {
	var attrs []attribute.KeyValue
	if id != "" {
		attrs = append(attrs, attribute.String(instrumentation.SpanAttrResourceID, id))
	}
	return api.Track(ctx, c.metrics, instrumentation.ServiceEvents, op, attrs...)
}

func calendarOrPrimary(id string) string {
	if id == "" {
		return PrimaryCalendar
	}
	return id
}

// List returns one page of events ordered by start time, expanding
// recurring events into instances, and the token for the next page.
func (c *Client) List(ctx context.Context, calendarID string, opts ListOptions) ([]EventSummary, string, error) {
	ctx, done := c.track(ctx, instrumentation.OperationList, "")

	call := c.svc.Events.List(calendarOrPrimary(calendarID)).
		Context(ctx).
		SingleEvents(true).
		OrderBy("startTime")

	if !opts.TimeMin.IsZero() {
		call = call.TimeMin(opts.TimeMin.Format(time.RFC3339))
	}
	if !opts.TimeMax.IsZero() {
		call = call.TimeMax(opts.TimeMax.Format(time.RFC3339))
	}
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}
	if opts.MaxResults > 0 {
		call = call.MaxResults(opts.MaxResults)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	events, err := call.Do()
	if err != nil {
		return nil, "", done(err)
	}
	done(nil)

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event))
	}
	return summaries, events.NextPageToken, nil
}

// Get retrieves a specific event by ID
func (c *Client) Get(ctx context.Context, calendarID, eventID string) (*EventSummary, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	ctx, done := c.track(ctx, instrumentation.OperationGet, eventID)

	event, err := c.svc.Events.Get(calendarOrPrimary(calendarID), eventID).Context(ctx).Do()
	if err != nil {
		return nil, done(err)
	}
	done(nil)

	summary := toEventSummary(event)
	return &summary, nil
}

// Create creates a new calendar event
func (c *Client) Create(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	if input.Summary == "" {
		return nil, fmt.Errorf("event summary is required")
	}
	if input.Start.IsZero() || input.End.IsZero() {
		return nil, fmt.Errorf("event start and end are required")
	}
	if input.End.Before(input.Start) {
		return nil, fmt.Errorf("event end is before its start")
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start:       toEventDateTime(input.Start, input.AllDay, input.TimeZone),
		End:         toEventDateTime(input.End, input.AllDay, input.TimeZone),
	}
	if len(input.Attendees) > 0 {
		event.Attendees = toAttendees(input.Attendees)
	}

	call := c.svc.Events.Insert(calendarOrPrimary(calendarID), event)
	if input.Conference {
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             c.newID(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
		call = call.ConferenceDataVersion(1)
	}

	ctx, done := c.track(ctx, instrumentation.OperationCreate, "")

	created, err := call.Context(ctx).Do()
	if err != nil {
		return nil, done(err)
	}
	done(nil)

	c.logger.Info("event created", slog.Bool("conference", input.Conference))
	summary := toEventSummary(created)
	return &summary, nil
}

// Update applies a partial change to an event. Only fields set on update
// are sent.
func (c *Client) Update(ctx context.Context, calendarID, eventID string, update EventUpdate) (*EventSummary, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	patch := &calendar.Event{}
	if update.Summary != nil {
		patch.Summary = *update.Summary
		patch.ForceSendFields = append(patch.ForceSendFields, "Summary")
	}
	if update.Description != nil {
		patch.Description = *update.Description
		patch.ForceSendFields = append(patch.ForceSendFields, "Description")
	}
	if update.Location != nil {
		patch.Location = *update.Location
		patch.ForceSendFields = append(patch.ForceSendFields, "Location")
	}
	if update.Start != nil {
		patch.Start = toEventDateTime(*update.Start, update.AllDay, update.TimeZone)
	}
	if update.End != nil {
		patch.End = toEventDateTime(*update.End, update.AllDay, update.TimeZone)
	}
	if update.Attendees != nil {
		patch.Attendees = toAttendees(update.Attendees)
		patch.ForceSendFields = append(patch.ForceSendFields, "Attendees")
	}

	ctx, done := c.track(ctx, instrumentation.OperationUpdate, eventID)

	updated, err := c.svc.Events.Patch(calendarOrPrimary(calendarID), eventID, patch).Context(ctx).Do()
	if err != nil {
		return nil, done(err)
	}
	done(nil)

	summary := toEventSummary(updated)
	return &summary, nil
}

// Delete deletes a calendar event
func (c *Client) Delete(ctx context.Context, calendarID, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}

	ctx, done := c.track(ctx, instrumentation.OperationDelete, eventID)
	return done(c.svc.Events.Delete(calendarOrPrimary(calendarID), eventID).Context(ctx).Do())
}
