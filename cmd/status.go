package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/lexsync/internal/api"
	"github.com/teemow/lexsync/internal/session"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether lexsync holds a usable Google credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")

	return cmd
}

type statusReport struct {
	session.Status
	User *api.GoogleUserInfo `json:"user,omitempty"`
}

func runStatus(ctx context.Context, w io.Writer, asJSON bool) error {
	rt, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	report := statusReport{Status: rt.session.Status(ctx)}
	if report.Authenticated || report.Refreshable {
		// UserInfo refreshes an expired token, so re-read the status after.
		if info, err := rt.session.UserInfo(ctx); err == nil {
			report.User = info
			report.Status = rt.session.Status(ctx)
		} else {
			fmt.Fprintf(os.Stderr, "Could not read the account: %v\n", err)
		}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	writeStatus(w, report, time.Now())
	return nil
}

func writeStatus(w io.Writer, r statusReport, now time.Time) {
	if !r.Authenticated && !r.Refreshable {
		fmt.Fprintln(w, "Not signed in. Run 'lexsync login'.")
		return
	}

	if r.User != nil {
		fmt.Fprintf(w, "Account:     %s\n", r.User.Email)
	}
	switch {
	case r.Authenticated && !r.ExpiresAt.IsZero():
		fmt.Fprintf(w, "Token:       valid for %s\n", r.ExpiresAt.Sub(now).Round(time.Second))
	case r.Authenticated:
		fmt.Fprintln(w, "Token:       valid")
	default:
		fmt.Fprintln(w, "Token:       expired")
	}
	fmt.Fprintf(w, "Refreshable: %t\n", r.Refreshable)
	if len(r.Scopes) > 0 {
		fmt.Fprintf(w, "Scopes:      %s\n", strings.Join(r.Scopes, " "))
	}
}
