package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and forget the stored Google credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context())
		},
	}
}

func runLogout(ctx context.Context) error {
	rt, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	if st := rt.session.Status(ctx); !st.Authenticated && !st.Refreshable {
		fmt.Fprintln(os.Stderr, "Not signed in.")
		return nil
	}
	if err := rt.session.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Signed out.")
	return nil
}
