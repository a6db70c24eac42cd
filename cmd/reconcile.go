package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/lexsync/internal/drive"
	"github.com/teemow/lexsync/internal/logging"
	"github.com/teemow/lexsync/internal/reconcile"
)

type reconcileOptions struct {
	dir      string
	folderID string
	download bool
	watch    bool
}

func newReconcileCmd() *cobra.Command {
	var opts reconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a local directory with a Drive folder",
		Long: `Upload every top-level file of a local directory that is missing from a
Drive folder or newer than the copy there. Files that only exist in the
folder are listed, and written to the directory with --download.

With --watch, lexsync keeps running and reconciles again whenever files in
the directory change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", ".", "Local directory")
	cmd.Flags().StringVar(&opts.folderID, "folder", drive.RootFolderID, "Drive folder ID; \"root\" is the top level of My Drive")
	cmd.Flags().BoolVar(&opts.download, "download", false, "Write remote-only files to the directory")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reconcile again whenever the directory changes")

	return cmd
}

func runReconcile(ctx context.Context, w io.Writer, opts reconcileOptions) error {
	if opts.folderID == "" {
		return fmt.Errorf("--folder must not be empty")
	}
	dir, err := filepath.Abs(opts.dir)
	if err != nil {
		return err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", opts.dir)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	once := func(ctx context.Context) error {
		return reconcileOnce(ctx, w, rt, dir, opts)
	}
	if !opts.watch {
		return once(ctx)
	}

	rt.logger.Info("watching directory", slog.String("dir", dir))
	return reconcile.Watch(ctx, dir, reconcile.DefaultDebounce, logging.WithOperation(rt.logger, "watch"), once)
}

func reconcileOnce(ctx context.Context, w io.Writer, rt *app, dir string, opts reconcileOptions) error {
	local, err := reconcile.ScanDir(dir)
	if err != nil {
		return err
	}

	var remoteOnly []*drive.FileInfo
	out, err := rt.session.Reconcile(ctx, local, opts.folderID, func(f *drive.FileInfo) {
		remoteOnly = append(remoteOnly, f)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Uploaded %d, remote only %d, conflicts %d\n", out.Uploaded, out.Downloaded, len(out.Conflicts))
	for _, name := range out.Conflicts {
		fmt.Fprintf(w, "  conflict: %s\n", name)
	}

	if !opts.download {
		for _, f := range remoteOnly {
			fmt.Fprintf(w, "  remote only: %s\n", f.Name)
		}
		return nil
	}

	fetched, err := reconcile.Fetch(ctx, dir, rt.session.Files(), remoteOnly)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Downloaded %d\n", fetched)
	return nil
}
