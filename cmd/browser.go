package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/teemow/lexsync/internal/logging"
)

// openBrowser shows url to the user. The system browser is only launched
// from an interactive terminal; otherwise, or when launching fails, the URL
// is printed to w.
func openBrowser(w io.Writer, url string, allowLaunch bool) {
	if allowLaunch && logging.IsTerminal(os.Stdin) && logging.IsTerminal(os.Stdout) {
		if err := browserCommand(url).Start(); err == nil {
			fmt.Fprintf(w, "Opening your browser to sign in. If nothing happens, visit:\n\n  %s\n\n", url)
			return
		}
	}
	fmt.Fprintf(w, "Visit this URL to sign in:\n\n  %s\n\n", url)
}

func browserCommand(url string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return exec.Command("xdg-open", url)
	}
}
