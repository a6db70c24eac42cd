package google

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/teemow/lexsync/internal/logging"
)

// Revoke asks the provider to revoke token. It is best effort: every
// failure is logged and swallowed so that a failed revocation never blocks
// local logout.
func (a *Authenticator) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		a.logger.Warn("token revocation request could not be built", logging.Err(err))
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("token revocation failed", logging.Err(err))
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.logger.Warn("token revocation rejected", slog.Int("status", resp.StatusCode))
		return
	}

	a.logger.Info("token revoked")
}
