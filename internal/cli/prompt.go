package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/rescale/rescale-staging/internal/config"
	"github.com/rescale/rescale-staging/internal/http"
)

// ensureProxyPassword prompts for the proxy password when the proxy needs
// one and the config does not carry it. Without a terminal it fails instead.
func ensureProxyPassword(cfg *config.Config) error {
	if !http.NeedsProxyPassword(cfg) {
		return nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("proxy user %q has no password: set [proxy] password in the config file", cfg.ProxyUser)
	}

	fmt.Fprintf(os.Stderr, "Proxy password for %s: ", cfg.ProxyUser)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read proxy password: %w", err)
	}
	cfg.ProxyPassword = string(password)
	return nil
}
