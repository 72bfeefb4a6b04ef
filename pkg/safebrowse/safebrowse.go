// Package safebrowse validates URLs and opens them in the system browser.
//
// Two kinds of URL are accepted: web links shown in the viewer (news articles,
// browser history, reports) and the loopback address of the viewer's own window.
// Validation applies uniformly across platforms because the URL ends up on a
// command line.
package safebrowse

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

const maxURLLength = 2048

// Open validates a web link and opens it in the system browser.
func Open(ctx context.Context, rawURL string) error {
	if err := ValidateURL(rawURL); err != nil {
		return err
	}
	return open(ctx, rawURL)
}

// OpenLocal validates a loopback URL and opens it in the system browser.
func OpenLocal(ctx context.Context, rawURL string) error {
	if err := ValidateLocalURL(rawURL); err != nil {
		return err
	}
	return open(ctx, rawURL)
}

// ValidateURL accepts absolute http(s) links without credentials or unsafe characters.
func ValidateURL(rawURL string) error {
	u, err := parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return errors.New("must use HTTP or HTTPS")
	}
	if u.Hostname() == "" {
		return errors.New("host required")
	}
	if err := validateHost(u.Hostname()); err != nil {
		return fmt.Errorf("invalid host: %w", err)
	}
	return nil
}

// ValidateLocalURL accepts only http URLs on a loopback host with an explicit port.
func ValidateLocalURL(rawURL string) error {
	u, err := parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" {
		return errors.New("local URL must use HTTP")
	}
	host := u.Hostname()
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return errors.New("local URL must be on a loopback address")
		}
	}
	if u.Port() == "" {
		return errors.New("local URL must carry a port")
	}
	return nil
}

func parse(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, errors.New("URL cannot be empty")
	}
	if len(rawURL) > maxURLLength {
		return nil, fmt.Errorf("URL exceeds maximum length of %d", maxURLLength)
	}

	for i, r := range rawURL {
		if r <= 0x20 || r == 0x7F || r > 127 {
			return nil, fmt.Errorf("invalid character at position %d", i)
		}
		if strings.ContainsRune(`"'<>\^{}|`+"`", r) {
			return nil, fmt.Errorf("unsafe character %q at position %d", r, i)
		}
	}
	if err := validateEscapes(rawURL); err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.User != nil {
		return nil, errors.New("user info not allowed")
	}
	if u.Opaque != "" {
		return nil, errors.New("opaque URLs not allowed")
	}
	return u, nil
}

// validateEscapes rejects percent-encoded control characters, which survive
// character checks but decode into something a launcher may interpret.
func validateEscapes(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
			return fmt.Errorf("malformed escape at position %d", i)
		}
		if s[i+1] < '2' || (s[i+1] == '7' && (s[i+2] == 'f' || s[i+2] == 'F')) {
			return fmt.Errorf("encoded control character at position %d", i)
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// validateHost allows DNS names and IP literals.
func validateHost(host string) error {
	if net.ParseIP(host) != nil {
		return nil
	}
	for _, r := range host {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '.') {
			return fmt.Errorf("unsafe character %q", r)
		}
	}
	if strings.HasPrefix(host, "-") || strings.Contains(host, "..") {
		return errors.New("malformed host name")
	}
	return nil
}

// open opens a URL in the system browser.
func open(ctx context.Context, rawURL string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "/usr/bin/open", "-u", rawURL)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32.exe", "url.dll,FileProtocolHandler", rawURL)
	default:
		xdgOpen, err := findXDGOpen()
		if err != nil {
			return err
		}
		cmd = exec.CommandContext(ctx, xdgOpen, rawURL)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	// Reap the launcher so it does not linger as a zombie.
	go cmd.Wait() //nolint:errcheck // launcher exit status is irrelevant
	return nil
}

// findXDGOpen locates xdg-open on Unix systems.
func findXDGOpen() (string, error) {
	if path, err := exec.LookPath("xdg-open"); err == nil {
		return path, nil
	}

	for _, path := range []string{
		"/usr/local/bin/xdg-open",
		"/usr/bin/xdg-open",
		"/usr/pkg/bin/xdg-open",
		"/opt/local/bin/xdg-open",
	} {
		if _, err := exec.LookPath(path); err == nil {
			return path, nil
		}
	}

	return "", errors.New("xdg-open not found")
}
