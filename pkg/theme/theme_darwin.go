//go:build darwin

package theme

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// systemPrefersDark reads AppleInterfaceStyle, which is only set while dark mode is on.
func systemPrefersDark() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "defaults", "read", "-g", "AppleInterfaceStyle").Output()
	if err != nil {
		// The key is absent in light mode and defaults exits non-zero.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(string(out)), "dark"), nil
}
