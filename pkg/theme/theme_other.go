//go:build !linux && !freebsd && !openbsd && !netbsd && !dragonfly && !solaris && !illumos && !aix && !darwin

package theme

import "errors"

func systemPrefersDark() (bool, error) {
	return false, errors.New("system color scheme not available on this platform")
}
