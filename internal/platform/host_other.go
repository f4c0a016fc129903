//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package platform

// HostDescription returns GOOS and GOARCH on hosts without uname.
func HostDescription() string {
	return fallbackHostDescription()
}
