//go:build linux || darwin || freebsd || netbsd || openbsd

package platform

import "golang.org/x/sys/unix"

// HostDescription returns "<sysname> <release> <machine>" from uname.
func HostDescription() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return fallbackHostDescription()
	}
	return unix.ByteSliceToString(u.Sysname[:]) + " " +
		unix.ByteSliceToString(u.Release[:]) + " " +
		unix.ByteSliceToString(u.Machine[:])
}
