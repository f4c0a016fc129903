package platform

import "runtime"

func fallbackHostDescription() string {
	return runtime.GOOS + " " + runtime.GOARCH
}
