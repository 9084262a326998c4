// Package procutil launches helper programs that must outlive the call.
// StartDetached starts a process in its own process group and releases it,
// so the caller never waits on or signals the child.
package procutil
