//go:build !windows

package syshotkey

type registryReader struct{}

func (registryReader) ReadString(string, string) (string, error) {
	return "", ErrNotFound
}
