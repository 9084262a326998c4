//go:build windows

package main

import "golang.org/x/sys/windows"

// setConsoleUTF8 switches the console to UTF-8 so the binding banner's
// arrows render.
func setConsoleUTF8() {
	kernel32 := windows.NewLazySystemDLL("kernel32.dll")
	kernel32.NewProc("SetConsoleOutputCP").Call(65001)
	kernel32.NewProc("SetConsoleCP").Call(65001)
}
