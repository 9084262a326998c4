//go:build windows

package sysaction

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"keyswitch/internal/action"
	"keyswitch/internal/inject"
	"keyswitch/internal/keys"
	"keyswitch/internal/procutil"
)

var (
	user32DLL = windows.NewLazySystemDLL("user32.dll")

	procSendInput           = user32DLL.NewProc("SendInput")
	procGetForegroundWindow = user32DLL.NewProc("GetForegroundWindow")
	procPostMessageW        = user32DLL.NewProc("PostMessageW")
	procFindWindowW         = user32DLL.NewProc("FindWindowW")
	procLockWorkStation     = user32DLL.NewProc("LockWorkStation")
)

// SynthesizeKey sends a press and release of vk carrying the injection
// marker.
func (e *Executor) SynthesizeKey(vk keys.VKey) error {
	inputs := keyPress(vk, inject.Marker())
	sent, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(sent) != len(inputs) {
		return fmt.Errorf("SendInput %s: sent %d of %d events: %w", vk, sent, len(inputs), callErr(err, "SendInput failed"))
	}
	return nil
}

// PostToForeground posts msg to the window that currently has focus.
func (e *Executor) PostToForeground(msg uint32, wParam, lParam uintptr) error {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return ErrNoForegroundWindow
	}
	return postMessage(hwnd, msg, wParam, lParam)
}

// InvokeSystemFunction performs one of the built-in system functions.
func (e *Executor) InvokeSystemFunction(fn action.SystemFunction) error {
	if wParam, ok := languageRequest(fn); ok {
		return e.PostToForeground(wmInputLangChangeRequest, wParam, 0)
	}

	switch fn {
	case action.LockWorkstation:
		if res, _, err := procLockWorkStation.Call(); res == 0 {
			return fmt.Errorf("lock workstation: %w", callErr(err, "LockWorkStation failed"))
		}
		return nil
	case action.ShowDesktop:
		className, err := windows.UTF16PtrFromString(trayClassName)
		if err != nil {
			return err
		}
		tray, _, _ := procFindWindowW.Call(uintptr(unsafe.Pointer(className)), 0)
		if tray == 0 {
			return fmt.Errorf("show desktop: %s window not found", trayClassName)
		}
		return postMessage(tray, wmCommand, trayShowDesktop, 0)
	case action.TaskManager:
		return procutil.StartDetached(exec.Command(taskManagerExe))
	case action.ToggleCapsLock:
		return e.SynthesizeKey(keys.Capital)
	}
	return fmt.Errorf("%s: %w", fn, action.ErrUnsupported)
}

func postMessage(hwnd uintptr, msg uint32, wParam, lParam uintptr) error {
	res, _, err := procPostMessageW.Call(hwnd, uintptr(msg), wParam, lParam)
	if res == 0 {
		return fmt.Errorf("post message 0x%X: %w", msg, callErr(err, "PostMessageW failed"))
	}
	return nil
}

func callErr(err error, fallback string) error {
	if err == nil || err == syscall.Errno(0) {
		return errors.New(fallback)
	}
	return err
}
