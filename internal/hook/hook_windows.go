//go:build windows

package hook

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"keyswitch/internal/keys"
)

var (
	user32DLL = windows.NewLazySystemDLL("user32.dll")
	kernelDLL = windows.NewLazySystemDLL("kernel32.dll")

	procSetWindowsHookExW   = user32DLL.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32DLL.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32DLL.NewProc("CallNextHookEx")
	procGetMessageW         = user32DLL.NewProc("GetMessageW")
	procTranslateMessage    = user32DLL.NewProc("TranslateMessage")
	procDispatchMessageW    = user32DLL.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32DLL.NewProc("PostThreadMessageW")
	procPeekMessageW        = user32DLL.NewProc("PeekMessageW")
	procGetModuleHandleW    = kernelDLL.NewProc("GetModuleHandleW")
)

const (
	whKeyboardLL = 13
	hcAction     = 0

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
	wmQuit       = 0x0012
	pmNoRemove   = 0x0000

	stopTimeout = 2 * time.Second
)

// kbdllHookStruct mirrors KBDLLHOOKSTRUCT from winuser.h.
type kbdllHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type point struct {
	x int32
	y int32
}

// winMsg mirrors the Win32 MSG struct. The layout must match on both 32-bit
// and 64-bit Windows.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

var (
	// installed is the dispatcher the OS callback forwards to.
	installed atomic.Pointer[Dispatcher]

	// keyboardProcPtr is created once; the runtime caps the number of
	// callbacks a process may allocate.
	keyboardProcPtr = windows.NewCallback(lowLevelKeyboardProc)
)

type activeHook struct {
	threadID uint32
	doneCh   chan struct{}
}

type loopReady struct {
	threadID uint32
	err      error
}

// Hook owns the hook thread and its message loop.
type Hook struct {
	mu     sync.Mutex
	active *activeHook
}

// New returns an idle hook.
func New() *Hook {
	return &Hook{}
}

// Start installs a low-level keyboard hook that routes every key transition
// through d.
func (h *Hook) Start(d *Dispatcher) error {
	if d == nil {
		return errors.New("dispatcher is required")
	}
	if err := user32DLL.Load(); err != nil {
		return fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	if err := kernelDLL.Load(); err != nil {
		return fmt.Errorf("kernel32.dll is unavailable: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active != nil {
		return ErrAlreadyInstalled
	}
	if !installed.CompareAndSwap(nil, d) {
		return ErrAlreadyInstalled
	}

	readyCh := make(chan loopReady, 1)
	doneCh := make(chan struct{})
	go runHookLoop(readyCh, doneCh)

	ready := <-readyCh
	if ready.err != nil {
		installed.Store(nil)
		return fmt.Errorf("install keyboard hook: %w", ready.err)
	}

	h.active = &activeHook{threadID: ready.threadID, doneCh: doneCh}
	slog.Info("[hook] keyboard hook installed", "threadID", ready.threadID)
	return nil
}

// Stop removes the hook and waits for the message loop to exit.
func (h *Hook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return nil
	}
	ah := h.active
	h.active = nil
	defer installed.Store(nil)

	stopErr := postQuit(ah.threadID)

	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()
	select {
	case <-ah.doneCh:
	case <-timer.C:
		slog.Warn("[hook] DEBUG message loop stop timed out, thread may leak", "threadID", ah.threadID)
		stopErr = errors.Join(stopErr, errors.New("keyboard hook message loop stop timed out"))
	}
	return stopErr
}

func runHookLoop(readyCh chan<- loopReady, doneCh chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(doneCh)

	threadID := windows.GetCurrentThreadId()
	if threadID == 0 {
		readyCh <- loopReady{err: errors.New("GetCurrentThreadId returned 0")}
		return
	}

	// Creates the thread message queue so that Stop can post WM_QUIT.
	var qmsg winMsg
	ret, _, peekErr := procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove)
	if ret == 0 && peekErr != syscall.Errno(0) {
		slog.Warn("[hook] DEBUG PeekMessageW for queue init returned error", "error", peekErr)
	}

	module, _, _ := procGetModuleHandleW.Call(0)
	handle, _, hookErr := procSetWindowsHookExW.Call(whKeyboardLL, keyboardProcPtr, module, 0)
	if handle == 0 {
		if hookErr == syscall.Errno(0) {
			hookErr = errors.New("SetWindowsHookExW failed")
		}
		readyCh <- loopReady{err: hookErr}
		return
	}
	defer func() {
		if res, _, err := procUnhookWindowsHookEx.Call(handle); res == 0 {
			slog.Error("[hook] DEBUG UnhookWindowsHookEx failed", "error", err)
		}
	}()

	readyCh <- loopReady{threadID: threadID}

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			slog.Warn("[hook] DEBUG GetMessageW returned error, exiting loop", "error", lastErr)
			return
		case 0:
			slog.Info("[hook] message loop received WM_QUIT, exiting")
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

func lowLevelKeyboardProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) == hcAction {
		if d := installed.Load(); d != nil && verdictFor(d, wParam, lParam) == Suppress {
			return 1
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

func verdictFor(d *Dispatcher, wParam, lParam uintptr) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] keyboard hook callback panicked, passing event through", "panic", r)
			verdict = PassThrough
		}
	}()

	var down bool
	switch wParam {
	case wmKeyDown, wmSysKeyDown:
		down = true
	case wmKeyUp, wmSysKeyUp:
		down = false
	default:
		return PassThrough
	}

	info := (*kbdllHookStruct)(unsafe.Pointer(lParam))
	return d.Dispatch(Event{
		Key:       keys.VKey(info.vkCode),
		Down:      down,
		ExtraInfo: info.dwExtraInfo,
	})
}

func postQuit(threadID uint32) error {
	res, _, err := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("PostThreadMessageW failed")
	}
	return err
}
