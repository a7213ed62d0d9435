//go:build windows

package overlay

import (
	"fmt"
	"image"
	"log"
	"os"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"screen-translate-overlay/src/messages"
)

const (
	wmPresent     = win.WM_APP + 1
	wmDestroyReq  = win.WM_APP + 2
	wmMouseLeave  = 0x02A3
	tmeLeave      = 0x00000002
	ulwAlpha      = 0x00000002
	acSrcOver     = 0x00
	acSrcAlpha    = 0x01
	overlayClass  = "ScreenTranslateOverlay"
	overlayTitle  = "Screen Translate Overlay"
	eventQueueLen = 256
)

var (
	user32DLL                    = windows.NewLazySystemDLL("user32.dll")
	procUpdateLayeredWindow      = user32DLL.NewProc("UpdateLayeredWindow")
	procTrackMouseEvent          = user32DLL.NewProc("TrackMouseEvent")
	procAllowSetForegroundWindow = user32DLL.NewProc("AllowSetForegroundWindow")

	registerOnce sync.Once
	registerErr  error

	// hwnd -> *nativeSurface, for the shared window procedure.
	nativeSurfaces sync.Map
)

type blendFunction struct {
	BlendOp             byte
	BlendFlags          byte
	SourceConstantAlpha byte
	AlphaFormat         byte
}

type trackMouseEvent struct {
	CbSize      uint32
	DwFlags     uint32
	HwndTrack   win.HWND
	DwHoverTime uint32
}

type winSize struct {
	CX, CY int32
}

// nativeSurface is a borderless, topmost, per-pixel-alpha layered window.
// The Win32 window and its message loop live on one locked OS thread; frames
// are handed over under mu and shown on that thread.
type nativeSurface struct {
	id     messages.WindowID
	hwnd   win.HWND
	events chan Event

	mu      sync.Mutex
	pending []byte // BGRA, premultiplied
	size    image.Point
	bounds  image.Rectangle
	alpha   uint8
	cursor  Cursor
	closed  bool

	// Loop-thread only.
	memDC    win.HDC
	dib      win.HBITMAP
	oldBmp   win.HGDIOBJ
	bits     unsafe.Pointer
	dibSize  image.Point
	tracking bool
}

// NativeFactory opens layered Win32 windows.
func NativeFactory() (SurfaceFactory, error) {
	return func(id messages.WindowID, bounds image.Rectangle) (Surface, error) {
		return newNativeSurface(id, bounds)
	}, nil
}

func newNativeSurface(id messages.WindowID, bounds image.Rectangle) (*nativeSurface, error) {
	s := &nativeSurface{
		id:     id,
		events: make(chan Event, eventQueueLen),
		bounds: bounds,
		cursor: CursorArrow,
	}
	ready := make(chan error, 1)
	go s.loop(bounds, ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return s, nil
}

func registerClass() error {
	registerOnce.Do(func() {
		wndClass := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			Style:         win.CS_HREDRAW | win.CS_VREDRAW,
			LpfnWndProc:   syscall.NewCallback(overlayWndProc),
			HInstance:     win.GetModuleHandle(nil),
			HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_ARROW)),
			LpszClassName: syscall.StringToUTF16Ptr(overlayClass),
		}
		if atom := win.RegisterClassEx(&wndClass); atom == 0 {
			registerErr = fmt.Errorf("failed to register window class %s", overlayClass)
		}
	})
	return registerErr
}

func (s *nativeSurface) loop(bounds image.Rectangle, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.events)

	if err := registerClass(); err != nil {
		ready <- err
		return
	}

	hwnd := win.CreateWindowEx(
		win.WS_EX_LAYERED|win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW,
		syscall.StringToUTF16Ptr(overlayClass),
		syscall.StringToUTF16Ptr(overlayTitle),
		win.WS_POPUP,
		int32(bounds.Min.X), int32(bounds.Min.Y), int32(bounds.Dx()), int32(bounds.Dy()),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		ready <- fmt.Errorf("failed to create overlay window for %s", s.id)
		return
	}
	s.hwnd = hwnd
	nativeSurfaces.Store(hwnd, s)
	log.Printf("Overlay: native window %v for %s at %v", hwnd, s.id, bounds)
	ready <- nil

	win.ShowWindow(hwnd, win.SW_SHOW)
	procAllowSetForegroundWindow.Call(uintptr(os.Getpid()))
	win.SetForegroundWindow(hwnd)
	win.SetFocus(hwnd)

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 {
			break
		}
		if ret == -1 {
			log.Printf("Overlay: GetMessage error for %s", s.id)
			break
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
	s.releaseDIB()
}

func (s *nativeSurface) Events() <-chan Event { return s.events }

func (s *nativeSurface) Present(frame *image.RGBA, bounds image.Rectangle, alpha uint8) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSurfaceClosed
	}
	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	if len(s.pending) != w*h*4 {
		s.pending = make([]byte, w*h*4)
	}
	// image.RGBA is premultiplied like the layered window expects; only the
	// channel order differs.
	for y := 0; y < h; y++ {
		src := frame.Pix[y*frame.Stride : y*frame.Stride+w*4]
		dst := s.pending[y*w*4 : (y+1)*w*4]
		for i := 0; i < len(src); i += 4 {
			dst[i] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i]
			dst[i+3] = src[i+3]
		}
	}
	s.size = image.Pt(w, h)
	s.bounds = bounds
	s.alpha = alpha
	hwnd := s.hwnd
	s.mu.Unlock()

	win.PostMessage(hwnd, wmPresent, 0, 0)
	return nil
}

func (s *nativeSurface) SetCursor(c Cursor) {
	s.mu.Lock()
	s.cursor = c
	s.mu.Unlock()
}

func (s *nativeSurface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	hwnd := s.hwnd
	s.mu.Unlock()
	win.PostMessage(hwnd, wmDestroyReq, 0, 0)
	return nil
}

// blit shows the pending frame. Loop thread only.
func (s *nativeSurface) blit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.size.X == 0 || s.size.Y == 0 {
		return
	}
	if err := s.ensureDIB(s.size); err != nil {
		log.Printf("Overlay: %v", err)
		return
	}
	copy(unsafe.Slice((*byte)(s.bits), len(s.pending)), s.pending)

	screenDC := win.GetDC(0)
	defer win.ReleaseDC(0, screenDC)

	dst := win.POINT{X: int32(s.bounds.Min.X), Y: int32(s.bounds.Min.Y)}
	size := winSize{CX: int32(s.size.X), CY: int32(s.size.Y)}
	src := win.POINT{}
	blend := blendFunction{
		BlendOp:             acSrcOver,
		SourceConstantAlpha: s.alpha,
		AlphaFormat:         acSrcAlpha,
	}
	ret, _, err := procUpdateLayeredWindow.Call(
		uintptr(s.hwnd),
		uintptr(screenDC),
		uintptr(unsafe.Pointer(&dst)),
		uintptr(unsafe.Pointer(&size)),
		uintptr(s.memDC),
		uintptr(unsafe.Pointer(&src)),
		0,
		uintptr(unsafe.Pointer(&blend)),
		ulwAlpha,
	)
	if ret == 0 {
		log.Printf("Overlay: UpdateLayeredWindow failed for %s: %v", s.id, err)
	}
}

func (s *nativeSurface) ensureDIB(size image.Point) error {
	if s.dib != 0 && s.dibSize == size {
		return nil
	}
	s.releaseDIB()

	screenDC := win.GetDC(0)
	defer win.ReleaseDC(0, screenDC)
	s.memDC = win.CreateCompatibleDC(screenDC)

	bitmapInfo := win.BITMAPINFO{
		BmiHeader: win.BITMAPINFOHEADER{
			BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
			BiWidth:       int32(size.X),
			BiHeight:      -int32(size.Y), // top-down
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: win.BI_RGB,
		},
	}
	s.dib = win.CreateDIBSection(s.memDC, &bitmapInfo.BmiHeader, win.DIB_RGB_COLORS, &s.bits, 0, 0)
	if s.dib == 0 {
		win.DeleteDC(s.memDC)
		s.memDC = 0
		return fmt.Errorf("CreateDIBSection failed for %s (%dx%d)", s.id, size.X, size.Y)
	}
	s.oldBmp = win.SelectObject(s.memDC, win.HGDIOBJ(s.dib))
	s.dibSize = size
	return nil
}

func (s *nativeSurface) releaseDIB() {
	if s.memDC != 0 {
		win.SelectObject(s.memDC, s.oldBmp)
		win.DeleteDC(s.memDC)
		s.memDC = 0
	}
	if s.dib != 0 {
		win.DeleteObject(win.HGDIOBJ(s.dib))
		s.dib = 0
	}
	s.bits = nil
	s.dibSize = image.Point{}
}

func (s *nativeSurface) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		log.Printf("Overlay: event queue full for %s", s.id)
	}
}

func (s *nativeSurface) pointerEvent(kind EventKind, lParam uintptr) Event {
	var pt win.POINT
	win.GetCursorPos(&pt)
	return Event{
		Kind:    kind,
		X:       int(int16(win.LOWORD(uint32(lParam)))),
		Y:       int(int16(win.HIWORD(uint32(lParam)))),
		ScreenX: int(pt.X),
		ScreenY: int(pt.Y),
	}
}

func (s *nativeSurface) trackLeave() {
	if s.tracking {
		return
	}
	tme := trackMouseEvent{
		CbSize:    uint32(unsafe.Sizeof(trackMouseEvent{})),
		DwFlags:   tmeLeave,
		HwndTrack: s.hwnd,
	}
	if ret, _, _ := procTrackMouseEvent.Call(uintptr(unsafe.Pointer(&tme))); ret != 0 {
		s.tracking = true
	}
}

func (s *nativeSurface) applyCursor() {
	s.mu.Lock()
	c := s.cursor
	s.mu.Unlock()

	var id uint32
	switch c {
	case CursorHidden:
		win.SetCursor(0)
		return
	case CursorHand:
		id = win.IDC_HAND
	case CursorSizeWE:
		id = win.IDC_SIZEWE
	case CursorSizeNS:
		id = win.IDC_SIZENS
	case CursorSizeNWSE:
		id = win.IDC_SIZENWSE
	case CursorSizeNESW:
		id = win.IDC_SIZENESW
	case CursorMove:
		id = win.IDC_SIZEALL
	default:
		id = win.IDC_ARROW
	}
	win.SetCursor(win.LoadCursor(0, win.MAKEINTRESOURCE(uintptr(id))))
}

func modifierHeld() bool {
	return win.GetKeyState(win.VK_SHIFT) < 0 || win.GetKeyState(win.VK_CONTROL) < 0
}

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	v, ok := nativeSurfaces.Load(hwnd)
	if !ok {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}
	s := v.(*nativeSurface)

	switch msg {
	case wmPresent:
		s.blit()
		return 0

	case wmDestroyReq:
		win.DestroyWindow(hwnd)
		return 0

	case win.WM_MOUSEMOVE:
		s.trackLeave()
		s.emit(s.pointerEvent(EventPointerMove, lParam))
		return 0

	case win.WM_LBUTTONDOWN:
		win.SetCapture(hwnd)
		s.emit(s.pointerEvent(EventPointerDown, lParam))
		return 0

	case win.WM_LBUTTONUP:
		win.ReleaseCapture()
		s.emit(s.pointerEvent(EventPointerUp, lParam))
		return 0

	case win.WM_RBUTTONUP:
		s.emit(s.pointerEvent(EventRightClick, lParam))
		return 0

	case wmMouseLeave:
		s.tracking = false
		s.emit(Event{Kind: EventPointerLeave})
		return 0

	case win.WM_KEYDOWN:
		key := KeyNone
		switch wParam {
		case win.VK_ESCAPE:
			key = KeyEscape
		case win.VK_RETURN:
			key = KeyEnter
		case win.VK_BACK:
			key = KeyBackspace
		case win.VK_LEFT:
			key = KeyLeft
		case win.VK_RIGHT:
			key = KeyRight
		}
		if key != KeyNone {
			s.emit(Event{Kind: EventKey, Key: key, Modifier: modifierHeld()})
		}
		return 0

	case win.WM_CHAR:
		if r := rune(wParam); r >= 0x20 {
			s.emit(Event{Kind: EventChar, Rune: r})
		}
		return 0

	case win.WM_SETCURSOR:
		if win.LOWORD(uint32(lParam)) == win.HTCLIENT {
			s.applyCursor()
			return 1
		}

	case win.WM_CLOSE:
		s.emit(Event{Kind: EventClose})
		return 0

	case win.WM_DESTROY:
		nativeSurfaces.Delete(hwnd)
		win.PostQuitMessage(0)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}
