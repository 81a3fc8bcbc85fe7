package export

// Dispatcher runs functions on the interaction thread. The export worker uses
// it for the per-frame transform rendezvous and for progress delivery.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function such as fyne.Do to a Dispatcher.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Inline runs functions directly on the calling goroutine. Used headless.
var Inline Dispatcher = DispatcherFunc(func(fn func()) { fn() })
