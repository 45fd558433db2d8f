package dialog

import "fmt"

// Recover is the launcher's panic hook. Defer it first thing in main and in
// every goroutine the launcher starts:
//
//	defer dialog.Recover()
//
// It shows the panic in an error dialog and then panics again with the same
// value, so the runtime still prints the stack and exits with status 2.
func Recover() {
	r := recover()
	if r == nil {
		return
	}
	ShowError(describe(r))
	panic(r)
}

// Go runs f on a new goroutine guarded by Recover.
func Go(f func()) {
	go func() {
		defer Recover()
		f()
	}()
}

func describe(r any) string {
	switch v := r.(type) {
	case error:
		return "panicked: " + v.Error()
	case string:
		return "panicked: " + v
	default:
		return fmt.Sprintf("panicked: %v", v)
	}
}
