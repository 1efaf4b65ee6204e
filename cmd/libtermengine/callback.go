package main

/*
#include <stdlib.h>

typedef void (*term_log_callback)(const char* line);

static void term_invoke_log_callback(term_log_callback cb, const char* line) {
	cb(line);
}
*/
import "C"

import (
	"log"
	"os"
	"strings"
	"sync/atomic"
	"unsafe"
)

// logCallback holds the host-registered log sink, or nil to route to
// stderr. Stored as an unsafe.Pointer because the C function-pointer type
// is file-scoped under cgo.
var logCallback atomic.Pointer[unsafe.Pointer]

func storeLogCallback(cb unsafe.Pointer) {
	if cb == nil {
		logCallback.Store(nil)
		log.SetOutput(os.Stderr)
		return
	}
	p := new(unsafe.Pointer)
	*p = cb
	logCallback.Store(p)
	log.SetOutput(callbackWriter{})
}

// callbackWriter forwards each log line to the host callback. The C string
// only lives for the duration of the call; the host must copy it.
type callbackWriter struct{}

func (callbackWriter) Write(b []byte) (int, error) {
	p := logCallback.Load()
	if p == nil {
		return os.Stderr.Write(b)
	}
	line := strings.TrimRight(string(b), "\n")
	cs := C.CString(line)
	C.term_invoke_log_callback(C.term_log_callback(*p), cs)
	C.free(unsafe.Pointer(cs))
	return len(b), nil
}
