package mealagent

import (
	"fmt"
	"os"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

// Dump pretty-prints v with the caller's location when DEBUG_DUMP is set.
func Dump(v ...any) {
	if os.Getenv("DEBUG_DUMP") == "" {
		return
	}
	_, file, line, _ := runtime.Caller(1)
	args := append([]any{fmt.Sprintf("%s:%d:", file, line)}, v...)
	spew.Fdump(os.Stderr, args...)
}
