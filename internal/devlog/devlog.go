// Package devlog prints timestamped debug messages when FIELDSENSE_DEBUG is set.
package devlog

import (
	"fmt"
	"os"
	"time"
)

var enabled = os.Getenv("FIELDSENSE_DEBUG") != ""

// Printf prints a timestamped debug message to stdout.
// Format: "15:04:05.000 [Tag] message\n"
func Printf(format string, args ...any) {
	if !enabled {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", time.Now().Format("15:04:05.000"), msg)
}
