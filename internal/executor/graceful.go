package executor

import "fmt"

// GracefulWarn logs a warning if logger is non-nil.
//
// Usage:
//
//	if err := page.PressKey(ctx, driver.KeyEscape); err != nil {
//	    GracefulWarn(o.logger, "Could not close the dropdown: %v", err)
//	}
func GracefulWarn(logger Logger, format string, args ...interface{}) {
	if logger != nil {
		logger.LogWarn(fmt.Sprintf(format, args...))
	}
}
