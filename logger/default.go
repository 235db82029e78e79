// SPDX-License-Identifier: GPL-3.0-or-later

package logger

var defaultLogger = New()

// Errorf logs to stderr without a component. Used before any component logger exists.
func Errorf(format string, a ...any) { defaultLogger.Errorf(format, a...) }
