// Package sentry wraps error reporting. Every function is a safe no-op until
// Init succeeds with a DSN.
package sentry

import (
	"runtime"
	"sync/atomic"
	"time"

	gosentry "github.com/getsentry/sentry-go"
)

var enabled atomic.Bool

// Init initializes the Sentry SDK. An empty dsn disables reporting.
func Init(dsn, version string) error {
	if dsn == "" {
		enabled.Store(false)
		return nil
	}

	err := gosentry.Init(gosentry.ClientOptions{
		Dsn:              dsn,
		Release:          "planforge@" + version,
		AttachStacktrace: true,
		SampleRate:       1.0,
	})
	if err != nil {
		return err
	}

	gosentry.ConfigureScope(func(scope *gosentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
		scope.SetTag("version", version)
	})

	enabled.Store(true)
	return nil
}

// IsEnabled returns whether sentry is active.
func IsEnabled() bool {
	return enabled.Load()
}

// Flush waits up to 2 seconds for buffered events to be sent.
func Flush() {
	if !enabled.Load() {
		return
	}
	gosentry.Flush(2 * time.Second)
}

// CaptureError reports err with the given tags.
func CaptureError(err error, tags map[string]string) {
	if !enabled.Load() || err == nil {
		return
	}
	gosentry.WithScope(func(scope *gosentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		gosentry.CaptureException(err)
	})
}

// RecoverPanic captures a panic, flushes, then re-panics.
// Usage: defer sentry.RecoverPanic()
func RecoverPanic() {
	if !enabled.Load() {
		return
	}
	if err := recover(); err != nil {
		gosentry.CurrentHub().Recover(err)
		gosentry.Flush(2 * time.Second)
		panic(err)
	}
}
