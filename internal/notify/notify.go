// Package notify is the fire-and-forget user notification surface used by
// the exporters.
package notify

import "log"

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
)

type Notifier interface {
	Notify(title, description string, variant Variant)
}

// LogNotifier writes notifications to the process log. Useful as the default
// sink and in tests.
type LogNotifier struct{}

func (LogNotifier) Notify(title, description string, variant Variant) {
	log.Printf("notify variant=%s title=%q description=%q", variant, title, description)
}

// Func adapts a plain function to the Notifier interface.
type Func func(title, description string, variant Variant)

func (f Func) Notify(title, description string, variant Variant) {
	f(title, description, variant)
}
