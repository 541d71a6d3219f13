// Package ui is the terminal host of the application bus.
//
// Terminal drives a tcell screen from a single goroutine. Work from other
// goroutines is queued on an app.Loop and the screen is woken with an
// interrupt event. After every screen event the terminal runs the queued
// actions, then the end-of-action callbacks, and only then redraws, so a
// frame never shows the state between an action and its deferred messages.
//
// The screen shows a header, the most recent bus messages and a status line
// that is recomputed when statusline.refresh is published. Keys other than
// q, Esc and Ctrl-C are published as input.key.pressed.
package ui
