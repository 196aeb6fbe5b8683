// Package monitor serves the interactive viewer over HTTP.
//
// A Viewer goroutine owns the visualiser.Session and its frame cache; the
// WebServer's handlers enqueue key presses and read the most recently
// published frame plot, state and cache counters.
package monitor
