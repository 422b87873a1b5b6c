// Package main is the entry point for the webpad server.
//
// webpad is a browser-based code editor backend: it persists projects and
// their version history, renders sandboxed live previews of HTML, CSS, and
// JavaScript, and streams console output back over WebSocket.
//
// Configuration comes from environment variables (12-factor), with CLI
// flags overriding:
//
//	./server -port 8000 -storage webpad.db
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
