// Package server wires the editor together and serves it.
//
// Assembly order:
//  1. Open the store (SQLite, with in-memory fallback)
//  2. Build the console bridge and preview engine, connect them
//  3. Create the session manager and initialize it
//  4. Set up Gin routes and middleware (CORS, rate limiting, metrics)
//  5. Serve REST plus the /stream WebSocket
//
// Shutdown cancels pending session automation, drains HTTP, and closes
// the store.
package server
