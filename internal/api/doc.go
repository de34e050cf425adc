// Package api implements the HTTP REST API and WebSocket server for HomeHub.
//
// This package provides:
//   - REST endpoints for device CRUD, live state queries, and power commands
//   - Commissioning endpoints for pairing devices onto the Matter mesh
//   - WebSocket hub for real-time state change broadcasts
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between user interfaces (mobile apps, web admin) and
// the device registry plus the control layer. Power commands are routed
// synchronously through the dispatcher; confirmed changes are published to
// the MQTT bus and broadcast to WebSocket clients.
//
// # Security
//
// Authentication uses HS256 JWT tokens issued for the single local account.
// WebSocket connections use single-use tickets to prevent token leakage in URLs.
//
// # Graceful Degradation
//
// The server operates without MQTT: reads and WebSocket connections work,
// only the bus relay of state events is disabled.
package api
