// Package http exposes the reservation service over JSON/HTTP.
//
// Every route except GET /healthz and GET /metrics requires an
// "Authorization: Bearer <jwt>" header. The token subject is the actor id and
// the role or roles claim decides administrator rights.
//
//   - GET /resources, POST /resources, GET /resources/{id},
//     PATCH /resources/{id}: catalog endpoints exchanging the `resourceDTO`
//     payload defined in resource_handler.go. Mutations require an
//     administrator.
//   - GET /resources/{id}/availability?start=&end=: RFC 3339 window check
//     returning `available` and any conflicting windows.
//   - GET /reservations, POST /reservations, GET /reservations/{id},
//     PATCH /reservations/{id}, POST /reservations/{id}/cancel: reservation
//     lifecycle endpoints exchanging the `reservationDTO` payload defined in
//     reservation_handler.go. Only room reservations can be patched.
//   - GET /reservations/expiring-soon?within=: the caller's station claim
//     ending within the horizon, flagged at most once.
//
// Errors are JSON objects with `error_code` and `message`. Validation
// failures (422) add an `errors` field map; conflicts (409) add either
// `conflicts` or `active_reservation`.
package http
