// Package api serves the DefLink JSON HTTP API.
//
// Every response is wrapped in an Envelope:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": "..."}
//
// Public routes accept provider submissions and list published providers.
// The OEM routes and everything under /api/admin/ sit behind the session
// gate from package auth. Errors are classified once in writeError:
// validation failures are 400, rejected credentials 401 with one uniform
// message, unknown records 404 and anything else 500 with the detail only
// in the log.
package api
