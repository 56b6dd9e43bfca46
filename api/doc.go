// Package api binds the HTTP routes to the account, admission and query
// services.
//
//	POST /authorization          register, returns the bearer token
//	POST /task                   submit audio[] files
//	GET  /status                 paginated listing
//	GET  /status/:task_id        single status
//	GET  /status/recognitions    single status, task_id as a query parameter
//	GET  /download               artifact stream, ?task_id=&type=txt|json
//	GET  /health, /version       operational endpoints
package api
