// Package piston is a client for the Piston code execution API.
//
// Two endpoints are used: a GET of the runtimes catalog, which lists the
// (language, version) pairs the service can run, and a POST to the execute
// endpoint carrying the source as the single file of the request. Non-2xx
// responses surface as *APIError with the "message" field of the error body;
// network failures wrap ErrTransport and undecodable 2xx bodies wrap
// ErrMalformedResponse through *MalformedResponseError, which keeps the
// raw body for logging.
//
// Usage:
//
//	client := piston.New(logger)
//	resp, err := client.Execute(ctx, piston.ExecuteRequest{
//	    Language: "python",
//	    Version:  "3.10.0",
//	    Files:    []piston.File{{Content: "print(5)"}},
//	})
package piston
