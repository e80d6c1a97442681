// Package httpjson is the JSON-over-HTTP client shared by the upstream Experts
// API client, the LLM extractor and the geocoder.
//
// Every attempt is bounded by Config.Timeout. Transport errors, 429 and 5xx
// responses are retried with exponential backoff (cenkalti/backoff) up to
// Config.MaxRetries; other 4xx responses fail at once. A 404 is reported as
// errs.KindNotFound and an undecodable body as errs.KindValidationFailed.
package httpjson
