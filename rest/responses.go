package rest

import (
	"encoding/json"
	"io"
	"net/http"
)

// MessageFor maps HTTP status code ranges to user-facing error summaries.
type MessageFor map[StatusCodeRange]string

// UnmarshalJSONResponse decodes an http response which has JSON content.
//
// args:
//   - resp: http response to be processed.
//   - v: value which response should be.
//   - messageFor: title of error message for HTTP status code range.
//
// return:
//
//	error if...
//	- response body is not shaped of v (*DecodingError)
//	- status code is not in 2xx (*RemoteError)
func UnmarshalJSONResponse(resp *http.Response, v any, messageFor MessageFor) error {
	if StatusCodeRangeOf(resp) == Status2xx {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return &DecodingError{Err: err}
		}
		return nil
	}

	return ErrorFromResponse(resp, messageFor)
}

// ErrorFromResponse drains a non-2xx response into a *RemoteError.
func ErrorFromResponse(resp *http.Response, messageFor MessageFor) error {
	scr := StatusCodeRangeOf(resp)
	message, ok := messageFor[scr]
	if !ok {
		message = scr.String()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		body = []byte("(cannot read server message: " + err.Error() + ")")
	}

	return &RemoteError{
		Status:  resp.StatusCode,
		Message: message,
		Body:    body,
	}
}

// UnmarshalResponseDiscardingPayload checks status only, draining the body.
func UnmarshalResponseDiscardingPayload(resp *http.Response, messageFor MessageFor) error {
	if StatusCodeRangeOf(resp) == Status2xx {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return ErrorFromResponse(resp, messageFor)
}
