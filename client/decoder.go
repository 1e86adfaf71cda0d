package client

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/sigquery/sigquery/transport"
)

// DecodeStatus parses a small XML status document such as
// <status>ok</status> and returns its text. An empty or unparseable
// body is a decode error even when the HTTP status looks successful:
// the decoder fails loudly rather than returning an ambiguous empty
// success.
func DecodeStatus(resp *transport.Response) (string, error) {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return "", &transport.Error{
			Type:       transport.ErrorTypeDecode,
			StatusCode: resp.StatusCode,
			Message:    "empty response body where a status document was expected",
			Retryable:  false,
			Response:   resp,
		}
	}

	var doc struct {
		XMLName xml.Name
		Value   string `xml:",chardata"`
	}
	if err := xml.Unmarshal(resp.Body, &doc); err != nil {
		return "", &transport.Error{
			Type:       transport.ErrorTypeDecode,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unparseable status document: %v", err),
			Retryable:  false,
			Response:   resp,
			Cause:      err,
		}
	}

	status := strings.TrimSpace(doc.Value)
	if status == "" {
		return "", &transport.Error{
			Type:       transport.ErrorTypeDecode,
			StatusCode: resp.StatusCode,
			Message:    "status document carries no value",
			Retryable:  false,
			Response:   resp,
		}
	}
	return status, nil
}

// queryErrorResponse is the <Response><Errors><Error> wire error shape.
type queryErrorResponse struct {
	Errors struct {
		Error []struct {
			Code    string `xml:"Code"`
			Message string `xml:"Message"`
		} `xml:"Error"`
	} `xml:"Errors"`
	RequestID string `xml:"RequestID"`
}

// altErrorResponse is the <ErrorResponse><Error> wire error shape.
type altErrorResponse struct {
	Error struct {
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
	RequestID string `xml:"RequestId"`
}

// DecodeError extracts a structured server error from a non-2xx
// response: the query-protocol XML shapes and the JSON shape are
// tried in turn, falling back to a generic error keyed by status code
// when the body is empty or malformed. The response stays attached to
// the returned error.
func DecodeError(resp *transport.Response) *transport.Error {
	code, message := parseErrorBody(resp.Body)
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}

	terr := &transport.Error{
		Type:       classifyStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Code:       code,
		Message:    message,
		Retryable:  resp.StatusCode >= 500,
		Response:   resp,
	}
	return terr
}

func parseErrorBody(body []byte) (code, message string) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", ""
	}

	var queryErr queryErrorResponse
	if err := xml.Unmarshal(body, &queryErr); err == nil && len(queryErr.Errors.Error) > 0 {
		first := queryErr.Errors.Error[0]
		if first.Code != "" {
			return first.Code, first.Message
		}
	}

	var altErr altErrorResponse
	if err := xml.Unmarshal(body, &altErr); err == nil && altErr.Error.Code != "" {
		return altErr.Error.Code, altErr.Error.Message
	}

	var jsonErr struct {
		Type    string `json:"__type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &jsonErr); err == nil {
		if jsonErr.Type != "" {
			return jsonErr.Type, jsonErr.Message
		}
		if jsonErr.Code != "" {
			return jsonErr.Code, jsonErr.Message
		}
	}

	return "", ""
}

func classifyStatus(statusCode int) transport.ErrorType {
	switch {
	case statusCode >= 500:
		return transport.ErrorTypeServer
	case statusCode == http.StatusTooManyRequests:
		return transport.ErrorTypeRateLimit
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return transport.ErrorTypeAuth
	default:
		return transport.ErrorTypeClient
	}
}
