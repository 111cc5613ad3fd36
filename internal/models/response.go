// internal/models/response.go
package models

import "encoding/json"

type Status string

const (
	StatusReady    Status = "ready"
	StatusPong     Status = "pong"
	StatusShutdown Status = "shutdown"
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
)

// Response is one outbound protocol line. Payload is base64 on the wire.
type Response struct {
	Status     Status `json:"status"`
	Message    string `json:"message"`
	OutputPath string `json:"outputPath,omitempty"`
	Payload    []byte `json:"payload,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
	ErrorCode  string `json:"errorCode,omitempty"`
	RequestID  int    `json:"requestId"`
}

func NewReadyResponse(message string) *Response {
	return &Response{Status: StatusReady, Message: message}
}

func NewPongResponse(requestID int) *Response {
	return &Response{Status: StatusPong, Message: "Server is alive", RequestID: requestID}
}

func NewShutdownResponse(requestID int) *Response {
	return &Response{Status: StatusShutdown, Message: "Shutting down", RequestID: requestID}
}

func NewSuccessResponse(requestID int, outputPath string, payload []byte, message string) *Response {
	return &Response{
		Status:     StatusSuccess,
		Message:    message,
		OutputPath: outputPath,
		Payload:    payload,
		RequestID:  requestID,
	}
}

func NewErrorResponse(requestID int, code, message, diagnostic string) *Response {
	return &Response{
		Status:     StatusError,
		Message:    message,
		Diagnostic: diagnostic,
		ErrorCode:  code,
		RequestID:  requestID,
	}
}

// IsTerminal reports whether no further responses follow this one.
func (r *Response) IsTerminal() bool {
	return r.Status == StatusShutdown
}

// UnmarshalJSON also reads pdfData and stackTrace, which older workers emit
// in place of payload and diagnostic.
func (r *Response) UnmarshalJSON(data []byte) error {
	type plain Response
	var aux struct {
		plain
		PDFData    []byte `json:"pdfData"`
		StackTrace string `json:"stackTrace"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = Response(aux.plain)
	if len(r.Payload) == 0 {
		r.Payload = aux.PDFData
	}
	if r.Diagnostic == "" {
		r.Diagnostic = aux.StackTrace
	}
	return nil
}
