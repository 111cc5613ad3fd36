package protocol

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"render-worker/internal/common/errors"
	"render-worker/internal/common/validation"
	"render-worker/internal/models"
)

// ErrNotResponse is returned by DecodeResponse for lines without the
// response prefix, such as stray engine output.
var ErrNotResponse = stderrors.New("line is not a protocol response")

// Codec converts between protocol lines and models values.
type Codec struct {
	prefix    string
	validator *validation.Validator
}

// NewCodec builds a codec that prefixes every response with prefix and
// checks inbound lines against envelopeSchema.
func NewCodec(prefix string, envelopeSchema []byte) (*Codec, error) {
	v, err := validation.NewValidator(envelopeSchema)
	if err != nil {
		return nil, fmt.Errorf("envelope schema: %w", err)
	}
	return &Codec{prefix: prefix, validator: v}, nil
}

func (c *Codec) Prefix() string { return c.prefix }

// Decode parses one command line. Every failure is a MALFORMED_COMMAND
// StandardError.
func (c *Codec) Decode(line string) (*models.Command, error) {
	data := []byte(strings.TrimSpace(line))

	res := c.validator.ValidateJSON(data)
	if !res.Valid {
		return nil, errors.NewMalformedCommandError(stderrors.New(strings.Join(res.GetErrorMessages(), "; ")))
	}

	var cmd models.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, errors.NewMalformedCommandError(err)
	}
	return &cmd, nil
}

// Encode renders resp as a prefixed line. It never fails.
func (c *Codec) Encode(resp *models.Response) string {
	data, err := json.Marshal(resp)
	if err != nil {
		fallback := models.NewErrorResponse(resp.RequestID, string(errors.ErrCodeInternal),
			"Command processing error: "+err.Error(), "")
		data, _ = json.Marshal(fallback)
	}
	return c.prefix + string(data)
}

// EncodeCommand renders cmd as an unprefixed command line.
func (c *Codec) EncodeCommand(cmd *models.Command) (string, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeResponse parses a line produced by Encode.
func (c *Codec) DecodeResponse(line string) (*models.Response, error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(line), c.prefix)
	if !ok {
		return nil, ErrNotResponse
	}
	var resp models.Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
