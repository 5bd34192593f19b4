package protocol

import (
	"bufio"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// codecAPI mirrors encoding/json's behavior (map key order on encode is
// alphabetic, numbers decode to float64) except where normalize below
// corrects it; ConfigCompatibleWithStandardLibrary keeps struct tag
// handling identical to encoding/json so the envelope types marshal the
// same either way.
var codecAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode writes v as a single line-framed JSON document: the encoded
// object followed by "\n", matching the stdio transport's one-message-
// per-line contract.
func Encode(w io.Writer, v any) error {
	b, err := codecAPI.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n"))
	return err
}

// DecodeRequest decodes one line-framed JSON-RPC request/notification from
// line, normalizing numeric id fields to int64 so correlation lookups can use
// plain equality instead of float comparison.
func DecodeRequest(line []byte) (*JsonRpcRequest, error) {
	var req JsonRpcRequest
	if err := codecAPI.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	req.ID = normalize(req.ID)
	req.Params = normalize(req.Params)
	return &req, nil
}

// DecodeResponse decodes one line-framed JSON-RPC response from line,
// applying the same id normalization as DecodeRequest so a client's
// correlation table (keyed by int64) finds its pending entry.
func DecodeResponse(line []byte) (*JsonRpcResponse, error) {
	var resp JsonRpcResponse
	if err := codecAPI.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	resp.ID = normalize(resp.ID)
	resp.Result = normalize(resp.Result)
	return &resp, nil
}

// ReadLine reads one newline-terminated frame from r, trimming the
// trailing delimiter. It's a thin wrapper over bufio.Reader.ReadBytes so
// both halves of the stdio transport share one definition of a "line".
func ReadLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, err
}

// normalize walks a decoded value, widening float64 numbers that are
// mathematically integral to int64. jsoniter, like encoding/json, decodes
// every JSON number into float64 when the target is `any`; request/response
// ids are defined by JSON-RPC to be compared by value, and a float64(2) !=
// int64(2) to a naive map lookup. The decoders apply it to the id and to
// the whole params/result tree, so every integral number there becomes an
// int64; non-integral floats (e.g. genuinely fractional tool arguments)
// are left alone.
func normalize(v any) any {
	switch t := v.(type) {
	case float64:
		if i := int64(t); float64(i) == t {
			return i
		}
		return t
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}
