package protocol

// DecodeParams re-shapes a request's Params - which may already arrive as
// a map[string]any (stdio/HTTP, decoded generically off the wire) or as a
// concrete Go value (the in-memory transport, where a test or client
// constructs the request directly) - into target, a pointer to the
// handler's expected params struct. A nil params value leaves target
// untouched.
func DecodeParams(params any, target any) error {
	if params == nil {
		return nil
	}
	b, err := codecAPI.Marshal(params)
	if err != nil {
		return err
	}
	return codecAPI.Unmarshal(b, target)
}
