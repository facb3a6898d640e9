package protocol

import "encoding/json"

// envelope peels off just the discriminant; every inbound text frame must be
// a JSON object carrying it.
type envelope struct {
	Type string `json:"type"`
}

type createFields struct {
	Size *int `json:"size"`
}

type joinFields struct {
	ID *string `json:"id"`
}

// createRequest is the parsed, defaulted form of a "create" frame.
type createRequest struct {
	Size int
}

// joinRequest is the parsed form of a "join" frame.
type joinRequest struct {
	ID string
}

// parseEnvelope extracts the type discriminant. A non-object root or
// malformed JSON is reported as an error, which the router treats as a
// silent drop.
func parseEnvelope(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

// parseCreate decodes a "create" frame's fields, applying the default size
// of registry.DefaultCapacity when size is omitted. A size present with the
// wrong JSON type is a decode error, which the router silently drops.
func parseCreate(data []byte, defaultSize int) (createRequest, error) {
	var f createFields
	if err := json.Unmarshal(data, &f); err != nil {
		return createRequest{}, err
	}
	size := defaultSize
	if f.Size != nil {
		size = *f.Size
	}
	return createRequest{Size: size}, nil
}

// parseJoin decodes a "join" frame's fields. A missing or non-string id is
// reported as an error (via the returned ok=false), which the router
// silently drops.
func parseJoin(data []byte) (joinRequest, bool) {
	var f joinFields
	if err := json.Unmarshal(data, &f); err != nil {
		return joinRequest{}, false
	}
	if f.ID == nil {
		return joinRequest{}, false
	}
	return joinRequest{ID: *f.ID}, true
}

// Outbound frame encodings. Field sets are exact: no extra keys.

type createAck struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func encodeCreateAck(id string) []byte {
	b, _ := json.Marshal(createAck{Type: "create", ID: id})
	return b
}

type joinAck struct {
	Type string `json:"type"`
	Size int    `json:"size"`
}

func encodeJoinAck(size int) []byte {
	b, _ := json.Marshal(joinAck{Type: "join", Size: size})
	return b
}

type joinNotify struct {
	Type string `json:"type"`
}

func encodeJoinNotify() []byte {
	b, _ := json.Marshal(joinNotify{Type: "join"})
	return b
}

type leaveNotify struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

func encodeLeave(index int) []byte {
	b, _ := json.Marshal(leaveNotify{Type: "leave", Index: index})
	return b
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func encodeError(code string) []byte {
	b, _ := json.Marshal(errorFrame{Type: "error", Message: code})
	return b
}
