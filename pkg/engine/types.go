package engine

import "encoding/json"

// JSONRPCRequest is a JSON-RPC request to the execution engine.
type JSONRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// JSONRPCResponse is a JSON-RPC response from the execution engine.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	ID int `json:"id"`
}

// feedNotification is one subscription frame carrying an output event.
type feedNotification struct {
	Params struct {
		Result json.RawMessage `json:"result"`
	} `json:"params"`
}
