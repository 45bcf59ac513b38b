package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/copyleftdev/tourfit/internal/errors"
)

// JSON-RPC 2.0 error codes
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&request); err != nil {
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var (
		result interface{}
		err    error
	)

	switch request.Method {
	case "run.start":
		var p StartRequest
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.startRun(p)
		}
	case "run.status":
		var p runRef
		if err = decodeRunRef(request.Params, &p); err == nil {
			result, err = s.runStatus(r.Context(), p.RunID)
		}
	case "run.cancel":
		var p runRef
		if err = decodeRunRef(request.Params, &p); err == nil {
			err = s.cancelRun(p.RunID)
			result = map[string]string{"status": "cancellation requested"}
		}
	case "run.list":
		runs, lerr := s.listRuns(r.Context(), 0)
		result, err = map[string]interface{}{"runs": runs}, lerr
	case "tour.evaluate":
		var p EvaluateRequest
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.evaluate(p)
		}
	default:
		s.respondWithError(w, rpcMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		code := rpcServerError
		if errors.Is(err, errors.ErrInvalidInput) {
			code = rpcInvalidParams
		}
		s.respondWithError(w, code, err.Error(), request.ID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// decodeParams accepts params as an object or as a one-element array
// holding the object.
func decodeParams(raw json.RawMessage, dst interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "missing required parameters")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil || len(list) != 1 {
			return errors.Wrap(errors.ErrInvalidInput, "invalid parameter format, expected object")
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.Wrap(fmt.Errorf("%w: %w", errors.ErrInvalidInput, err), "invalid parameters")
	}
	return nil
}

func decodeRunRef(raw json.RawMessage, p *runRef) error {
	if err := decodeParams(raw, p); err != nil {
		return err
	}
	if p.RunID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "run_id is required")
	}
	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
