package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	apierrors "github.com/copyleftdev/simplexopt/internal/errors"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// idParams identifies a job in optimization.status and optimization.cancel.
type idParams struct {
	OptimizationID string `json:"optimization_id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, apierrors.CodeParseError, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, apierrors.CodeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		var params StartRequest
		if err = decodeParams(request.Params, &params); err == nil {
			result, err = s.startOptimization(params)
		}
	case "optimization.status":
		var params idParams
		if err = decodeParams(request.Params, &params); err == nil {
			result, err = s.status(params.OptimizationID)
		}
	case "optimization.cancel":
		var params idParams
		if err = decodeParams(request.Params, &params); err == nil {
			err = s.cancelOptimization(params.OptimizationID)
			result = map[string]interface{}{"optimization_id": params.OptimizationID, "status": StatusCancelled}
		}
	case "problems.list":
		result = s.listProblems()
	default:
		s.respondWithError(w, apierrors.CodeMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, apierrors.KindOf(err).RPCCode(), apierrors.Message(err), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// decodeParams accepts params either as an object or as an array whose
// first element is the object.
func decodeParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return apierrors.New(apierrors.KindInvalidInput, "missing required parameters")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return apierrors.Wrap(err, apierrors.KindInvalidInput, "invalid parameter format")
		}
		if len(list) == 0 {
			return apierrors.New(apierrors.KindInvalidInput, "missing required parameters")
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apierrors.Wrap(err, apierrors.KindInvalidInput, "invalid parameter format, expected object")
	}
	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Debug("JSON-RPC error", map[string]interface{}{
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
	_ = json.NewEncoder(w).Encode(response)
}
