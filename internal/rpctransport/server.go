package rpctransport

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// Handler implements the three methods named in §6.1. CallTool returns the
// tool's own result payload (already outcome-shaped where relevant) plus a
// transport-level error only for the four kinds rpctransport itself maps
// (invalid params, internal failure); policy rejections are encoded inside
// result, not returned as err.
type Handler interface {
	Initialize(params json.RawMessage) (any, *Error)
	ListTools() (any, *Error)
	CallTool(name string, arguments json.RawMessage) (any, *Error)
}

// CallToolParams is the `tools/call` params shape.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Server reads Requests from r and writes Responses to w until r is
// exhausted or ctx-equivalent Serve caller stops reading (stdio has no
// natural cancellation signal other than EOF/process exit).
type Server struct {
	handler Handler

	// writeMu serializes frame writes; nothing in this package emits
	// concurrently today, but a future async-notification push (e.g. a
	// server-initiated log message) would otherwise interleave bytes.
	writeMu sync.Mutex
}

// NewServer builds a Server delegating method handling to handler.
func NewServer(handler Handler) *Server {
	return &Server{handler: handler}
}

// Serve runs the read-dispatch-write loop until r returns io.EOF, which is
// the normal shutdown path for a stdio transport when the agent closes its
// end of the pipe.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	for {
		body, err := ReadFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("rpctransport: reading frame: %w", err)
		}

		resp := s.handleMessage(body)
		if resp == nil {
			continue // notification: no response expected
		}
		if err := s.writeResponse(w, *resp); err != nil {
			return fmt.Errorf("rpctransport: writing frame: %w", err)
		}
	}
}

func (s *Server) handleMessage(body []byte) *Response {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		resp := NewError(nil, errInvalidRequest("malformed JSON-RPC request: "+err.Error()))
		return &resp
	}
	if req.ID == nil {
		// Notification: dispatch has no caller to answer, but still run
		// it through the handler for side effects (none of initialize/
		// tools/list/tools/call are currently invoked as notifications in
		// practice, but the framing itself doesn't forbid it).
		s.dispatch(req)
		return nil
	}

	result, rpcErr := s.dispatch(req)
	if rpcErr != nil {
		resp := NewError(req.ID, rpcErr)
		return &resp
	}
	resp := NewResult(req.ID, result)
	return &resp
}

func (s *Server) dispatch(req Request) (result any, rpcErr *Error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("rpctransport: recovered panic in handler", "method", req.Method, "panic", r)
			rpcErr = errInternal("internal error")
			result = nil
		}
	}()

	switch req.Method {
	case "initialize":
		return s.handler.Initialize(req.Params)
	case "tools/list":
		return s.handler.ListTools()
	case "tools/call":
		var params CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, errInvalidParams("invalid tools/call params: " + err.Error())
		}
		if params.Name == "" {
			return nil, errInvalidParams("tools/call requires a non-empty name")
		}
		return s.handler.CallTool(params.Name, params.Arguments)
	default:
		return nil, errMethodNotFound(req.Method)
	}
}

func (s *Server) writeResponse(w io.Writer, resp Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return WriteFrame(w, body)
}
