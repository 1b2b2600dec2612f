package toolhost

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Handler executes one named tool call.
type Handler interface {
	Handle(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
}

// Server answers JSON-RPC tool requests over a stream transport, one JSON
// object per line. It is the subprocess side of the tool host.
type Server struct {
	handler Handler
	info    ServerInfo
	logger  *zap.Logger
}

// NewServer creates a tool host server.
func NewServer(handler Handler, name, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		handler: handler,
		info:    ServerInfo{Name: name, Version: version},
		logger:  logger,
	}
}

// Run serves requests on stdin/stdout until EOF or context cancellation.
// Logging must go to stderr; stdout belongs to the transport.
func (s *Server) Run(ctx context.Context) error {
	return s.RunForIO(ctx, os.Stdin, os.Stdout)
}

// RunForIO serves requests on the given reader/writer pair. Tests drive this
// through io.Pipe instead of a real subprocess.
//
// Each request is handled on its own goroutine: a slow tools/call must not
// hold up pings or other callers multiplexed onto the same connection. The
// client matches responses by id, so out-of-order completion is fine.
func (s *Server) RunForIO(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	var writeMu sync.Mutex
	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}
		if len(line) <= 1 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("malformed request", zap.Error(err))
			s.write(w, &writeMu, Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: CodeParseError, Message: "parse error"},
			})
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			s.write(w, &writeMu, s.dispatch(ctx, req))
		}()
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case MethodInitialize:
		resp.Result = mustMarshal(InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      s.info,
		})
		s.logger.Info("tool host initialized", zap.String("protocol", ProtocolVersion))

	case MethodPing:
		resp.Result = mustMarshal(struct{}{})

	case MethodListTools:
		resp.Result = mustMarshal(ListToolsResult{Tools: ToolList()})

	case MethodCallTool:
		var params CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = &RPCError{Code: CodeInvalidParams, Message: "invalid tool call params"}
			break
		}
		result, err := s.handler.Handle(ctx, params.Name, params.Arguments)
		if err != nil {
			resp.Error = &RPCError{Code: CodeInvalidParams, Message: err.Error()}
			break
		}
		text, err := json.Marshal(result)
		if err != nil {
			resp.Error = &RPCError{Code: CodeInternalError, Message: "failed to encode tool result"}
			break
		}
		resp.Result = mustMarshal(CallToolResult{
			Content: []ToolContent{{Type: "text", Text: string(text)}},
		})

	default:
		resp.Error = &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)}
	}

	return resp
}

func (s *Server) write(w io.Writer, mu *sync.Mutex, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		return
	}
	data = append(data, '\n')

	mu.Lock()
	defer mu.Unlock()
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
