package rpctransport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

type fakeHandler struct {
	callToolFn func(name string, arguments json.RawMessage) (any, *Error)
}

func (h *fakeHandler) Initialize(params json.RawMessage) (any, *Error) {
	return map[string]any{"protocolVersion": "2024-11-05"}, nil
}

func (h *fakeHandler) ListTools() (any, *Error) {
	return map[string]any{"tools": []string{"run-powershell"}}, nil
}

func (h *fakeHandler) CallTool(name string, arguments json.RawMessage) (any, *Error) {
	if h.callToolFn != nil {
		return h.callToolFn(name, arguments)
	}
	return map[string]any{"success": true}, nil
}

func frameMessage(t *testing.T, method string, id string, params string) string {
	t.Helper()
	idPart := ""
	if id != "" {
		idPart = fmt.Sprintf(`"id":%s,`, id)
	}
	body := fmt.Sprintf(`{"jsonrpc":"2.0",%s"method":%q,"params":%s}`, idPart, method, params)
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func TestServer_InitializeRoundTrip(t *testing.T) {
	input := frameMessage(t, "initialize", "1", `{}`)
	var out bytes.Buffer

	s := NewServer(&fakeHandler{})
	if err := s.Serve(strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	resp := readOneResponse(t, out.Bytes())
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestServer_ToolsCall_RoutesNameAndArguments(t *testing.T) {
	var gotName string
	var gotArgs json.RawMessage
	handler := &fakeHandler{callToolFn: func(name string, arguments json.RawMessage) (any, *Error) {
		gotName = name
		gotArgs = arguments
		return map[string]any{"success": true}, nil
	}}

	input := frameMessage(t, "tools/call", "2", `{"name":"run-powershell","arguments":{"command":"Get-Date"}}`)
	var out bytes.Buffer
	s := NewServer(handler)
	if err := s.Serve(strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	if gotName != "run-powershell" {
		t.Fatalf("expected name run-powershell, got %q", gotName)
	}
	if !strings.Contains(string(gotArgs), "Get-Date") {
		t.Fatalf("expected arguments to contain Get-Date, got %s", gotArgs)
	}
}

func TestServer_UnknownMethod_MethodNotFound(t *testing.T) {
	input := frameMessage(t, "bogus/method", "3", `{}`)
	var out bytes.Buffer
	s := NewServer(&fakeHandler{})
	if err := s.Serve(strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	resp := readOneResponse(t, out.Bytes())
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected MethodNotFound error, got %+v", resp.Error)
	}
}

func TestServer_MalformedToolsCallParams_InvalidParams(t *testing.T) {
	input := frameMessage(t, "tools/call", "4", `"not-an-object"`)
	var out bytes.Buffer
	s := NewServer(&fakeHandler{})
	if err := s.Serve(strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	resp := readOneResponse(t, out.Bytes())
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected InvalidParams error, got %+v", resp.Error)
	}
}

func TestServer_HandlerPanicBecomesInternalError(t *testing.T) {
	handler := &fakeHandler{callToolFn: func(name string, arguments json.RawMessage) (any, *Error) {
		panic("boom")
	}}
	input := frameMessage(t, "tools/call", "5", `{"name":"run-powershell","arguments":{}}`)
	var out bytes.Buffer
	s := NewServer(handler)
	if err := s.Serve(strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	resp := readOneResponse(t, out.Bytes())
	if resp.Error == nil || resp.Error.Code != CodeInternalError {
		t.Fatalf("expected InternalError, got %+v", resp.Error)
	}
}

func TestServer_NotificationGetsNoResponse(t *testing.T) {
	input := frameMessage(t, "initialize", "", `{}`)
	var out bytes.Buffer
	s := NewServer(&fakeHandler{})
	if err := s.Serve(strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no response for a notification, got %q", out.String())
	}
}

func readOneResponse(t *testing.T, data []byte) Response {
	t.Helper()
	body, err := ReadFrame(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	return resp
}

func TestReadWriteFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"hello":"world"}`)
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFrame(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("expected %s, got %s", payload, got)
	}
}

func TestReadFrame_MissingContentLength(t *testing.T) {
	_, err := ReadFrame(bufio.NewReader(strings.NewReader("X-Foo: bar\r\n\r\n")))
	if err == nil {
		t.Fatal("expected error for missing Content-Length")
	}
}
