package server

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConnReadMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "simple message",
			input: "Content-Length: 17\r\n\r\n{\"method\":\"exit\"}",
			want:  `{"method":"exit"}`,
		},
		{
			name:  "lowercase header",
			input: "content-length: 17\r\n\r\n{\"method\":\"exit\"}",
			want:  `{"method":"exit"}`,
		},
		{
			name: "extra headers ignored",
			input: "Content-Type: application/vscode-jsonrpc; charset=utf-8\r\n" +
				"Content-Length: 17\r\n\r\n{\"method\":\"exit\"}",
			want: `{"method":"exit"}`,
		},
		{
			name:    "missing content length",
			input:   "Content-Type: application/vscode-jsonrpc\r\n\r\n{}",
			wantErr: true,
		},
		{
			name:    "truncated body",
			input:   "Content-Length: 50\r\n\r\n{}",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConn(strings.NewReader(tt.input), nil)
			body, err := c.ReadMessage()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got body %q", body)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadMessage: %v", err)
			}
			if string(body) != tt.want {
				t.Errorf("body = %q, want %q", body, tt.want)
			}
		})
	}
}

func TestConnWriteMessageFraming(t *testing.T) {
	var buf bytes.Buffer
	c := newConn(nil, &buf)

	msg := NotificationMessage{JSONRPC: jsonRPCVersion, Method: "test/ping"}
	if err := c.WriteMessage(msg); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	out := buf.String()
	body, ok := strings.CutPrefix(out, "Content-Length: ")
	if !ok {
		t.Fatalf("output missing header: %q", out)
	}
	parts := strings.SplitN(body, "\r\n\r\n", 2)
	if len(parts) != 2 {
		t.Fatalf("output missing header terminator: %q", out)
	}

	var decoded NotificationMessage
	if err := json.Unmarshal([]byte(parts[1]), &decoded); err != nil {
		t.Fatalf("body does not parse: %v", err)
	}
	if decoded.Method != "test/ping" {
		t.Errorf("method = %q, want test/ping", decoded.Method)
	}
}

func TestConnRoundTripSequence(t *testing.T) {
	var buf bytes.Buffer
	out := newConn(nil, &buf)

	methods := []string{"first", "second", "third"}
	for _, m := range methods {
		if err := out.WriteMessage(NotificationMessage{JSONRPC: jsonRPCVersion, Method: m}); err != nil {
			t.Fatalf("WriteMessage(%s): %v", m, err)
		}
	}

	in := newConn(&buf, nil)
	for _, want := range methods {
		body, err := in.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		var msg RequestMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Method != want {
			t.Errorf("method = %q, want %q", msg.Method, want)
		}
	}
}
