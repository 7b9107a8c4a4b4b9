package chat

import (
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
		want    Request
	}{
		{
			name: "register",
			raw:  `{"type":"register","sender":"alice","timestamp":"2025-01-01T00:00:00"}`,
			want: Request{Kind: KindRegister, Sender: "alice"},
		},
		{
			name: "broadcast",
			raw:  `{"type":"broadcast","sender":"alice","content":"hi","timestamp":"2025-01-01T00:00:00"}`,
			want: Request{Kind: KindBroadcast, Sender: "alice", Content: "hi"},
		},
		{
			name: "private",
			raw:  `{"type":"private","sender":"alice","target":"carol","content":"hey"}`,
			want: Request{Kind: KindPrivate, Sender: "alice", Target: "carol", Content: "hey"},
		},
		{
			name:    "not json",
			raw:     `not json at all`,
			wantErr: true,
		},
		{
			name:    "missing sender",
			raw:     `{"type":"broadcast","content":"hi"}`,
			wantErr: true,
		},
		{
			name:    "private missing target",
			raw:     `{"type":"private","sender":"alice","content":"hey"}`,
			wantErr: true,
		},
		{
			name: "unknown type still decodes",
			raw:  `{"type":"wat","sender":"alice"}`,
			want: Request{Kind: Kind("wat"), Sender: "alice"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode([]byte(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Decode(%q) = nil error, want error", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) unexpected error: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("Decode(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestEncodeIncludesTypeAndTimestamp(t *testing.T) {
	t.Parallel()

	frame, err := Encode(Response{Kind: KindBroadcast, Sender: "alice", Content: "hi"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	s := string(frame)
	for _, want := range []string{`"type":"broadcast"`, `"sender":"alice"`, `"content":"hi"`, `"timestamp":"`} {
		if !strings.Contains(s, want) {
			t.Errorf("encoded frame %s missing %s", s, want)
		}
	}
}
