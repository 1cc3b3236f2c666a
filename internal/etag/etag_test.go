package etag

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	if got := Format(3); got != `W/"3"` {
		t.Fatalf("Format(3) = %q", got)
	}
	if got := Format(0); got != `W/"0"` {
		t.Fatalf("Format(0) = %q", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		want    int64
		wantErr bool
	}{
		{name: "simple", tag: `W/"1"`, want: 1},
		{name: "large", tag: `W/"123456"`, want: 123456},
		{name: "surrounding space", tag: ` W/"7" `, want: 7},
		{name: "empty", tag: "", wantErr: true},
		{name: "strong etag", tag: `"1"`, wantErr: true},
		{name: "no quotes", tag: `W/1`, wantErr: true},
		{name: "not a number", tag: `W/"abc"`, wantErr: true},
		{name: "negative", tag: `W/"-1"`, wantErr: true},
		{name: "explicit plus sign", tag: `W/"+5"`, wantErr: true},
		{name: "leading zeros", tag: `W/"007"`, wantErr: true},
		{name: "bare zero still valid", tag: `W/"0"`, want: 0},
		{name: "overflows int64", tag: `W/"99999999999999999999"`, wantErr: true},
		{name: "inner space", tag: `W/" 1"`, wantErr: true},
		{name: "empty quotes", tag: `W/""`, wantErr: true},
		{name: "trailing junk", tag: `W/"1"x`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.tag)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("Parse(%q) err = %v, want ErrMalformed", tt.tag, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) err = %v", tt.tag, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %d, want %d", tt.tag, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 42, 1 << 40} {
		got, err := Parse(Format(v))
		if err != nil {
			t.Fatalf("round trip %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip %d: got %d", v, got)
		}
	}
}
