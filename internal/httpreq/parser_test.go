package httpreq

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type collector struct {
	requests []*Request
}

func (c *collector) HandleRequest(req *Request) {
	c.requests = append(c.requests, req)
}

func TestConsume(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Request
	}{
		{
			name:  "simple get",
			input: "GET / HTTP/1.1\r\nHost: x\r\n\r\n",
			want: &Request{
				Verb: "GET", Location: "/", Version: "HTTP/1.1",
				Headers: map[string]string{"Host": "x"},
			},
		},
		{
			name:  "no headers",
			input: "GET /missing HTTP/1.1\r\n\r\n",
			want: &Request{
				Verb: "GET", Location: "/missing", Version: "HTTP/1.1",
				Headers: map[string]string{},
			},
		},
		{
			name:  "bare LF line endings",
			input: "POST /submit HTTP/1.0\nA: 1\nB: 2\n\n",
			want: &Request{
				Verb: "POST", Location: "/submit", Version: "HTTP/1.0",
				Headers: map[string]string{"A": "1", "B": "2"},
			},
		},
		{
			name:  "version token not validated",
			input: "GET /status SPDY/9\r\n\r\n",
			want: &Request{
				Verb: "GET", Location: "/status", Version: "SPDY/9",
				Headers: map[string]string{},
			},
		},
		{
			name:  "missing version token",
			input: "GET /\r\n\r\n",
			want: &Request{
				Verb: "GET", Location: "/",
				Headers: map[string]string{},
			},
		},
		{
			name:  "leading blank lines skipped",
			input: "\r\n\r\nGET / HTTP/1.1\r\n\r\n",
			want: &Request{
				Verb: "GET", Location: "/", Version: "HTTP/1.1",
				Headers: map[string]string{},
			},
		},
		{
			name:  "line without delimiter ends headers",
			input: "GET / HTTP/1.1\r\nA: 1\r\nbroken-line\r\nB: 2\r\n\r\n",
			want: &Request{
				Verb: "GET", Location: "/", Version: "HTTP/1.1",
				Headers: map[string]string{"A": "1"},
			},
		},
		{
			name:  "colon without space is not a header",
			input: "GET / HTTP/1.1\r\nA:1\r\n",
			want: &Request{
				Verb: "GET", Location: "/", Version: "HTTP/1.1",
				Headers: map[string]string{},
			},
		},
		{
			name:  "value split at first delimiter",
			input: "GET / HTTP/1.1\r\nX-Pair: a: b\r\n\r\n",
			want: &Request{
				Verb: "GET", Location: "/", Version: "HTTP/1.1",
				Headers: map[string]string{"X-Pair": "a: b"},
			},
		},
		{
			name:  "header names are case sensitive and last wins",
			input: "GET / HTTP/1.1\r\nhost: a\r\nHost: b\r\nHost: c\r\n\r\n",
			want: &Request{
				Verb: "GET", Location: "/", Version: "HTTP/1.1",
				Headers: map[string]string{"host": "a", "Host": "c"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &collector{}
			p := NewParser(c)
			if err := p.Consume([]byte(tt.input)); err != nil {
				t.Fatalf("Consume() error = %v", err)
			}
			if len(c.requests) != 1 {
				t.Fatalf("got %d requests, want 1", len(c.requests))
			}
			if !reflect.DeepEqual(c.requests[0], tt.want) {
				t.Errorf("request = %+v, want %+v", c.requests[0], tt.want)
			}
			if p.Buffered() != 0 {
				t.Errorf("Buffered() = %d after a complete request, want 0", p.Buffered())
			}
		})
	}
}

func TestConsumeDefersIncompleteInput(t *testing.T) {
	inputs := []string{
		"",
		"GET",
		"GET /",
		"GET / HTTP/1.1",
		"GET / HTTP/1.1\r\n",
		"GET / HTTP/1.1\r\nHost: x",
		"GET / HTTP/1.1\r\nHost: x\r\n",
		"GET\r\n",
		"\r\n",
	}

	for _, input := range inputs {
		t.Run(fmt.Sprintf("%q", input), func(t *testing.T) {
			c := &collector{}
			p := NewParser(c)
			if err := p.Consume([]byte(input)); err != nil {
				t.Fatalf("Consume() error = %v", err)
			}
			if len(c.requests) != 0 {
				t.Errorf("got %d requests for incomplete input, want 0", len(c.requests))
			}
			if p.Buffered() != len(input) {
				t.Errorf("Buffered() = %d, want %d", p.Buffered(), len(input))
			}
		})
	}
}

func TestConsumeFragmentationIndependent(t *testing.T) {
	input := "GET /status HTTP/1.1\r\nHost: example.test\r\nUser-Agent: probe/1.0\r\nAccept: */*\r\n\r\n"

	whole := &collector{}
	if err := NewParser(whole).Consume([]byte(input)); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if len(whole.requests) != 1 {
		t.Fatalf("all-at-once: got %d requests, want 1", len(whole.requests))
	}

	for _, size := range []int{1, 2, 3, 7, 16} {
		t.Run(fmt.Sprintf("chunks of %d", size), func(t *testing.T) {
			c := &collector{}
			p := NewParser(c)
			for i := 0; i < len(input); i += size {
				end := min(i+size, len(input))
				if err := p.Consume([]byte(input[i:end])); err != nil {
					t.Fatalf("Consume() error = %v", err)
				}
			}
			if len(c.requests) != 1 {
				t.Fatalf("got %d requests, want 1", len(c.requests))
			}
			if !reflect.DeepEqual(c.requests[0], whole.requests[0]) {
				t.Errorf("request = %+v, want %+v", c.requests[0], whole.requests[0])
			}
		})
	}
}

func TestConsumeSecondRequest(t *testing.T) {
	c := &collector{}
	p := NewParser(c)

	if err := p.Consume([]byte("GET /a HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if err := p.Consume([]byte("GET /b HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	if len(c.requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(c.requests))
	}
	if c.requests[0].Location != "/a" || c.requests[1].Location != "/b" {
		t.Errorf("locations = %s, %s; want /a, /b", c.requests[0].Location, c.requests[1].Location)
	}
}

func headerBlock(n int) string {
	var b strings.Builder
	b.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "X-Header-%d: %d\r\n", i, i)
	}
	b.WriteString("\r\n")
	return b.String()
}

func TestHeaderLimit(t *testing.T) {
	t.Run("exactly the limit", func(t *testing.T) {
		c := &collector{}
		if err := NewParser(c).Consume([]byte(headerBlock(MaxHeaders))); err != nil {
			t.Fatalf("Consume() error = %v", err)
		}
		if len(c.requests) != 1 {
			t.Fatalf("got %d requests, want 1", len(c.requests))
		}
		if got := len(c.requests[0].Headers); got != MaxHeaders {
			t.Errorf("got %d headers, want %d", got, MaxHeaders)
		}
	})

	t.Run("one over the limit", func(t *testing.T) {
		c := &collector{}
		err := NewParser(c).Consume([]byte(headerBlock(MaxHeaders + 1)))
		if !errors.Is(err, ErrTooManyHeaders) {
			t.Fatalf("Consume() error = %v, want ErrTooManyHeaders", err)
		}
		if len(c.requests) != 0 {
			t.Errorf("got %d requests, want 0", len(c.requests))
		}
	})

	t.Run("repeated names do not count twice", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("GET / HTTP/1.1\r\n")
		for i := 0; i < MaxHeaders+10; i++ {
			b.WriteString("Cookie: x\r\n")
		}
		b.WriteString("\r\n")

		c := &collector{}
		if err := NewParser(c).Consume([]byte(b.String())); err != nil {
			t.Fatalf("Consume() error = %v", err)
		}
		if len(c.requests) != 1 {
			t.Errorf("got %d requests, want 1", len(c.requests))
		}
	})
}

func TestHandlerFunc(t *testing.T) {
	var got string
	p := NewParser(HandlerFunc(func(req *Request) { got = req.Verb }))
	if err := p.Consume([]byte("DELETE /x HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if got != "DELETE" {
		t.Errorf("verb = %q, want DELETE", got)
	}
}
