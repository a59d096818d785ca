package patterns

import "testing"

func TestCompact(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "leading timestamp",
			in:   "2019-05-21T10:00:05.123Z error: boost::wrapexcept<exception>",
			want: "error: boost::wrapexcept<exception>",
		},
		{
			name: "inner timestamp kept",
			in:   "block at 2019-05-21 10:00:05 rejected",
			want: "block at 2019-05-21 10:00:05 rejected",
		},
		{
			name: "long path keeps file and line",
			in:   "0 /home/buildkite/eos/libraries/chain/controller.cpp:123 startup",
			want: "0 .../controller.cpp:123 startup",
		},
		{
			name: "addresses and hashes",
			in:   "frame 0x7fff5fbff8c0 in block 0000002a8f3c9d1b2e4f",
			want: "frame <HEX> in block <HASH>",
		},
		{
			name: "whitespace",
			in:   "  nodeos   exited \t unexpectedly ",
			want: "nodeos exited unexpectedly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compact(tt.in); got != tt.want {
				t.Errorf("Compact() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSignature(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "numbers masked",
			in:   "test timeout after 1500.02 sec",
			want: "test timeout after [NUM] sec",
		},
		{
			name: "paths masked",
			in:   `/src/eos/unittests/api_tests.cpp(42): error: in "api_tests/transaction_tests"`,
			want: `[PATH]([NUM]): error: in "api_tests/transaction_tests"`,
		},
		{
			name: "uuid",
			in:   "trx 550e8400-e29b-41d4-a716-446655440000 expired",
			want: "trx [UUID] expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Signature(tt.in); got != tt.want {
				t.Errorf("Signature() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSignature_GroupsVolatileDetails(t *testing.T) {
	a := Signature("fc exception: 3050003 at 0x7f00aa line 17")
	b := Signature("fc exception: 3050003 at 0x7f11bb line 212")
	if a != b {
		t.Errorf("Signature() differs: %q vs %q", a, b)
	}
}
