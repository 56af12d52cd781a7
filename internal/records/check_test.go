package records

import (
	"errors"
	"testing"
	"time"
)

func TestCheckType(t *testing.T) {
	cases := []struct {
		name  string
		flags CheckFlag
		want  CheckType
	}{
		{"http", FlagTypeHTTP | FlagIPv4, TypeHTTP},
		{"icmp4", FlagTypeICMP4 | FlagIPv4, TypeICMPv4},
		{"icmp6", FlagTypeICMP6 | FlagIPv6, TypeICMPv6},
		{"no category", FlagIPv4 | FlagSuccess, TypeUnknown},
		{"two categories", FlagTypeHTTP | FlagTypeICMP4, TypeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(time.Now(), tc.flags, nil, "1.1.1.1")
			if got := c.Type(); got != tc.want {
				t.Errorf("Type() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheckFamily(t *testing.T) {
	cases := []struct {
		name    string
		flags   CheckFlag
		want    IPFamily
		wantErr bool
	}{
		{"v4", FlagTypeHTTP | FlagIPv4, FamilyIPv4, false},
		{"v6", FlagTypeHTTP | FlagIPv6, FamilyIPv6, false},
		{"both", FlagTypeHTTP | FlagIPv4 | FlagIPv6, 0, true},
		{"neither", FlagTypeHTTP, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(time.Now(), tc.flags, nil, "1.1.1.1")
			got, err := c.Family()
			if tc.wantErr {
				var ambiguous *AmbiguousFamilyError
				if !errors.As(err, &ambiguous) {
					t.Fatalf("Family() error = %v, want AmbiguousFamilyError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Family() unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Family() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheckIsSuccess(t *testing.T) {
	ok := New(time.Now(), FlagSuccess|FlagTypeHTTP|FlagIPv4, nil, "1.1.1.1")
	if !ok.IsSuccess() {
		t.Error("check with success flag reported as failure")
	}
	bad := New(time.Now(), FlagTypeHTTP|FlagIPv4, nil, "1.1.1.1")
	if bad.IsSuccess() {
		t.Error("check without success flag reported as success")
	}
}

func TestCheckHash(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	latency := int64(42)

	a := New(ts, FlagSuccess|FlagTypeHTTP|FlagIPv4, &latency, "1.1.1.1")
	b := New(ts, FlagSuccess|FlagTypeHTTP|FlagIPv4, &latency, "1.1.1.1")
	if a.Hash() != b.Hash() {
		t.Error("equal checks must hash equal")
	}

	c := New(ts, FlagSuccess|FlagTypeHTTP|FlagIPv4, &latency, "1.0.0.1")
	if a.Hash() == c.Hash() {
		t.Error("checks with different targets must hash differently")
	}

	d := New(ts, FlagSuccess|FlagTypeHTTP|FlagIPv4, nil, "1.1.1.1")
	if a.Hash() == d.Hash() {
		t.Error("checks with and without latency must hash differently")
	}
}
