package strings

import "testing"

func TestIfEmpty(t *testing.T) {
	t.Parallel()

	in := []int{1, 2, 3}
	got := IfEmpty(in, []int{9})
	if len(got) != 3 || got[0] != 1 {
		t.Fatalf("IfEmpty returned wrong slice: %#v", got)
	}

	var empty []string
	got2 := IfEmpty(empty, []string{"x"})
	if len(got2) != 1 || got2[0] != "x" {
		t.Fatalf("IfEmpty did not return default: %#v", got2)
	}
}

func TestSplitCSV(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{" , ,", nil},
		{"fsh_profile", []string{"fsh_profile"}},
		{" .env , .env.local ,", []string{".env", ".env.local"}},
	}
	for _, c := range cases {
		got := SplitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("SplitCSV(%q)=%#v want %#v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("SplitCSV(%q)[%d]=%q want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	t.Parallel()

	if got := FirstNonEmpty("", "  ", "US Core", "x"); got != "US Core" {
		t.Fatalf("FirstNonEmpty=%q", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty()=%q", got)
	}
}

func TestPtr(t *testing.T) {
	t.Parallel()

	if Ptr("") != nil {
		t.Fatal("Ptr(\"\") should be nil")
	}
	p := Ptr("https://build.fhir.org/ig/HL7/us-core")
	if p == nil || *p != "https://build.fhir.org/ig/HL7/us-core" {
		t.Fatalf("Ptr round trip failed: %v", p)
	}
}
