package customer

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	if got := NormalizeEmail("  Foo@Example.COM "); got != "foo@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
	if got := NormalizeMobile(" 98765 43210 "); got != "98765 43210" {
		t.Fatalf("NormalizeMobile = %q", got)
	}
	if trimPtr(strp("   ")) != nil {
		t.Fatalf("blank pointer should trim to nil")
	}
}

func TestListInput_Normalized(t *testing.T) {
	cases := []struct {
		in             ListInput
		limit, offset int
	}{
		{ListInput{}, defaultPerPage, 0},
		{ListInput{Page: 3, PerPage: 10}, 10, 20},
		{ListInput{Page: -1, PerPage: 1000}, maxPerPage, 0},
	}
	for _, tc := range cases {
		l, o := tc.in.normalized()
		if l != tc.limit || o != tc.offset {
			t.Fatalf("%+v: got (%d,%d), want (%d,%d)", tc.in, l, o, tc.limit, tc.offset)
		}
	}
}

func TestErrors_Kinds(t *testing.T) {
	err := ConflictError{Op: "customer.Create", Field: FieldEmail}
	if !errors.Is(err, ErrConflict) || !IsConflict(err) {
		t.Fatalf("conflict kind not matched")
	}
	if err.Error() != "customer.Create: conflict: email" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !IsNotFound(notFound("customer.FindByID")) {
		t.Fatalf("not found kind not matched")
	}
	if _, ok := ConflictField(errors.New("x")); ok {
		t.Fatalf("plain error is not a conflict")
	}
}

func TestProfilePatch_Empty(t *testing.T) {
	if !(ProfilePatch{}).Empty() {
		t.Fatalf("zero patch should be empty")
	}
	if (ProfilePatch{State: strp("MH")}).Empty() {
		t.Fatalf("patch with state is not empty")
	}
}
