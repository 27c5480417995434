package repository

import (
	"testing"
)

func TestWhereBuilder(t *testing.T) {
	var w whereBuilder
	if w.sql() != "" {
		t.Errorf("empty builder should produce no WHERE, got %q", w.sql())
	}

	w.add(`(utorid ILIKE $%[1]d OR name ILIKE $%[1]d)`, "%bob%")
	w.addRaw(`last_login IS NOT NULL`)
	w.add(`role = $%d`, "cashier")

	want := ` WHERE (utorid ILIKE $1 OR name ILIKE $1) AND last_login IS NOT NULL AND role = $2`
	if got := w.sql(); got != want {
		t.Errorf("sql() = %q, want %q", got, want)
	}

	limit, args := w.paginate(Page{Limit: 10, Offset: 20})
	if limit != " LIMIT $3 OFFSET $4" {
		t.Errorf("paginate() = %q", limit)
	}
	if len(args) != 4 || args[2] != 10 || args[3] != 20 {
		t.Errorf("paginate args = %v", args)
	}
	if len(w.args) != 2 {
		t.Errorf("paginate must not mutate filter args, got %v", w.args)
	}
}

func TestLikePattern(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"bob", "%bob%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`c\d`, `%c\\d%`},
	}

	for _, tc := range testCases {
		if got := likePattern(tc.in); got != tc.want {
			t.Errorf("likePattern(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
