package textutil

import "testing"

func TestCleanLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Język polski", "jezyk_polski"},
		{"Matematyka", "matematyka"},
		{"Język angielski (poziom podstawowy)", "jezyk_angielski"},
		{"wynik średni (%)*", "wynik_sredni"},
		{"mediana / średnia", "mediana___srednia"},
		{"  Liczba   zdających  ", "liczba_zdajacych"},
		{"Łacina", "lacina"},
		{"", ""},
	}
	for _, c := range cases {
		if got := CleanLabel(c.in); got != c.want {
			t.Errorf("CleanLabel(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
