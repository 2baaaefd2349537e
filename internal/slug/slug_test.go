package slug

import "testing"

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple two words", "Hello World", "hello-world"},
		{"title with year", "Moda Loft 2026", "moda-loft-2026"},
		{"punctuation dropped", "Villa, Bodrum! (Phase 2)", "villa-bodrum-phase-2"},
		{"ampersand", "Kitchen & Bath", "kitchen-bath"},
		{"dots removed", "Version 2.0.1", "version-201"},
		{"date kept", "2026-02-25", "2026-02-25"},

		{"turkish dotless i", "Kadıköy Çatı Katı", "kadikoy-cati-kati"},
		{"turkish dotted capital", "İstanbul Ofis", "istanbul-ofis"},
		{"turkish s and g", "Beşiktaş Dağ Evi", "besiktas-dag-evi"},
		{"french accents", "Café Résumé Noël", "cafe-resume-noel"},
		{"german", "Über die Brücke Straße", "uber-die-brucke-strasse"},
		{"nordic", "Ørsted Æble", "orsted-aeble"},

		{"leading spaces", "   hello world", "hello-world"},
		{"inner spaces", "hello    world", "hello-world"},
		{"tab", "hello\tworld", "hello-world"},
		{"newline", "hello\nworld", "hello-world"},
		{"hyphen runs", "  --hello -- world--  ", "hello-world"},
		{"existing hyphen", "well-known fact", "well-known-fact"},

		{"empty", "", ""},
		{"only spaces", "     ", ""},
		{"only symbols", "!@#$%^&*()", ""},
		{"non-latin script dropped", "東京 Studio", "studio"},
		{"single char", "A", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.input)
			if got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateIdempotent(t *testing.T) {
	for _, in := range []string{"Kadıköy Çatı Katı", "Hello World", "a--b"} {
		once := Generate(in)
		if twice := Generate(once); twice != once {
			t.Errorf("Generate(Generate(%q)) = %q, want %q", in, twice, once)
		}
	}
}
