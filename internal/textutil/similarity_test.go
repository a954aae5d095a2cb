package textutil

import (
	"math"
	"testing"
)

func TestTrigrams(t *testing.T) {
	got := trigrams("ab")
	want := []trigram{{' ', ' ', 'a'}, {' ', 'a', 'b'}, {'a', 'b', ' '}}
	if len(got) != len(want) {
		t.Fatalf("trigrams = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("trigram[%d] = %q, want %q", i, string(got[i][:]), string(want[i][:]))
		}
	}
}

func TestTrigramSimilarity(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		candidate string
		want      float64
	}{
		{"identical", "super game", "super game", 1},
		{"query contained in longer title", "super game", "super game [subset - bonus discs]", 1},
		{"no overlap", "abc", "xyz", 0},
		{"two of five", "abcd", "abxx", 0.4},
		{"one of five", "abcd", "axxx", 0.2},
		{"case sensitive", "ABC", "abc", 0},
		{"multibyte runes", "pokémon", "pokémon", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrigramSimilarity(tt.query, tt.candidate)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("TrigramSimilarity(%q, %q) = %v, want %v", tt.query, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestTrigramSimilarityBounded(t *testing.T) {
	pairs := [][2]string{
		{"aaaa", "a"},
		{"", "anything"},
		{"zelda", ""},
		{"mario kart", "mario kart ds"},
	}
	for _, p := range pairs {
		got := TrigramSimilarity(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("TrigramSimilarity(%q, %q) = %v out of [0,1]", p[0], p[1], got)
		}
	}
}

func TestBestN(t *testing.T) {
	candidates := []string{"mario party", "super mario", "zelda", "super mario"}

	got := BestN("super mario", candidates, 3)
	if len(got) != 3 {
		t.Fatalf("BestN returned %d results, want 3", len(got))
	}
	if got[0].Index != 1 || got[1].Index != 3 {
		t.Fatalf("expected tied exact matches in candidate order, got %+v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("results not descending: %+v", got)
		}
	}

	if BestN("x", candidates, 0) != nil {
		t.Fatal("expected nil for n=0")
	}
	if BestN("x", nil, 5) != nil {
		t.Fatal("expected nil for no candidates")
	}
	if all := BestN("x", candidates, 10); len(all) != len(candidates) {
		t.Fatalf("expected every candidate when n exceeds count, got %d", len(all))
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Super Game.nds", "super game"},
		{"pokemon_blue.gb", "pokemon blue"},
		{"/roms/gba/Golden Sun.GBA", "golden sun"},
		{"Dr. Mario", "dr. mario"},
		{"  Spaced   Out  .zip", "spaced out"},
		{"archive.tar.7z", "archive.tar"},
	}
	for _, tt := range tests {
		if got := NormalizeQuery(tt.in); got != tt.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	if got := NormalizeTitle("  Pokemon   Blue "); got != "pokemon blue" {
		t.Fatalf("NormalizeTitle = %q", got)
	}
}
