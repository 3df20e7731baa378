package video

import (
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		origin  string
		wantErr bool
	}{
		{name: "both set", id: "42", origin: "kodik"},
		{name: "missing id", origin: "kodik", wantErr: true},
		{name: "missing origin", id: "42", wantErr: true},
		{name: "both missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(tt.id, tt.origin)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				if v.ID != "" || v.Origin != "" {
					t.Errorf("Expected zero identity on error, got %q/%q", v.ID, v.Origin)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if !v.HasIdentity() {
				t.Error("Expected identity to be set")
			}
		})
	}
}

func TestKey(t *testing.T) {
	v, _ := New("123", "collaps")
	if v.Key() != "collaps:123" {
		t.Errorf("Expected key 'collaps:123', got '%s'", v.Key())
	}

	if (Video{}).Key() != "" {
		t.Error("Expected empty key for video without identity")
	}
}

func TestValue(t *testing.T) {
	v := Video{
		Title:           "Матрица",
		Year:            1999,
		Genres:          []string{"фантастика", "боевик"},
		KinopoiskRating: 8.5,
		Torrent:         Torrent{Size: 2048},
	}

	tests := []struct {
		field Field
		want  string
	}{
		{FieldTitle, "Матрица"},
		{FieldYear, "1999"},
		{FieldGenres, "фантастика, боевик"},
		{FieldKinopoiskRating, "8.5"},
		{FieldTorrentSize, "2048"},
		{FieldDuration, ""},
		{FieldIMDbVotes, ""},
	}

	for _, tt := range tests {
		if got := v.Value(tt.field); got != tt.want {
			t.Errorf("Value(%s) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestParseField(t *testing.T) {
	for _, f := range Fields() {
		parsed, err := ParseField(string(f))
		if err != nil {
			t.Errorf("Expected %s to parse, got: %v", f, err)
		}
		if parsed != f {
			t.Errorf("Expected %s, got %s", f, parsed)
		}
	}

	if _, err := ParseField("nonexistent"); err == nil {
		t.Error("Expected error for unknown field")
	}
}

func TestCleanAndSplit(t *testing.T) {
	// "й" written as и + combining breve
	decomposed := "Мо\u0438\u0306 фильм"
	if Clean(decomposed) != "Мой фильм" {
		t.Errorf("Expected NFC normalized title, got %q", Clean(decomposed))
	}

	if Clean("  a \n\t b  ") != "a b" {
		t.Errorf("Expected collapsed whitespace, got %q", Clean("  a \n\t b  "))
	}

	list := SplitList(" драма, ,комедия ,драма")
	if len(list) != 3 {
		t.Fatalf("Expected 3 entries, got %d: %v", len(list), list)
	}
	if list[0] != "драма" || list[1] != "комедия" {
		t.Errorf("Unexpected split result: %v", list)
	}

	if SplitList("  ") != nil {
		t.Error("Expected nil for blank list")
	}

	cleaned := CleanList([]string{"драма", " драма ", "", "комедия"})
	if len(cleaned) != 2 {
		t.Errorf("Expected duplicates and blanks dropped, got %v", cleaned)
	}
}
