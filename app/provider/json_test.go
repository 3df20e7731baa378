package provider

import (
	"testing"
)

func TestFlexTypes(t *testing.T) {
	var payload struct {
		ID        FlexString `json:"id"`
		NumID     FlexString `json:"num_id"`
		Year      FlexInt    `json:"year"`
		YearStr   FlexInt    `json:"year_str"`
		Rating    FlexFloat  `json:"rating"`
		RatingStr FlexFloat  `json:"rating_str"`
		Camrip    FlexBool   `json:"camrip"`
		Genres    FlexList   `json:"genres"`
		Countries FlexList   `json:"countries"`
		Missing   FlexString `json:"missing"`
	}

	data := []byte(`{
		"id": "abc",
		"num_id": 12345,
		"year": 2001,
		"year_str": "1999",
		"rating": 7.25,
		"rating_str": "6,5",
		"camrip": 1,
		"genres": ["драма", " комедия ", ""],
		"countries": "США, Россия",
		"missing": null
	}`)

	if err := Decode(data, &payload); err != nil {
		t.Fatal(err)
	}

	if payload.ID.String() != "abc" || payload.NumID.String() != "12345" {
		t.Errorf("Unexpected ids: %q %q", payload.ID, payload.NumID)
	}
	if payload.Year != 2001 || payload.YearStr != 1999 {
		t.Errorf("Unexpected years: %d %d", payload.Year, payload.YearStr)
	}
	if payload.Rating != 7.25 || payload.RatingStr != 6.5 {
		t.Errorf("Unexpected ratings: %v %v", payload.Rating, payload.RatingStr)
	}
	if !payload.Camrip {
		t.Error("Expected camrip to be true")
	}
	if len(payload.Genres) != 2 || payload.Genres[1] != "комедия" {
		t.Errorf("Unexpected genres: %v", payload.Genres)
	}
	if len(payload.Countries) != 2 || payload.Countries[0] != "США" {
		t.Errorf("Unexpected countries: %v", payload.Countries)
	}
	if payload.Missing != "" {
		t.Errorf("Expected null to decode as empty, got %q", payload.Missing)
	}
}

func TestParseInt(t *testing.T) {
	tests := map[string]int{
		"120 мин.": 120,
		"  45":     45,
		"":         0,
		"abc":      0,
		"2019-01":  2019,
	}
	for in, want := range tests {
		if got := ParseInt(in); got != want {
			t.Errorf("ParseInt(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestFlexListObject(t *testing.T) {
	var l FlexList
	if err := Decode([]byte(`{"10": "триллер", "2": "драма", "1": " боевик "}`), &l); err != nil {
		t.Fatal(err)
	}
	want := []string{"боевик", "драма", "триллер"}
	if len(l) != len(want) {
		t.Fatalf("Expected %v, got %v", want, l)
	}
	for i := range want {
		if l[i] != want[i] {
			t.Errorf("Item %d: got %q, want %q", i, l[i], want[i])
		}
	}
}

func TestFlexFalsyValues(t *testing.T) {
	var payload struct {
		Tagline     FlexString                `json:"tagline"`
		Description FlexString                `json:"description"`
		Quality     FlexString                `json:"quality"`
		Poster      FlexString                `json:"poster"`
		Year        FlexInt                   `json:"year"`
		Genres      FlexList                  `json:"genres"`
		Details     Optional[struct{ A int }] `json:"details"`
		Seasons     Optional[[]FlexInt]       `json:"seasons"`
		Extra       Optional[map[string]int]  `json:"extra"`
	}

	data := []byte(`{
		"tagline": false,
		"description": 0,
		"quality": [],
		"poster": {},
		"year": false,
		"genres": false,
		"details": false,
		"seasons": [1, 2],
		"extra": ""
	}`)
	if err := Decode(data, &payload); err != nil {
		t.Fatalf("Expected falsy values to decode, got: %v", err)
	}

	for name, s := range map[string]FlexString{
		"tagline":     payload.Tagline,
		"description": payload.Description,
		"quality":     payload.Quality,
		"poster":      payload.Poster,
	} {
		if s != "" {
			t.Errorf("Expected empty %s, got %q", name, s)
		}
	}
	if payload.Year != 0 || len(payload.Genres) != 0 {
		t.Errorf("Expected zero year and genres, got %d %v", payload.Year, payload.Genres)
	}
	if payload.Details.Set || payload.Extra.Set {
		t.Error("Expected falsy objects to stay unset")
	}
	if !payload.Seasons.Set || len(payload.Seasons.Value) != 2 {
		t.Errorf("Expected seasons to decode, got %+v", payload.Seasons)
	}
}
