package collaps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lysyi3m/video-comb/app/fetch"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

const details = `{
  "id": 4012,
  "name": "Интерстеллар",
  "origin_name": "Interstellar",
  "type": "film",
  "year": "2014",
  "kinopoisk_id": 258687,
  "imdb_id": "tt0816692",
  "slogan": "Следующий шаг человечества",
  "description": "Путешествие сквозь червоточину.",
  "poster": "https://img.example.com/4012.jpg",
  "iframe_url": "https://api.example.com/embed/movie/4012",
  "trailer": "https://trailers.example.com/4012.mp4",
  "quality": "BDRip",
  "time": "169 мин. / 02:49",
  "age": "16",
  "genre": {"12": "фантастика", "2": "драма"},
  "country": {"1": "США", "7": "Великобритания"},
  "director": {"1": "Кристофер Нолан"},
  "kinopoisk": "8.6",
  "imdb": 8.7
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := fetch.DefaultConfig()
	cfg.RequestsPerSecond = 0
	client, err := fetch.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return New(provider.Config{Host: server.URL, Token: "secret"}, client, nil)
}

func TestGetVideo(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/franchise/details" || r.URL.Query().Get("id") != "4012" {
			t.Errorf("Unexpected request: %s", r.URL)
		}
		fmt.Fprint(w, details)
	})

	v, err := p.GetVideo(context.Background(), "4012")
	if err != nil {
		t.Fatal(err)
	}

	if v.Key() != "collaps:4012" || v.Title != "Интерстеллар" || v.OriginalTitle != "Interstellar" {
		t.Errorf("Unexpected identity: %+v", v)
	}
	if v.Duration != 169*60 {
		t.Errorf("Expected duration %d, got %d", 169*60, v.Duration)
	}
	if video.JoinList(v.Genres) != "драма, фантастика" {
		t.Errorf("Expected genres ordered by key, got %v", v.Genres)
	}
	if video.JoinList(v.Countries) != "США, Великобритания" {
		t.Errorf("Unexpected countries: %v", v.Countries)
	}
	if v.KinopoiskRating != 8.6 || v.IMDbRating != 8.7 {
		t.Errorf("Unexpected ratings: %v %v", v.KinopoiskRating, v.IMDbRating)
	}
	if v.TrailerURL != "https://trailers.example.com/4012.mp4" || v.AgeRating != "16+" {
		t.Errorf("Unexpected trailer/age: %q %q", v.TrailerURL, v.AgeRating)
	}
	if v.Year != 2014 || v.KinopoiskID != "258687" || v.Type != video.TypeMovie {
		t.Errorf("Unexpected details: %+v", v)
	}
}

func TestGetVideoNotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status 404", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}},
		{"empty object", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.handler)
			if _, err := p.GetVideo(context.Background(), "1"); !errors.Is(err, provider.ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got: %v", err)
			}
		})
	}
}

func TestGetVideos(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") != "Дом" || r.URL.Query().Get("token") != "secret" {
			t.Errorf("Unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"total":2,"results":[
			{"id":1,"name":"Дом","type":"series","quality":"TS","seasons":[
				{"season":1,"episodes":[{"episode":1},{"episode":10}]},
				{"season":2,"episodes":[{"episode":1},{"episode":4}]}
			]},
			{"id":2,"name":"Дом дракона","type":"anime-series"}
		]}`)
	})

	videos, err := p.GetVideos(context.Background(), "Дом")
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 2 {
		t.Fatalf("Expected 2 videos, got %d", len(videos))
	}
	first := videos[0]
	if first.Type != video.TypeSerial || first.LastSeason != 2 || first.LastEpisode != 4 {
		t.Errorf("Unexpected series progress: %+v", first)
	}
	if first.Quality != "CAMRip" {
		t.Errorf("Expected TS to count as camrip, got %q", first.Quality)
	}
	if videos[1].Type != video.TypeAnime {
		t.Errorf("Expected anime, got %q", videos[1].Type)
	}
}

func TestInvalidToken(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	ok, err := p.CheckAccess(context.Background(), true)
	if ok || !errors.Is(err, provider.ErrInvalidToken) {
		t.Errorf("Expected invalid token, got %v %v", ok, err)
	}
}

func TestGetImages(t *testing.T) {
	images := make([]string, 0, 12)
	for i := range 12 {
		images = append(images, fmt.Sprintf(`"https://img.example.com/%d.jpg"`, i))
	}
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"images":[%s]}`, strings.Join(images, ","))
	})

	got, err := p.GetImages(context.Background(), "4012")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != provider.MaxImages || got[0] != "https://img.example.com/0.jpg" {
		t.Errorf("Expected first %d images, got %v", provider.MaxImages, got)
	}
}

func TestFromProviderFalsyFields(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})

	v, err := p.FromProvider([]byte(`{"id":7,"name":"Сериал","slogan":false,"description":0,"poster":false,"quality":null,"trailer":"","seasons":false,"voiceActing":false}`))
	if err != nil {
		t.Fatalf("Expected falsy fields to be skipped, got: %v", err)
	}
	if v.Key() != "collaps:7" || v.Title != "Сериал" {
		t.Errorf("Unexpected video: %+v", v)
	}
	if v.Tagline != "" || v.Description != "" || v.PosterURL != "" || v.Quality != "" || v.TrailerURL != "" {
		t.Errorf("Expected falsy fields to stay empty, got %+v", v)
	}
	if v.LastSeason != 0 || v.Translation != "" {
		t.Errorf("Expected no seasons or translation, got %d %q", v.LastSeason, v.Translation)
	}
}
