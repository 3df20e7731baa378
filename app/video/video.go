package video

import (
	"errors"
	"time"
)

var ErrMissingIdentity = errors.New("video: id and origin are required")

type Type string

const (
	TypeMovie   Type = "movie"
	TypeSerial  Type = "serial"
	TypeAnime   Type = "anime"
	TypeCartoon Type = "cartoon"
	TypeShow    Type = "show"
)

// Video is the provider-agnostic catalog record every adapter normalizes into.
// ID and Origin are set together by New; everything else is optional.
type Video struct {
	ID     string
	Origin string

	Title         string
	OriginalTitle string
	Tagline       string
	Description   string
	Duration      int // seconds
	Year          int
	Type          Type

	Actors    []string
	Directors []string
	Producers []string
	Writers   []string
	Composers []string
	Studios   []string
	Countries []string
	Genres    []string

	AgeRating  string
	MPAARating string

	PosterURL    string
	ThumbnailURL string
	Screenshots  []string

	KinopoiskID string
	IMDbID      string
	WorldArtID  string
	ShikimoriID string

	KinopoiskRating float64
	KinopoiskVotes  int
	IMDbRating      float64
	IMDbVotes       int

	PlayerURL   string
	Quality     string
	TrailerURL  string
	Translation string
	LastSeason  int
	LastEpisode int

	Torrent Torrent

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Torrent holds tracker metadata for videos coming from torrent sources.
type Torrent struct {
	InfoHash string
	Magnet   string
	FileURL  string
	Size     int64
	Seeders  int
	Leechers int
}

func (t Torrent) IsZero() bool {
	return t == Torrent{}
}

func New(id, origin string) (Video, error) {
	if id == "" || origin == "" {
		return Video{}, ErrMissingIdentity
	}
	return Video{ID: id, Origin: origin}, nil
}

func (v Video) HasIdentity() bool {
	return v.ID != "" && v.Origin != ""
}

// Key is the origin-qualified identifier stored on posts created from v.
func (v Video) Key() string {
	if !v.HasIdentity() {
		return ""
	}
	return v.Origin + ":" + v.ID
}

func (v Video) DisplayTitle() string {
	if v.Title != "" {
		return v.Title
	}
	return v.OriginalTitle
}
