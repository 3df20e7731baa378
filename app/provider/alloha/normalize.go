package alloha

import (
	"strings"

	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

type item struct {
	TokenMovie     provider.FlexString `json:"token_movie"`
	Name           provider.FlexString `json:"name"`
	OriginalName   provider.FlexString `json:"original_name"`
	Year           provider.FlexInt    `json:"year"`
	Category       provider.FlexString `json:"category"`
	KinopoiskID    provider.FlexString `json:"id_kp"`
	IMDbID         provider.FlexString `json:"id_imdb"`
	WorldArtID     provider.FlexString `json:"id_world_art"`
	Tagline        provider.FlexString `json:"tagline"`
	Description    provider.FlexString `json:"description"`
	Time           provider.FlexString `json:"time"`
	AgeRestriction provider.FlexString `json:"age_restrictions"`
	Genre          provider.FlexList   `json:"genre"`
	Country        provider.FlexList   `json:"country"`
	Actors         provider.FlexList   `json:"actors"`
	Directors      provider.FlexList   `json:"directors"`
	Producers      provider.FlexList   `json:"producers"`
	RatingKP       provider.FlexFloat  `json:"rating_kp"`
	RatingIMDb     provider.FlexFloat  `json:"rating_imdb"`
	Quality        provider.FlexString `json:"quality"`
	Translation    provider.FlexString `json:"translation"`
	Iframe         provider.FlexString `json:"iframe"`
	IframeTrailer  provider.FlexString `json:"iframe_trailer"`
	LastSeason     provider.FlexInt    `json:"last_season"`
	LastEpisode    provider.FlexInt    `json:"last_episode"`
	Date           provider.FlexString `json:"date"`
}

// Category codes used by the API.
const (
	categoryMovie   = "1"
	categorySerial  = "2"
	categoryCartoon = "3"
	categoryAnime   = "4"
	categoryShow    = "5"
)

func (p *Provider) FromProvider(raw []byte) (video.Video, error) {
	var it item
	if err := provider.Decode(raw, &it); err != nil {
		return video.Video{}, p.Fail("normalize", provider.ErrUnexpectedResponse, "malformed item", err)
	}

	v, err := video.New(it.TokenMovie.String(), Origin)
	if err != nil {
		return video.Video{}, p.InvalidInput("item without token_movie")
	}

	v.Title = video.Clean(it.Name.String())
	v.OriginalTitle = video.Clean(it.OriginalName.String())
	v.Year = int(it.Year)
	v.Type = videoType(it.Category.String())
	v.KinopoiskID = it.KinopoiskID.String()
	v.IMDbID = it.IMDbID.String()
	v.WorldArtID = it.WorldArtID.String()
	v.Tagline = video.Clean(it.Tagline.String())
	v.Description = strings.TrimSpace(it.Description.String())
	v.Duration = clockSeconds(it.Time.String())
	if age := it.AgeRestriction.String(); provider.ParseInt(age) > 0 {
		v.AgeRating = strings.TrimSuffix(age, "+") + "+"
	}
	v.Genres = it.Genre
	v.Countries = it.Country
	v.Actors = it.Actors
	v.Directors = it.Directors
	v.Producers = it.Producers
	v.KinopoiskRating = float64(it.RatingKP)
	v.IMDbRating = float64(it.RatingIMDb)
	v.Quality = provider.Quality(strings.EqualFold(strings.TrimSpace(it.Quality.String()), "camrip"), it.Quality.String())
	v.Translation = video.Clean(it.Translation.String())
	v.PlayerURL = p.PlayerURL(it.Iframe.String())
	v.TrailerURL = provider.RewritePlayerURL("", it.IframeTrailer.String())
	v.LastSeason = int(it.LastSeason)
	v.LastEpisode = int(it.LastEpisode)
	v.UpdatedAt = provider.ParseTime(it.Date.String())

	// The API publishes no images; posters come from the kinopoisk id.
	v.PosterURL = provider.ImageURL(p.Config.PosterPattern, v.KinopoiskID)
	v.ThumbnailURL = provider.ImageURL(p.Config.ThumbnailPattern, v.KinopoiskID)

	return v, nil
}

func videoType(category string) video.Type {
	switch category {
	case categoryMovie:
		return video.TypeMovie
	case categorySerial:
		return video.TypeSerial
	case categoryCartoon:
		return video.TypeCartoon
	case categoryAnime:
		return video.TypeAnime
	case categoryShow:
		return video.TypeShow
	default:
		return ""
	}
}

// clockSeconds converts "hh:mm" (or "hh:mm:ss") into seconds. A bare
// number is taken as minutes.
func clockSeconds(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	if len(parts) == 1 {
		return provider.ParseInt(s) * 60
	}

	seconds := provider.ParseInt(parts[0])*3600 + provider.ParseInt(parts[1])*60
	if len(parts) > 2 {
		seconds += provider.ParseInt(parts[2])
	}
	return seconds
}
