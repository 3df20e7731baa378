package kodik

import (
	"strconv"
	"strings"

	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

type item struct {
	ID           provider.FlexString `json:"id"`
	Type         provider.FlexString `json:"type"`
	Link         provider.FlexString `json:"link"`
	Title        provider.FlexString `json:"title"`
	TitleOrig    provider.FlexString `json:"title_orig"`
	Year         provider.FlexInt    `json:"year"`
	LastSeason   provider.FlexInt    `json:"last_season"`
	LastEpisode  provider.FlexInt    `json:"last_episode"`
	KinopoiskID  provider.FlexString `json:"kinopoisk_id"`
	IMDbID       provider.FlexString `json:"imdb_id"`
	WorldArtLink provider.FlexString `json:"worldart_link"`
	ShikimoriID  provider.FlexString `json:"shikimori_id"`
	Quality      provider.FlexString `json:"quality"`
	Camrip       provider.FlexBool   `json:"camrip"`
	Screenshots  provider.FlexList   `json:"screenshots"`
	CreatedAt    provider.FlexString `json:"created_at"`
	UpdatedAt    provider.FlexString `json:"updated_at"`
	Translation  provider.Optional[struct {
		Title provider.FlexString `json:"title"`
	}] `json:"translation"`
	MaterialData provider.Optional[materialData] `json:"material_data"`
}

type materialData struct {
	Title            provider.FlexString `json:"title"`
	TitleEn          provider.FlexString `json:"title_en"`
	AnimeTitle       provider.FlexString `json:"anime_title"`
	Tagline          provider.FlexString `json:"tagline"`
	Description      provider.FlexString `json:"description"`
	AnimeDescription provider.FlexString `json:"anime_description"`
	PosterURL        provider.FlexString `json:"poster_url"`
	AnimePosterURL   provider.FlexString `json:"anime_poster_url"`
	Screenshots      provider.FlexList   `json:"screenshots"`
	Duration         provider.FlexInt    `json:"duration"` // minutes
	Countries        provider.FlexList   `json:"countries"`
	Genres           provider.FlexList   `json:"genres"`
	AnimeGenres      provider.FlexList   `json:"anime_genres"`
	AnimeStudios     provider.FlexList   `json:"anime_studios"`
	KinopoiskRating  provider.FlexFloat  `json:"kinopoisk_rating"`
	KinopoiskVotes   provider.FlexInt    `json:"kinopoisk_votes"`
	IMDbRating       provider.FlexFloat  `json:"imdb_rating"`
	IMDbVotes        provider.FlexInt    `json:"imdb_votes"`
	MinimalAge       provider.FlexInt    `json:"minimal_age"`
	RatingMPAA       provider.FlexString `json:"rating_mpaa"`
	Actors           provider.FlexList   `json:"actors"`
	Directors        provider.FlexList   `json:"directors"`
	Producers        provider.FlexList   `json:"producers"`
	Writers          provider.FlexList   `json:"writers"`
	Composers        provider.FlexList   `json:"composers"`
}

// FromProvider normalizes one search result or feed entry.
func (p *Provider) FromProvider(raw []byte) (video.Video, error) {
	var it item
	if err := provider.Decode(raw, &it); err != nil {
		return video.Video{}, p.Fail("normalize", provider.ErrUnexpectedResponse, "malformed item", err)
	}

	v, err := video.New(it.ID.String(), Origin)
	if err != nil {
		return video.Video{}, p.InvalidInput("item without id")
	}

	v.Title = video.Clean(it.Title.String())
	v.OriginalTitle = video.Clean(it.TitleOrig.String())
	v.Year = int(it.Year)
	v.Type = videoType(it.Type.String())
	v.LastSeason = int(it.LastSeason)
	v.LastEpisode = int(it.LastEpisode)
	v.KinopoiskID = it.KinopoiskID.String()
	v.IMDbID = it.IMDbID.String()
	v.ShikimoriID = it.ShikimoriID.String()
	v.WorldArtID = worldArtID(it.WorldArtLink.String())
	v.Quality = provider.Quality(bool(it.Camrip), it.Quality.String())
	v.Translation = video.Clean(it.Translation.Value.Title.String())
	v.PlayerURL = p.PlayerURL(it.Link.String())
	v.Screenshots = it.Screenshots
	v.CreatedAt = provider.ParseTime(it.CreatedAt.String())
	v.UpdatedAt = provider.ParseTime(it.UpdatedAt.String())

	if it.MaterialData.Set {
		md := it.MaterialData.Value
		if v.Title == "" {
			v.Title = video.Clean(provider.FirstOf(md.Title.String(), md.AnimeTitle.String()))
		}
		if v.OriginalTitle == "" {
			v.OriginalTitle = video.Clean(md.TitleEn.String())
		}
		v.Tagline = video.Clean(md.Tagline.String())
		v.Description = strings.TrimSpace(provider.FirstOf(md.Description.String(), md.AnimeDescription.String()))
		v.PosterURL = provider.FirstOf(md.PosterURL.String(), md.AnimePosterURL.String())
		if len(v.Screenshots) == 0 {
			v.Screenshots = md.Screenshots
		}
		v.Duration = int(md.Duration) * 60
		v.Countries = md.Countries
		v.Genres = provider.FirstList(md.Genres, md.AnimeGenres)
		v.Studios = md.AnimeStudios
		v.KinopoiskRating = float64(md.KinopoiskRating)
		v.KinopoiskVotes = int(md.KinopoiskVotes)
		v.IMDbRating = float64(md.IMDbRating)
		v.IMDbVotes = int(md.IMDbVotes)
		if md.MinimalAge > 0 {
			v.AgeRating = strconv.Itoa(int(md.MinimalAge)) + "+"
		}
		v.MPAARating = strings.ToUpper(strings.TrimSpace(md.RatingMPAA.String()))
		v.Actors = md.Actors
		v.Directors = md.Directors
		v.Producers = md.Producers
		v.Writers = md.Writers
		v.Composers = md.Composers
	}

	if len(v.Screenshots) > 0 {
		v.ThumbnailURL = v.Screenshots[0]
	}

	return v, nil
}

func videoType(t string) video.Type {
	switch {
	case strings.HasPrefix(t, "anime"):
		return video.TypeAnime
	case strings.HasPrefix(t, "cartoon"):
		return video.TypeCartoon
	case strings.Contains(t, "serial"):
		return video.TypeSerial
	case t == "":
		return ""
	default:
		return video.TypeMovie
	}
}

// worldArtID extracts the id from links like
// http://www.world-art.ru/cinema/cinema.php?id=12345.
func worldArtID(link string) string {
	_, id, ok := strings.Cut(link, "id=")
	if !ok {
		return ""
	}
	id, _, _ = strings.Cut(id, "&")
	return id
}

func isTokenError(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "токен") || strings.Contains(msg, "token")
}
