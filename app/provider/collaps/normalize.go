package collaps

import (
	"strings"

	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

type season struct {
	Season   provider.FlexInt `json:"season"`
	Episodes provider.Optional[[]struct {
		Episode provider.FlexInt `json:"episode"`
	}] `json:"episodes"`
}

type item struct {
	ID           provider.FlexString         `json:"id"`
	Name         provider.FlexString         `json:"name"`
	NameEng      provider.FlexString         `json:"name_eng"`
	OriginName   provider.FlexString         `json:"origin_name"`
	Type         provider.FlexString         `json:"type"`
	Year         provider.FlexInt            `json:"year"`
	KinopoiskID  provider.FlexString         `json:"kinopoisk_id"`
	IMDbID       provider.FlexString         `json:"imdb_id"`
	WorldArtID   provider.FlexString         `json:"world_art_id"`
	Description  provider.FlexString         `json:"description"`
	Slogan       provider.FlexString         `json:"slogan"`
	Poster       provider.FlexString         `json:"poster"`
	IframeURL    provider.FlexString         `json:"iframe_url"`
	Trailer      provider.FlexString         `json:"trailer"`
	Quality      provider.FlexString         `json:"quality"`
	Duration     provider.FlexString         `json:"time"`
	Age          provider.FlexString         `json:"age"`
	Genre        provider.FlexList           `json:"genre"`
	Country      provider.FlexList           `json:"country"`
	Actors       provider.FlexList           `json:"actors"`
	Director     provider.FlexList           `json:"director"`
	Producer     provider.FlexList           `json:"producer"`
	Screenwriter provider.FlexList           `json:"screenwriter"`
	Composer     provider.FlexList           `json:"composer"`
	Voices       provider.FlexList           `json:"voiceActing"`
	RatingKP     provider.FlexFloat          `json:"kinopoisk"`
	RatingIMDb   provider.FlexFloat          `json:"imdb"`
	Seasons      provider.Optional[[]season] `json:"seasons"`
	CreatedAt    provider.FlexString         `json:"created_at"`
	UpdatedAt    provider.FlexString         `json:"updated_at"`
}

func (p *Provider) FromProvider(raw []byte) (video.Video, error) {
	var it item
	if err := provider.Decode(raw, &it); err != nil {
		return video.Video{}, p.Fail("normalize", provider.ErrUnexpectedResponse, "malformed item", err)
	}

	v, err := video.New(it.ID.String(), Origin)
	if err != nil {
		return video.Video{}, p.InvalidInput("item without id")
	}

	v.Title = video.Clean(it.Name.String())
	v.OriginalTitle = video.Clean(provider.FirstOf(it.OriginName.String(), it.NameEng.String()))
	v.Tagline = video.Clean(it.Slogan.String())
	v.Description = strings.TrimSpace(it.Description.String())
	v.Year = int(it.Year)
	v.Type = videoType(it.Type.String())
	v.KinopoiskID = it.KinopoiskID.String()
	v.IMDbID = it.IMDbID.String()
	v.WorldArtID = it.WorldArtID.String()
	v.PosterURL = strings.TrimSpace(it.Poster.String())
	v.PlayerURL = p.PlayerURL(it.IframeURL.String())
	v.TrailerURL = strings.TrimSpace(it.Trailer.String())
	v.Quality = provider.Quality(isCamrip(it.Quality.String()), it.Quality.String())
	v.Duration = provider.ParseInt(it.Duration.String()) * 60
	if age := provider.ParseInt(it.Age.String()); age > 0 {
		v.AgeRating = it.Age.String()
		if !strings.HasSuffix(v.AgeRating, "+") {
			v.AgeRating += "+"
		}
	}
	v.Genres = it.Genre
	v.Countries = it.Country
	v.Actors = it.Actors
	v.Directors = it.Director
	v.Producers = it.Producer
	v.Writers = it.Screenwriter
	v.Composers = it.Composer
	if len(it.Voices) > 0 {
		v.Translation = it.Voices[0]
	}
	v.KinopoiskRating = float64(it.RatingKP)
	v.IMDbRating = float64(it.RatingIMDb)
	v.CreatedAt = provider.ParseTime(it.CreatedAt.String())
	v.UpdatedAt = provider.ParseTime(it.UpdatedAt.String())

	for _, s := range it.Seasons.Value {
		if int(s.Season) >= v.LastSeason {
			v.LastSeason = int(s.Season)
			v.LastEpisode = 0
			for _, e := range s.Episodes.Value {
				v.LastEpisode = max(v.LastEpisode, int(e.Episode))
			}
		}
	}

	return v, nil
}

func videoType(t string) video.Type {
	t = strings.ToLower(t)
	switch {
	case strings.HasPrefix(t, "anime"):
		return video.TypeAnime
	case strings.HasPrefix(t, "cartoon"):
		return video.TypeCartoon
	case strings.Contains(t, "series"), strings.Contains(t, "serial"):
		return video.TypeSerial
	case t == "":
		return ""
	default:
		return video.TypeMovie
	}
}

func isCamrip(quality string) bool {
	q := strings.ToLower(quality)
	return strings.Contains(q, "camrip") || q == "ts" || strings.HasPrefix(q, "ts ")
}
