package videocdn

import (
	"strings"

	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

type media struct {
	MaxQuality    provider.FlexString `json:"max_quality"`
	SourceQuality provider.FlexString `json:"source_quality"`
	Camrip        provider.FlexBool   `json:"camrip"`
}

// item covers both the short search shape and the full movie/series shape.
type item struct {
	ID           provider.FlexString        `json:"id"`
	Title        provider.FlexString        `json:"title"`
	RuTitle      provider.FlexString        `json:"ru_title"`
	OrigTitle    provider.FlexString        `json:"orig_title"`
	Type         provider.FlexString        `json:"type"`
	ContentType  provider.FlexString        `json:"content_type"`
	Year         provider.FlexString        `json:"year"`
	Released     provider.FlexString        `json:"released"`
	KPID         provider.FlexString        `json:"kp_id"`
	KinopoiskID  provider.FlexString        `json:"kinopoisk_id"`
	IMDbID       provider.FlexString        `json:"imdb_id"`
	IframeSrc    provider.FlexString        `json:"iframe_src"`
	Iframe       provider.FlexString        `json:"iframe"`
	Quality      provider.FlexString        `json:"quality"`
	Translations provider.FlexList          `json:"translations"`
	SeasonCount  provider.FlexInt           `json:"season_count"`
	EpisodeCount provider.FlexInt           `json:"episode_count"`
	Created      provider.FlexString        `json:"created"`
	Updated      provider.FlexString        `json:"updated"`
	Media        provider.Optional[[]media] `json:"media"`
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

	v.Title = video.Clean(provider.FirstOf(it.RuTitle.String(), it.Title.String()))
	v.OriginalTitle = video.Clean(it.OrigTitle.String())
	v.Year = provider.ParseInt(provider.FirstOf(it.Year.String(), it.Released.String()))
	v.Type = videoType(provider.FirstOf(it.ContentType.String(), it.Type.String()))
	v.KinopoiskID = provider.FirstOf(it.KinopoiskID.String(), it.KPID.String())
	v.IMDbID = it.IMDbID.String()
	v.PlayerURL = p.PlayerURL(provider.FirstOf(it.IframeSrc.String(), it.Iframe.String()))
	v.LastSeason = int(it.SeasonCount)
	v.LastEpisode = int(it.EpisodeCount)
	v.CreatedAt = provider.ParseTime(it.Created.String())
	v.UpdatedAt = provider.ParseTime(it.Updated.String())
	if len(it.Translations) > 0 {
		v.Translation = it.Translations[0]
	}

	if len(it.Media.Value) > 0 {
		m := it.Media.Value[0]
		source := strings.TrimSpace(m.SourceQuality.String() + " " + m.MaxQuality.String())
		v.Quality = provider.Quality(bool(m.Camrip), source)
	} else {
		v.Quality = provider.Quality(false, it.Quality.String())
	}

	return v, nil
}

func videoType(t string) video.Type {
	t = strings.ToLower(t)
	switch {
	case strings.HasPrefix(t, "anime"):
		return video.TypeAnime
	case strings.HasPrefix(t, "show"):
		return video.TypeShow
	case strings.Contains(t, "series") || strings.Contains(t, "serial"):
		return video.TypeSerial
	case t == "":
		return ""
	default:
		return video.TypeMovie
	}
}
