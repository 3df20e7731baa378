package hdvb

import (
	"strings"

	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

type item struct {
	ID          provider.FlexString `json:"id"`
	KinopoiskID provider.FlexString `json:"kinopoisk_id"`
	IMDbID      provider.FlexString `json:"imdb_id"`
	TitleRu     provider.FlexString `json:"title_ru"`
	TitleEn     provider.FlexString `json:"title_en"`
	Year        provider.FlexInt    `json:"year"`
	Type        provider.FlexString `json:"type"`
	Translator  provider.FlexString `json:"translator"`
	Quality     provider.FlexString `json:"quality"`
	Camrip      provider.FlexBool   `json:"camrip"`
	IframeURL   provider.FlexString `json:"iframe_url"`
	Trailer     provider.FlexString `json:"trailer"`
	Poster      provider.FlexString `json:"poster"`
	Season      provider.FlexInt    `json:"season"`
	Episode     provider.FlexInt    `json:"episode"`
	AddedDate   provider.FlexString `json:"added_date"`
	UpdateDate  provider.FlexString `json:"update_date"`
}

func (p *Provider) FromProvider(raw []byte) (video.Video, error) {
	var it item
	if err := provider.Decode(raw, &it); err != nil {
		return video.Video{}, p.Fail("normalize", provider.ErrUnexpectedResponse, "malformed item", err)
	}

	// Entries are keyed by kinopoisk id; the numeric id only appears on
	// newer exports.
	v, err := video.New(provider.FirstOf(it.ID.String(), it.KinopoiskID.String()), Origin)
	if err != nil {
		return video.Video{}, p.InvalidInput("item without id")
	}

	v.Title = video.Clean(it.TitleRu.String())
	v.OriginalTitle = video.Clean(it.TitleEn.String())
	v.Year = int(it.Year)
	v.Type = videoType(it.Type.String())
	v.KinopoiskID = it.KinopoiskID.String()
	v.IMDbID = it.IMDbID.String()
	v.Translation = video.Clean(it.Translator.String())
	v.Quality = provider.Quality(bool(it.Camrip), it.Quality.String())
	v.PlayerURL = p.PlayerURL(it.IframeURL.String())
	v.TrailerURL = provider.RewritePlayerURL("", it.Trailer.String())
	v.PosterURL = strings.TrimSpace(it.Poster.String())
	v.LastSeason = int(it.Season)
	v.LastEpisode = int(it.Episode)
	v.CreatedAt = provider.ParseTime(it.AddedDate.String())
	v.UpdatedAt = provider.ParseTime(it.UpdateDate.String())

	return v, nil
}

func videoType(t string) video.Type {
	t = strings.ToLower(t)
	switch {
	case strings.HasPrefix(t, "anime"):
		return video.TypeAnime
	case strings.HasPrefix(t, "cartoon"):
		return video.TypeCartoon
	case strings.Contains(t, "serial"), strings.Contains(t, "series"):
		return video.TypeSerial
	case t == "":
		return ""
	default:
		return video.TypeMovie
	}
}
