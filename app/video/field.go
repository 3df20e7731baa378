package video

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names a Video attribute that can be bound to a post extra field.
type Field string

const (
	FieldTitle           Field = "title"
	FieldOriginalTitle   Field = "original_title"
	FieldTagline         Field = "tagline"
	FieldDescription     Field = "description"
	FieldDuration        Field = "duration"
	FieldYear            Field = "year"
	FieldType            Field = "type"
	FieldActors          Field = "actors"
	FieldDirectors       Field = "directors"
	FieldProducers       Field = "producers"
	FieldWriters         Field = "writers"
	FieldComposers       Field = "composers"
	FieldStudios         Field = "studios"
	FieldCountries       Field = "countries"
	FieldGenres          Field = "genres"
	FieldAgeRating       Field = "age_rating"
	FieldMPAARating      Field = "mpaa_rating"
	FieldPoster          Field = "poster"
	FieldThumbnail       Field = "thumbnail"
	FieldScreenshots     Field = "screenshots"
	FieldKinopoiskID     Field = "kinopoisk_id"
	FieldIMDbID          Field = "imdb_id"
	FieldWorldArtID      Field = "worldart_id"
	FieldShikimoriID     Field = "shikimori_id"
	FieldKinopoiskRating Field = "kinopoisk_rating"
	FieldKinopoiskVotes  Field = "kinopoisk_votes"
	FieldIMDbRating      Field = "imdb_rating"
	FieldIMDbVotes       Field = "imdb_votes"
	FieldPlayer          Field = "player"
	FieldQuality         Field = "quality"
	FieldTrailer         Field = "trailer"
	FieldTranslation     Field = "translation"
	FieldLastSeason      Field = "last_season"
	FieldLastEpisode     Field = "last_episode"
	FieldTorrentMagnet   Field = "torrent_magnet"
	FieldTorrentFile     Field = "torrent_file"
	FieldTorrentSize     Field = "torrent_size"
)

var fields = []Field{
	FieldTitle, FieldOriginalTitle, FieldTagline, FieldDescription, FieldDuration,
	FieldYear, FieldType, FieldActors, FieldDirectors, FieldProducers, FieldWriters,
	FieldComposers, FieldStudios, FieldCountries, FieldGenres, FieldAgeRating,
	FieldMPAARating, FieldPoster, FieldThumbnail, FieldScreenshots, FieldKinopoiskID,
	FieldIMDbID, FieldWorldArtID, FieldShikimoriID, FieldKinopoiskRating,
	FieldKinopoiskVotes, FieldIMDbRating, FieldIMDbVotes, FieldPlayer, FieldQuality,
	FieldTrailer, FieldTranslation, FieldLastSeason, FieldLastEpisode,
	FieldTorrentMagnet, FieldTorrentFile, FieldTorrentSize,
}

func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

func ParseField(s string) (Field, error) {
	for _, f := range fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown video field: %s", s)
}

// Value renders field f of v as a post field value. Lists are joined with
// ", " and zero numbers render as the empty string.
func (v Video) Value(f Field) string {
	switch f {
	case FieldTitle:
		return v.Title
	case FieldOriginalTitle:
		return v.OriginalTitle
	case FieldTagline:
		return v.Tagline
	case FieldDescription:
		return v.Description
	case FieldDuration:
		return itoa(v.Duration)
	case FieldYear:
		return itoa(v.Year)
	case FieldType:
		return string(v.Type)
	case FieldActors:
		return JoinList(v.Actors)
	case FieldDirectors:
		return JoinList(v.Directors)
	case FieldProducers:
		return JoinList(v.Producers)
	case FieldWriters:
		return JoinList(v.Writers)
	case FieldComposers:
		return JoinList(v.Composers)
	case FieldStudios:
		return JoinList(v.Studios)
	case FieldCountries:
		return JoinList(v.Countries)
	case FieldGenres:
		return JoinList(v.Genres)
	case FieldAgeRating:
		return v.AgeRating
	case FieldMPAARating:
		return v.MPAARating
	case FieldPoster:
		return v.PosterURL
	case FieldThumbnail:
		return v.ThumbnailURL
	case FieldScreenshots:
		return JoinList(v.Screenshots)
	case FieldKinopoiskID:
		return v.KinopoiskID
	case FieldIMDbID:
		return v.IMDbID
	case FieldWorldArtID:
		return v.WorldArtID
	case FieldShikimoriID:
		return v.ShikimoriID
	case FieldKinopoiskRating:
		return ftoa(v.KinopoiskRating)
	case FieldKinopoiskVotes:
		return itoa(v.KinopoiskVotes)
	case FieldIMDbRating:
		return ftoa(v.IMDbRating)
	case FieldIMDbVotes:
		return itoa(v.IMDbVotes)
	case FieldPlayer:
		return v.PlayerURL
	case FieldQuality:
		return v.Quality
	case FieldTrailer:
		return v.TrailerURL
	case FieldTranslation:
		return v.Translation
	case FieldLastSeason:
		return itoa(v.LastSeason)
	case FieldLastEpisode:
		return itoa(v.LastEpisode)
	case FieldTorrentMagnet:
		return v.Torrent.Magnet
	case FieldTorrentFile:
		return v.Torrent.FileURL
	case FieldTorrentSize:
		if v.Torrent.Size == 0 {
			return ""
		}
		return strconv.FormatInt(v.Torrent.Size, 10)
	}
	return ""
}

func JoinList(items []string) string {
	return strings.Join(items, ", ")
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func ftoa(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
