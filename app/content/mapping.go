package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/video-comb/app/video"
)

// Binding maps one video field onto an extra field.
type Binding struct {
	Video video.Field
	Field ExtraField
}

type UpdatePolicy struct {
	Title       bool
	Description bool
	// ExtraFields names the extra fields an update may refresh.
	ExtraFields []string
	// Date moves the post date to the update time when anything changed.
	Date bool
}

type CategoryPolicy struct {
	FromType   bool
	FromGenres bool
	TypeNames  map[video.Type]string
}

// Mapping is the resolved, typed form of the mapping file.
type Mapping struct {
	// IDField receives the origin-qualified video key; empty disables id
	// matching.
	IDField string
	// TitleField selects the video attribute used as post title and for
	// title matching; empty disables title matching.
	TitleField       video.Field
	Bindings         []Binding
	Update           UpdatePolicy
	Categories       CategoryPolicy
	Author           string
	ShortStoryLength int
}

// Schema lists every extra field the mapping writes.
func (m Mapping) Schema() []ExtraField {
	schema := make([]ExtraField, 0, len(m.Bindings)+1)
	if m.IDField != "" {
		schema = append(schema, ExtraField{Name: m.IDField, Label: "Video key", Type: FieldText})
	}
	for _, b := range m.Bindings {
		schema = append(schema, b.Field)
	}
	return schema
}

func (m Mapping) Linked() []Binding {
	var linked []Binding
	for _, b := range m.Bindings {
		if b.Field.Linked {
			linked = append(linked, b)
		}
	}
	return linked
}

func DefaultMapping() Mapping {
	bind := func(f video.Field, t FieldType, linked bool) Binding {
		return Binding{Video: f, Field: ExtraField{Name: string(f), Label: string(f), Type: t, Linked: linked}}
	}
	return Mapping{
		IDField:    "video_key",
		TitleField: video.FieldTitle,
		Bindings: []Binding{
			bind(video.FieldOriginalTitle, FieldText, false),
			bind(video.FieldYear, FieldNumber, false),
			bind(video.FieldDuration, FieldNumber, false),
			bind(video.FieldGenres, FieldList, false),
			bind(video.FieldCountries, FieldList, false),
			bind(video.FieldActors, FieldList, false),
			bind(video.FieldDirectors, FieldList, false),
			bind(video.FieldPoster, FieldURL, false),
			bind(video.FieldPlayer, FieldURL, false),
			bind(video.FieldTrailer, FieldURL, false),
			bind(video.FieldQuality, FieldText, false),
			bind(video.FieldTranslation, FieldText, false),
			bind(video.FieldLastSeason, FieldNumber, false),
			bind(video.FieldLastEpisode, FieldNumber, false),
			bind(video.FieldKinopoiskID, FieldText, true),
			bind(video.FieldIMDbID, FieldText, true),
			bind(video.FieldWorldArtID, FieldText, true),
			bind(video.FieldShikimoriID, FieldText, true),
			bind(video.FieldKinopoiskRating, FieldNumber, false),
			bind(video.FieldIMDbRating, FieldNumber, false),
			bind(video.FieldTorrentMagnet, FieldURL, false),
		},
		Update: UpdatePolicy{
			Title:       false,
			Description: true,
			ExtraFields: []string{
				string(video.FieldQuality), string(video.FieldTranslation),
				string(video.FieldLastSeason), string(video.FieldLastEpisode),
				string(video.FieldPlayer), string(video.FieldKinopoiskRating),
				string(video.FieldIMDbRating),
			},
		},
		Categories: CategoryPolicy{
			FromType: true,
			TypeNames: map[video.Type]string{
				video.TypeMovie:   "Фильмы",
				video.TypeSerial:  "Сериалы",
				video.TypeAnime:   "Аниме",
				video.TypeCartoon: "Мультфильмы",
				video.TypeShow:    "Передачи",
			},
		},
		ShortStoryLength: 300,
	}
}

type mappingFile struct {
	IDField          string `yaml:"id_field"`
	TitleField       string `yaml:"title_field"`
	Author           string `yaml:"author"`
	ShortStoryLength int    `yaml:"short_story_length"`
	Fields           []struct {
		Video  string `yaml:"video"`
		Name   string `yaml:"name"`
		Label  string `yaml:"label"`
		Type   string `yaml:"type"`
		Linked bool   `yaml:"linked"`
	} `yaml:"fields"`
	Update struct {
		Title       bool     `yaml:"title"`
		Description bool     `yaml:"description"`
		ExtraFields []string `yaml:"extra_fields"`
		Date        bool     `yaml:"date"`
	} `yaml:"update"`
	Categories struct {
		FromType   bool              `yaml:"from_type"`
		FromGenres bool              `yaml:"from_genres"`
		TypeNames  map[string]string `yaml:"type_names"`
	} `yaml:"categories"`
}

// LoadMapping reads the mapping file at path. An empty path or a missing
// file yields DefaultMapping.
func LoadMapping(path string) (Mapping, error) {
	if path == "" {
		return DefaultMapping(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultMapping(), nil
	}
	if err != nil {
		return Mapping{}, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Mapping{}, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
	}

	m, err := file.resolve()
	if err != nil {
		return Mapping{}, fmt.Errorf("invalid mapping file %s: %w", path, err)
	}
	return m, nil
}

func (f mappingFile) resolve() (Mapping, error) {
	m := Mapping{
		IDField:          f.IDField,
		Author:           f.Author,
		ShortStoryLength: f.ShortStoryLength,
		Update: UpdatePolicy{
			Title:       f.Update.Title,
			Description: f.Update.Description,
			ExtraFields: f.Update.ExtraFields,
			Date:        f.Update.Date,
		},
		Categories: CategoryPolicy{
			FromType:   f.Categories.FromType,
			FromGenres: f.Categories.FromGenres,
			TypeNames:  make(map[video.Type]string, len(f.Categories.TypeNames)),
		},
	}

	if f.TitleField != "" {
		field, err := video.ParseField(f.TitleField)
		if err != nil {
			return Mapping{}, err
		}
		m.TitleField = field
	}

	names := map[string]bool{}
	if m.IDField != "" {
		names[m.IDField] = true
	}
	for _, entry := range f.Fields {
		field, err := video.ParseField(entry.Video)
		if err != nil {
			return Mapping{}, err
		}
		name := entry.Name
		if name == "" {
			name = entry.Video
		}
		if names[name] {
			return Mapping{}, fmt.Errorf("duplicate extra field %q", name)
		}
		names[name] = true

		kind := FieldType(entry.Type)
		switch kind {
		case "":
			kind = FieldText
		case FieldText, FieldNumber, FieldURL, FieldList:
		default:
			return Mapping{}, fmt.Errorf("unknown type %q for extra field %q", entry.Type, name)
		}

		m.Bindings = append(m.Bindings, Binding{
			Video: field,
			Field: ExtraField{Name: name, Label: entry.Label, Type: kind, Linked: entry.Linked},
		})
	}

	for _, name := range m.Update.ExtraFields {
		if !slices.ContainsFunc(m.Bindings, func(b Binding) bool { return b.Field.Name == name }) {
			return Mapping{}, fmt.Errorf("update references unmapped extra field %q", name)
		}
	}

	for t, name := range f.Categories.TypeNames {
		m.Categories.TypeNames[video.Type(t)] = name
	}

	if m.ShortStoryLength < 0 {
		return Mapping{}, fmt.Errorf("short_story_length must not be negative")
	}

	return m, nil
}
