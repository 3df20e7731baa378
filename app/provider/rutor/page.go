package rutor

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/text/encoding/charmap"

	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

var (
	// "Матрица / The Matrix (1999) BDRip 1080p от Files-x | D, P"
	titlePattern  = regexp.MustCompile(`^(.+?)(?:\s+/\s+(.+?))?\s+\((\d{4})(?:-\d{4})?\)\s*(.*)$`)
	seasonPattern = regexp.MustCompile(`(?i)\[S(\d+)(?:-S?(\d+))?\]|(\d+)\s*сезон`)
	torrentPath   = regexp.MustCompile(`/(?:torrent|download)/(\d+)`)
	sizeBytes     = regexp.MustCompile(`\((\d+)\s*Bytes\)`)
)

// fromPage scrapes a torrent detail page. Pages are served in
// windows-1251 unless already valid UTF-8.
func (p *Provider) fromPage(raw []byte) (video.Video, error) {
	body := raw
	if !utf8.Valid(body) {
		decoded, err := charmap.Windows1251.NewDecoder().Bytes(body)
		if err != nil {
			return video.Video{}, p.Fail("normalize", provider.ErrUnexpectedResponse, "undecodable page", err)
		}
		body = decoded
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return video.Video{}, p.Fail("normalize", provider.ErrUnexpectedResponse, "malformed page", err)
	}

	downloadLink, _ := doc.Find(`a[href*="/download/"]`).First().Attr("href")
	v, err := video.New(torrentID(downloadLink), Origin)
	if err != nil {
		return video.Video{}, p.InvalidInput("page without torrent id")
	}

	applyTitle(&v, doc.Find("#all h1").First().Text())

	magnet, _ := doc.Find(`a[href^="magnet:"]`).First().Attr("href")
	v.Torrent = video.Torrent{
		InfoHash: infoHash(magnet),
		Magnet:   magnet,
		FileURL:  absoluteURL(p.Config.Host, downloadLink),
	}

	details := doc.Find("#details")
	details.Find("tr").Each(func(_ int, row *goquery.Selection) {
		header := strings.TrimSuffix(strings.TrimSpace(row.Find("td.header").Text()), ":")
		value := video.Clean(row.Find("td").Last().Text())
		switch header {
		case "Раздают":
			v.Torrent.Seeders = provider.ParseInt(value)
		case "Качают":
			v.Torrent.Leechers = provider.ParseInt(value)
		case "Размер":
			if m := sizeBytes.FindStringSubmatch(value); m != nil {
				v.Torrent.Size = int64(provider.ParseInt(m[1]))
			}
		case "Добавлен":
			v.CreatedAt = parseAdded(value)
		}
	})

	description := details.Find("tr").First().Find("td").Last()
	v.PosterURL, _ = description.Find("img").First().Attr("src")
	v.Description = extractDescription(description)

	return v, nil
}

// extractDescription prefers the readability text of the description
// cell and falls back to its raw text.
func extractDescription(cell *goquery.Selection) string {
	html, err := cell.Html()
	if err != nil || strings.TrimSpace(html) == "" {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader("<html><body><article>"+html+"</article></body></html>"), nil)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return strings.TrimSpace(article.TextContent)
	}
	return strings.TrimSpace(cell.Text())
}

// applyTitle splits a release title into its parts. Titles that do not
// follow the tracker convention are kept whole.
func applyTitle(v *video.Video, title string) {
	title = video.Clean(title)
	if title == "" {
		return
	}

	m := titlePattern.FindStringSubmatch(title)
	if m == nil {
		v.Title = title
		return
	}

	v.Title = m[1]
	v.OriginalTitle = m[2]
	v.Year = provider.ParseInt(m[3])

	rest := m[4]
	if i := strings.Index(rest, "|"); i >= 0 {
		v.Translation = video.Clean(rest[i+1:])
		rest = rest[:i]
	}
	if i := strings.Index(rest, " от "); i >= 0 {
		rest = rest[:i]
	}
	v.Quality = provider.Quality(isCamrip(rest), rest)

	v.Type = video.TypeMovie
	if s := seasonPattern.FindStringSubmatch(title); s != nil {
		v.Type = video.TypeSerial
		v.LastSeason = provider.ParseInt(provider.FirstOf(s[2], s[1], s[3]))
	}
}

// parseAdded reads "18-10-2024 12:30:00 (5 дней назад)".
func parseAdded(s string) time.Time {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return time.Time{}
	}
	t, err := time.Parse("02-01-2006 15:04:05", fields[0]+" "+fields[1])
	if err != nil {
		return time.Time{}
	}
	return t
}

func isCamrip(quality string) bool {
	q := strings.ToLower(quality)
	return strings.Contains(q, "camrip") || strings.HasPrefix(q, "ts ") || q == "ts"
}

func torrentID(link string) string {
	if m := torrentPath.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

func infoHash(magnet string) string {
	u, err := url.Parse(magnet)
	if err != nil {
		return ""
	}
	for _, xt := range u.Query()["xt"] {
		if hash, ok := strings.CutPrefix(xt, "urn:btih:"); ok {
			return strings.ToLower(hash)
		}
	}
	return ""
}

func absoluteURL(host, link string) string {
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "//") {
		return "http:" + link
	}
	if strings.HasPrefix(link, "/") {
		return host + link
	}
	return link
}
