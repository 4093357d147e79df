// Package export renders itineraries for download and display.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/zola/internal/common"
	"github.com/ternarybob/zola/internal/interfaces"
	"github.com/ternarybob/zola/internal/models"
)

const (
	thumbsPerRow = 4
	thumbGap     = 3.0
	maxThumbs    = 12
	maxImageSize = 10 << 20
)

// Service implements interfaces.ExportService
type Service struct {
	httpClient     *http.Client
	thumbnailWidth int
	fetchTimeout   time.Duration
	markdown       goldmark.Markdown
	logger         arbor.ILogger
}

var _ interfaces.ExportService = (*Service)(nil)

// NewService creates an export service
func NewService(cfg common.ExportConfig, httpClient *http.Client, logger arbor.ILogger) *Service {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	width := cfg.ThumbnailWidth
	if width <= 0 {
		width = 320
	}
	return &Service{
		httpClient:     httpClient,
		thumbnailWidth: width,
		fetchTimeout:   common.ParseDuration(cfg.FetchTimeout, 10*time.Second),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		),
		logger: logger,
	}
}

// ItineraryHTML renders itinerary markdown as HTML
func (s *Service) ItineraryHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render itinerary: %w", err)
	}
	return buf.String(), nil
}

// ItineraryPDF renders the plan's itinerary with a trip summary, thumbnails of
// the pinned images and the recommended places. Images that cannot be
// downloaded are left out.
func (s *Service) ItineraryPDF(ctx context.Context, plan models.Plan) ([]byte, error) {
	if plan.Itinerary == nil || strings.TrimSpace(*plan.Itinerary) == "" {
		return nil, models.ErrNoItinerary
	}

	s.logger.Debug().
		Str("location", plan.Location).
		Int("images", len(plan.Images)).
		Int("places", len(plan.Locations)).
		Msg("Rendering itinerary PDF")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.SetTitle(tripTitle(plan), true)
	pdf.SetCreator("Zola", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, tr(tripTitle(plan)), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 6, tr(tripSummary(plan)), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(3)

	s.renderThumbnails(ctx, pdf, plan.Images)

	source := []byte(*plan.Itinerary)
	doc := s.markdown.Parser().Parse(text.NewReader(source))
	renderer := newMarkdownRenderer(pdf, source)
	renderer.updateFont()
	if err := renderer.render(doc); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render itinerary markdown")
		return nil, fmt.Errorf("failed to render itinerary: %w", err)
	}

	if len(plan.Locations) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 14)
		pdf.SetTextColor(25, 80, 120)
		pdf.CellFormat(0, 8, "Recommended places", "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		renderTable(pdf, tr, placeRows(plan.Locations))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PDF output")
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Msg("Itinerary PDF generated")
	return buf.Bytes(), nil
}

func (s *Service) renderThumbnails(ctx context.Context, pdf *fpdf.Fpdf, images []models.Image) {
	if len(images) > maxThumbs {
		images = images[:maxThumbs]
	}

	cellWidth := (pageWidth - thumbGap*(thumbsPerRow-1)) / thumbsPerRow
	col := 0
	rowTop := pdf.GetY()
	rowHeight := 0.0

	for _, img := range images {
		data, err := s.thumbnail(ctx, img.URL)
		if err != nil {
			s.logger.Warn().Err(err).Str("image_id", img.ID).Msg("Skipping image in export")
			continue
		}

		name := "thumb-" + img.ID
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		if pdf.Err() {
			s.logger.Warn().Err(pdf.Error()).Str("image_id", img.ID).Msg("Skipping unreadable image in export")
			pdf.ClearError()
			continue
		}

		height := cellWidth
		if info != nil && info.Width() > 0 {
			height = cellWidth * info.Height() / info.Width()
		}
		if col == 0 && rowTop+height > 297-15 {
			pdf.AddPage()
			rowTop = pdf.GetY()
		}

		x := 10 + float64(col)*(cellWidth+thumbGap)
		pdf.ImageOptions(name, x, rowTop, cellWidth, height, false, opts, 0, img.URL)
		if height > rowHeight {
			rowHeight = height
		}

		col++
		if col == thumbsPerRow {
			col = 0
			rowTop += rowHeight + thumbGap
			rowHeight = 0
		}
	}

	if col > 0 {
		rowTop += rowHeight + thumbGap
	}
	pdf.SetXY(10, rowTop)
}

// thumbnail downloads an image and re-encodes it as a small JPEG
func (s *Service) thumbnail(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, models.TransportError("image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.APIError{Service: "image", StatusCode: resp.StatusCode, Message: resp.Status, Endpoint: url}
	}

	src, err := imaging.Decode(io.LimitReader(resp.Body, maxImageSize), imaging.AutoOrientation(true))
	if err != nil {
		return nil, models.MalformedError("image", err)
	}

	thumb := imaging.Resize(src, s.thumbnailWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tripTitle(plan models.Plan) string {
	if plan.Location == "" {
		return "Your trip"
	}
	return "Trip to " + plan.Location
}

func tripSummary(plan models.Plan) string {
	var parts []string
	switch {
	case plan.DateFrom != nil && plan.DateTo != nil:
		parts = append(parts, plan.DateFrom.String()+" to "+plan.DateTo.String())
	case plan.DateFrom != nil:
		parts = append(parts, "from "+plan.DateFrom.String())
	}
	people := "1 traveller"
	if plan.NumPeople > 1 {
		people = fmt.Sprintf("%d travellers", plan.NumPeople)
	}
	parts = append(parts, people)
	if plan.Budget != "" {
		parts = append(parts, "budget "+plan.Budget)
	}
	if plan.Mood != "" {
		parts = append(parts, string(plan.Mood))
	}
	return strings.Join(parts, "  |  ")
}

func placeRows(places []models.Place) [][]string {
	rows := [][]string{{"Name", "Type", "Rating", "Address"}}
	for _, p := range places {
		rating := ""
		if p.Rating > 0 {
			rating = fmt.Sprintf("%.1f", p.Rating)
		}
		rows = append(rows, []string{p.Name, string(p.Category), rating, p.Address})
	}
	return rows
}
