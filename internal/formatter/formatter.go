// package formatter provides functions to export playlist cards to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/shared"
)

// ExportToCSV converts a card to CSV format with one row per track, columns:
// Chapter, Track, Title, Duration, Size, Icon
func ExportToCSV(card *models.Card) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Chapter", "Track", "Title", "Duration", "Size", "Icon"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, chapter := range card.Content.Chapters {
		for _, track := range chapter.Tracks {
			record := []string{
				chapter.Key,
				track.Key,
				track.Title,
				strconv.Itoa(track.Duration),
				strconv.FormatInt(track.FileSize, 10),
				chapter.IconRef(),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a card to Markdown format with optional cover image
func ExportToMarkdown(card *models.Card, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", card.Title))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	if card.Metadata.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", card.Metadata.Description))
	}

	buf.WriteString(fmt.Sprintf("**Chapters**: %d\n", len(card.Content.Chapters)))
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n\n", shared.FormatDuration(totalDuration(card))))

	buf.WriteString("## Chapters\n\n")
	for i, chapter := range card.Content.Chapters {
		duration := shared.FormatDuration(chapterDuration(chapter))
		iconPart := ""
		if ref := chapter.IconRef(); ref != "" {
			iconPart = fmt.Sprintf(" `%s`", strings.TrimPrefix(ref, models.IconRefPrefix))
		}
		buf.WriteString(fmt.Sprintf("%d. %s [%s]%s\n", i+1, chapter.Title, duration, iconPart))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a card to plain text format
func ExportToText(card *models.Card) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", card.Title))
	if card.Metadata.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", card.Metadata.Description))
	}
	buf.WriteString(fmt.Sprintf("Chapters: %d\n\n", len(card.Content.Chapters)))

	for i, chapter := range card.Content.Chapters {
		buf.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, chapter.Title, shared.FormatDuration(chapterDuration(chapter))))
	}

	return buf.Bytes(), nil
}

func chapterDuration(chapter models.Chapter) int {
	total := 0
	for _, track := range chapter.Tracks {
		total += track.Duration
	}
	return total
}

func totalDuration(card *models.Card) int {
	total := 0
	for _, chapter := range card.Content.Chapters {
		total += chapterDuration(chapter)
	}
	return total
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of card metadata (without chapters)
func ToMetadataJSON(card *models.Card) ([]byte, error) {
	meta := struct {
		CardID   string          `json:"cardId,omitempty"`
		Title    string          `json:"title"`
		Metadata models.Metadata `json:"metadata"`
	}{card.CardID, card.Title, card.Metadata}
	return json.MarshalIndent(meta, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a card to CSV format with accompanying metadata JSON file.
//
// Defaults to the card ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(card *models.Card, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = card.CardID
	}

	csvData, err := ExportToCSV(card)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(card)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a card to Markdown format in a dedicated directory.
//
// Directory name defaults to the card ID. When the card has a cover image URL
// an attempt is made to download it alongside the README.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(card *models.Card, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = card.CardID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL := card.Metadata.Cover.ImageL; imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := fmt.Sprintf("%s/%s", outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(card, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a card to plain text format.
//
// Defaults to {cardID}_tracks.txt as the filename.
func WriteTextExport(card *models.Card, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_tracks.txt", card.CardID)
	}

	textData, err := ExportToText(card)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
