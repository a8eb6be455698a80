package formatter

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/cardbox/internal/models"
	th "github.com/desertthunder/cardbox/internal/testing"
)

func testCard() *models.Card {
	return &models.Card{
		CardID: "card123",
		Title:  "Bedtime Stories",
		Metadata: models.Metadata{
			Description: "Stories for winding down",
		},
		Content: models.Content{
			Chapters: []models.Chapter{
				{
					Key:     "00",
					Title:   "The Moon",
					Display: &models.Display{Icon16x16: "yoto:#m-moon"},
					Tracks: []models.Track{
						{Key: "01", Title: "The Moon", Duration: 180, FileSize: 2048},
					},
				},
				{
					Key:   "01",
					Title: "The Stars",
					Tracks: []models.Track{
						{Key: "01", Title: "The Stars", Duration: 240, FileSize: 4096},
					},
				},
			},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testCard())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Chapter,Track,Title,Duration,Size,Icon") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "00,01,The Moon,180,2048,yoto:#m-moon") {
			t.Errorf("CSV missing first chapter row, got: %s", output)
		}
		if !strings.Contains(output, "01,01,The Stars,240,4096,") {
			t.Errorf("CSV missing icon-less chapter row, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("with cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testCard(), "cover.jpg")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			if !strings.Contains(output, "# Bedtime Stories") {
				t.Errorf("Markdown missing title heading")
			}
			if !strings.Contains(output, "![Cover](cover.jpg)") {
				t.Errorf("Markdown missing cover image reference")
			}
			if !strings.Contains(output, "**Description**: Stories for winding down") {
				t.Errorf("Markdown missing description")
			}
			if !strings.Contains(output, "**Chapters**: 2") {
				t.Errorf("Markdown missing chapter count")
			}
			if !strings.Contains(output, "**Duration**: 7:00") {
				t.Errorf("Markdown missing total duration, got: %s", output)
			}
			if !strings.Contains(output, "1. The Moon [3:00] `m-moon`") {
				t.Errorf("Markdown missing chapter line with icon, got: %s", output)
			}
			if !strings.Contains(output, "2. The Stars [4:00]") {
				t.Errorf("Markdown missing icon-less chapter line, got: %s", output)
			}
		})

		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testCard(), "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			if strings.Contains(string(data), "![Cover]") {
				t.Errorf("Markdown should not reference a cover image")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testCard())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Playlist: Bedtime Stories") {
			t.Errorf("text missing playlist name")
		}
		if !strings.Contains(output, "Chapters: 2") {
			t.Errorf("text missing chapter count")
		}
		if !strings.Contains(output, "1. The Moon [3:00]") {
			t.Errorf("text missing chapter line, got: %s", output)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(testCard())
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, `"cardId": "card123"`) {
			t.Errorf("metadata JSON missing card ID, got: %s", output)
		}
		if strings.Contains(output, "chapters") {
			t.Errorf("metadata JSON should not include chapters")
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("downloads image bytes", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("fake image bytes"))
		}))
		defer server.Close()

		data, err := DownloadImage(server.URL)
		if err != nil {
			t.Fatalf("DownloadImage failed: %v", err)
		}
		if string(data) != "fake image bytes" {
			t.Errorf("unexpected image bytes: %q", data)
		}
	})

	t.Run("rejects empty URL", func(t *testing.T) {
		if _, err := DownloadImage(""); err == nil {
			t.Fatal("expected error for empty URL")
		}
	})

	t.Run("rejects non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		if _, err := DownloadImage(server.URL); err == nil {
			t.Fatal("expected error for 404 response")
		}
	})
}

func TestFileExports(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		dir := t.TempDir()
		base := filepath.Join(dir, "export")

		result, err := WriteCSVExport(testCard(), base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}

		th.AssertFileExists(t, result.TracksFile)
		th.AssertFileExists(t, result.MetadataFile)

		tracks := th.MustReadFile(t, result.TracksFile)
		if !strings.Contains(tracks, "The Moon") {
			t.Errorf("tracks file missing chapter row")
		}
	})

	t.Run("WriteCSVExport defaults base path to card ID", func(t *testing.T) {
		wd := th.MustGetwd(t)
		th.MustChdir(t, t.TempDir())
		defer th.MustChdir(t, wd)

		result, err := WriteCSVExport(testCard(), "")
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		if result.TracksFile != "card123_tracks.csv" {
			t.Errorf("expected default filename, got %s", result.TracksFile)
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("with downloadable cover", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("jpg"))
			}))
			defer server.Close()

			card := testCard()
			card.Metadata.Cover.ImageL = server.URL

			dir := filepath.Join(t.TempDir(), "out")
			result, err := WriteMarkdownExport(card, dir)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}

			th.AssertDirExists(t, result.Directory)
			if result.CoverImage == "" {
				t.Error("expected cover image to be saved")
			}
			th.AssertFileExists(t, filepath.Join(dir, "README.md"))

			readme := th.MustReadFile(t, filepath.Join(dir, "README.md"))
			if !strings.Contains(readme, "![Cover](cover.jpg)") {
				t.Errorf("README missing cover reference")
			}
		})

		t.Run("tolerates cover download failure", func(t *testing.T) {
			card := testCard()
			card.Metadata.Cover.ImageL = "http://127.0.0.1:1/cover.jpg"

			dir := filepath.Join(t.TempDir(), "out")
			result, err := WriteMarkdownExport(card, dir)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if result.CoverImage != "" {
				t.Error("expected no cover image on download failure")
			}
			th.AssertFileExists(t, filepath.Join(dir, "README.md"))
		})
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "playlist.txt")

		written, err := WriteTextExport(testCard(), path)
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("empty card exports without rows", func(t *testing.T) {
		card := &models.Card{CardID: "empty", Title: "Empty"}

		data, err := ExportToCSV(card)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 1 {
			t.Errorf("expected header only, got %d lines", len(lines))
		}
	})
}
