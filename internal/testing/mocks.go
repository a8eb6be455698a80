package testing

import (
	"context"

	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/services"
)

// MockContentAPI is a test double for [services.ContentAPI]. Unset functions
// return zero values.
type MockContentAPI struct {
	GetPlaylistFunc     func(ctx context.Context, cardID string) (*models.Card, error)
	GetPlaylistsFunc    func(ctx context.Context) ([]models.Card, error)
	SavePlaylistFunc    func(ctx context.Context, card *models.Card) (*services.SaveResult, error)
	DeletePlaylistFunc  func(ctx context.Context, cardID string) error
	GetPublicIconsFunc  func(ctx context.Context) ([]models.Icon, error)
	GetCustomIconsFunc  func(ctx context.Context) ([]models.Icon, error)
	GetUploadURLFunc    func(ctx context.Context, sha256, filename string) (*services.UploadSlot, error)
	TranscodeStatusFunc func(ctx context.Context, uploadID string) (*services.TranscodeResult, error)
	PutFileFunc         func(ctx context.Context, url string, body []byte) error
}

func (m *MockContentAPI) GetPlaylist(ctx context.Context, cardID string) (*models.Card, error) {
	if m.GetPlaylistFunc != nil {
		return m.GetPlaylistFunc(ctx, cardID)
	}
	return &models.Card{CardID: cardID}, nil
}

func (m *MockContentAPI) GetPlaylists(ctx context.Context) ([]models.Card, error) {
	if m.GetPlaylistsFunc != nil {
		return m.GetPlaylistsFunc(ctx)
	}
	return nil, nil
}

func (m *MockContentAPI) SavePlaylist(ctx context.Context, card *models.Card) (*services.SaveResult, error) {
	if m.SavePlaylistFunc != nil {
		return m.SavePlaylistFunc(ctx, card)
	}
	return &services.SaveResult{CardID: card.CardID, IsUpdate: card.CardID != ""}, nil
}

func (m *MockContentAPI) DeletePlaylist(ctx context.Context, cardID string) error {
	if m.DeletePlaylistFunc != nil {
		return m.DeletePlaylistFunc(ctx, cardID)
	}
	return nil
}

func (m *MockContentAPI) GetPublicIcons(ctx context.Context) ([]models.Icon, error) {
	if m.GetPublicIconsFunc != nil {
		return m.GetPublicIconsFunc(ctx)
	}
	return nil, nil
}

func (m *MockContentAPI) GetCustomIcons(ctx context.Context) ([]models.Icon, error) {
	if m.GetCustomIconsFunc != nil {
		return m.GetCustomIconsFunc(ctx)
	}
	return nil, nil
}

func (m *MockContentAPI) GetUploadURL(ctx context.Context, sha256, filename string) (*services.UploadSlot, error) {
	if m.GetUploadURLFunc != nil {
		return m.GetUploadURLFunc(ctx, sha256, filename)
	}
	return &services.UploadSlot{UploadID: "upload-id", UploadURL: "https://bucket/put"}, nil
}

func (m *MockContentAPI) TranscodeStatus(ctx context.Context, uploadID string) (*services.TranscodeResult, error) {
	if m.TranscodeStatusFunc != nil {
		return m.TranscodeStatusFunc(ctx, uploadID)
	}
	return &services.TranscodeResult{
		TranscodedSHA256: "deadbeef",
		TranscodedAt:     "2024-01-01T00:00:00Z",
		Metadata:         &services.TranscodeMetadata{Title: "Track", Duration: 60},
	}, nil
}

func (m *MockContentAPI) PutFile(ctx context.Context, url string, body []byte) error {
	if m.PutFileFunc != nil {
		return m.PutFileFunc(ctx, url, body)
	}
	return nil
}

// MockAIAPI is a test double for [services.AIAPI]. The default Embeddings
// returns one unit vector per text so similarity math stays well-defined.
type MockAIAPI struct {
	ProbeFunc       func(ctx context.Context) error
	EmbeddingsFunc  func(ctx context.Context, texts []string) ([][]float64, error)
	SelectTitleFunc func(ctx context.Context, system, user string) (string, error)
}

func (m *MockAIAPI) Probe(ctx context.Context) error {
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx)
	}
	return nil
}

func (m *MockAIAPI) Embeddings(ctx context.Context, texts []string) ([][]float64, error) {
	if m.EmbeddingsFunc != nil {
		return m.EmbeddingsFunc(ctx, texts)
	}
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{1, 0}
	}
	return vectors, nil
}

func (m *MockAIAPI) SelectTitle(ctx context.Context, system, user string) (string, error) {
	if m.SelectTitleFunc != nil {
		return m.SelectTitleFunc(ctx, system, user)
	}
	return "", nil
}
