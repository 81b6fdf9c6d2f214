package alice

import (
	"context"
	"fmt"

	"github.com/alexjbarnes/asset-sync/internal/models"
)

const imageURLPrefix = "https://avatars.mds.yandex.net/get-dialogs-skill-card/"

// Images is the skill's image collection.
type Images struct {
	client *Client
}

// Images returns the image collection.
func (c *Client) Images() *Images {
	return &Images{client: c}
}

func (i *Images) List(ctx context.Context) ([]models.RemoteItem, error) {
	return i.client.List(ctx, KindImages)
}

func (i *Images) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	item, err := i.client.Upload(ctx, KindImages, data, filename)
	if err != nil {
		return "", err
	}

	return item.ID, nil
}

func (i *Images) Delete(ctx context.Context, id string) error {
	return i.client.Delete(ctx, KindImages, id)
}

// URL is the public card URL of an uploaded image.
func (i *Images) URL(id string) string {
	return imageURLPrefix + id + "/orig"
}

// Sounds is the skill's sound collection. Sounds are played through TTS
// markup rather than a public URL.
type Sounds struct {
	client *Client
}

// Sounds returns the sound collection.
func (c *Client) Sounds() *Sounds {
	return &Sounds{client: c}
}

func (s *Sounds) List(ctx context.Context) ([]models.RemoteItem, error) {
	items, err := s.client.List(ctx, KindSounds)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].TTS = s.TTS(items[i].ID)
	}

	return items, nil
}

func (s *Sounds) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	item, err := s.client.Upload(ctx, KindSounds, data, filename)
	if err != nil {
		return "", err
	}

	return item.ID, nil
}

func (s *Sounds) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, KindSounds, id)
}

// URL is the API resource of an uploaded sound. It requires the OAuth token
// to fetch; skills reference sounds through TTS instead.
func (s *Sounds) URL(id string) string {
	return s.client.baseURL + s.client.collectionPath(KindSounds) + "/" + id
}

// TTS returns the speaker markup that plays the sound in a response.
func (s *Sounds) TTS(id string) string {
	return fmt.Sprintf(`<speaker audio="dialogs-upload/%s/%s.opus">`, s.client.skillID, id)
}

// Collection returns the adapter for kind.
func (c *Client) Collection(kind Kind) (Collection, error) {
	switch kind {
	case KindImages:
		return c.Images(), nil
	case KindSounds:
		return c.Sounds(), nil
	}

	return nil, fmt.Errorf("unknown asset kind %q", kind)
}

// Collection is the common surface of Images and Sounds.
type Collection interface {
	List(ctx context.Context) ([]models.RemoteItem, error)
	Upload(ctx context.Context, data []byte, filename string) (string, error)
	Delete(ctx context.Context, id string) error
	URL(id string) string
}
