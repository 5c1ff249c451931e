// Package profile loads and edits the signed-in user's profile.
package profile

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"opensacco-client/pkg/client"
	"opensacco-client/pkg/logging"
	"opensacco-client/pkg/portal"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// MaxImageSize is the exclusive upper bound on a profile image, in bytes.
const MaxImageSize = 7_000_000

var routeProfile = portal.NewRoutePattern("api").Build("profile")

var formMessages = portal.Messages{
	"username":      "Username must be at least 2 characters long",
	"email":         "Invalid email address",
	"profile_image": "Profile image must be less than 7MB.",
}

const msgNotAnImage = "Profile image must be an image file."

// Image is a file chosen for upload.
type Image struct {
	Name string
	Data []byte
}

// MIME returns the sniffed content type of the image.
func (img *Image) MIME() string {
	return mimetype.Detect(img.Data).String()
}

// Preview is a local rendering of a selected image. It does not depend on the
// image being uploaded.
type Preview struct {
	Name    string
	MIME    string
	Size    int
	DataURI string
}

// Form is the editable part of the profile.
type Form struct {
	Username string `json:"username" validate:"min=2"`
	Email    string `json:"email" validate:"email"`
	Image    *Image `json:"profile_image"`
}

// FormFor pre-fills a form from the current profile.
func FormFor(u portal.User) Form {
	return Form{Username: u.Username, Email: u.Email}
}

// SelectImage attaches an image to the form and returns its preview.
func (f *Form) SelectImage(name string, data []byte) Preview {
	f.Image = &Image{Name: name, Data: data}
	mt := mimetype.Detect(data)
	return Preview{
		Name:    name,
		MIME:    mt.String(),
		Size:    len(data),
		DataURI: "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data),
	}
}

// SelectImageFile reads an image from disk and attaches it.
func (f *Form) SelectImageFile(path string) (Preview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preview{}, fmt.Errorf("profile: read image: %w", err)
	}
	return f.SelectImage(filepath.Base(path), data), nil
}

// Validate checks the form. Failures are returned as *portal.ValidationError.
func (f Form) Validate() error {
	var ve *portal.ValidationError
	if err := portal.ValidateForm(f, formMessages); err != nil && !errors.As(err, &ve) {
		return err
	}
	if ve == nil {
		ve = &portal.ValidationError{Fields: map[string]string{}}
	}

	if f.Image != nil {
		switch {
		case len(f.Image.Data) >= MaxImageSize:
			ve.Fields["profile_image"] = formMessages["profile_image"]
		case !strings.HasPrefix(f.Image.MIME(), "image/"):
			ve.Fields["profile_image"] = msgNotAnImage
		}
	}

	if len(ve.Fields) == 0 {
		return nil
	}
	return ve
}

// encode builds the multipart body. The image part is omitted when no image
// was selected.
func (f Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("username", f.Username); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("email", f.Email); err != nil {
		return nil, "", err
	}

	if f.Image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="profile_image"; filename=%q`, f.Image.Name))
		h.Set("Content-Type", f.Image.MIME())
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Image.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// Service talks to the profile endpoint.
type Service struct {
	client *client.Client
	logger *logging.Logger
}

// NewService creates a profile service.
func NewService(c *client.Client) *Service {
	return &Service{
		client: c,
		logger: logging.Global().Named("profile"),
	}
}

// Load fetches the signed-in user's profile.
func (s *Service) Load(ctx context.Context) (portal.User, error) {
	resp, err := s.client.Get(ctx, routeProfile, client.AuthRequired)
	if err != nil {
		return portal.User{}, fmt.Errorf("profile: load: %w", err)
	}

	var u portal.User
	if err := resp.DecodeJSON(&u); err != nil {
		return portal.User{}, fmt.Errorf("profile: load: %w", err)
	}
	if u.Profile.RoleDisplay == "" {
		u.Profile.RoleDisplay = u.Profile.Role.Display()
	}
	return u, nil
}

// Update validates the form and patches the profile. Nothing is sent when
// validation fails. The returned user is empty if the API replies without a body.
func (s *Service) Update(ctx context.Context, f Form) (portal.User, error) {
	if err := f.Validate(); err != nil {
		return portal.User{}, err
	}

	body, contentType, err := f.encode()
	if err != nil {
		return portal.User{}, fmt.Errorf("profile: encode form: %w", err)
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method:      http.MethodPatch,
		Path:        routeProfile,
		Body:        body,
		ContentType: contentType,
		Auth:        client.AuthRequired,
	})
	if err != nil {
		s.logger.Warn("error updating profile", zap.Error(err))
		return portal.User{}, fmt.Errorf("profile: update: %w", err)
	}

	s.logger.Info("profile updated",
		zap.String("username", f.Username),
		zap.Bool("image", f.Image != nil),
	)

	var u portal.User
	if len(resp.Body) > 0 && resp.IsJSON() {
		if err := resp.DecodeJSON(&u); err != nil {
			s.logger.Warn("unexpected profile update response", zap.Error(err))
		}
	}
	return u, nil
}

// ImageURL resolves a profile image path returned by the API against base.
// Absolute URLs are returned unchanged; an empty path yields "".
func ImageURL(base, path string) string {
	if path == "" {
		return ""
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
