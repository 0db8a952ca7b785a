package endpoints

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	apperrors "pushhook/internal/pkg/errors"
	"pushhook/internal/platform/models"
)

const (
	maxNameLength  = 100
	maxTitleLength = 120
	maxBodyLength  = 500
)

type Store interface {
	Create(ctx context.Context, endpoint *models.Endpoint) error
	GetForUser(ctx context.Context, id, userID string) (*models.Endpoint, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Endpoint, error)
	Update(ctx context.Context, endpoint *models.Endpoint) error
	UpdateSecret(ctx context.Context, id, userID, secret string) error
	Delete(ctx context.Context, id, userID string) (bool, error)
}

type CreateInput struct {
	Name         string
	Type         models.EndpointType
	GenericTitle *string
	GenericBody  *string
}

// UpdateInput fields left nil are kept.
type UpdateInput struct {
	Name         *string
	Type         *models.EndpointType
	GenericTitle *string
	GenericBody  *string
}

type Service struct {
	repo    Store
	baseURL string
}

func NewService(repo Store, baseURL string) *Service {
	return &Service{repo: repo, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.Endpoint, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	endpoint := &models.Endpoint{
		UserID:       userID,
		Name:         strings.TrimSpace(in.Name),
		Type:         in.Type,
		Secret:       secret,
		GenericTitle: clean(in.GenericTitle),
		GenericBody:  clean(in.GenericBody),
	}
	if err := validate(endpoint); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, endpoint); err != nil {
		return nil, err
	}
	return endpoint, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*models.Endpoint, error) {
	endpoint, err := s.repo.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if endpoint == nil {
		return nil, apperrors.ErrNotFound
	}
	return endpoint, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*models.Endpoint, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*models.Endpoint, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		existing.Name = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		existing.Type = *in.Type
	}
	if in.GenericTitle != nil {
		existing.GenericTitle = clean(in.GenericTitle)
	}
	if in.GenericBody != nil {
		existing.GenericBody = clean(in.GenericBody)
	}

	if err := validate(existing); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// RotateSecret is the only operation that changes a secret. The previous URL stops working.
func (s *Service) RotateSecret(ctx context.Context, userID, id string) (*models.Endpoint, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSecret(ctx, id, userID, secret); err != nil {
		return nil, err
	}

	existing.Secret = secret
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.ErrNotFound
	}
	return nil
}

// WebhookURL is the address handed to the third party. Sale endpoints get a {valor} placeholder.
func (s *Service) WebhookURL(endpoint *models.Endpoint) string {
	u := s.baseURL + "/webhook/" + url.PathEscape(endpoint.ID) + "?token=" + url.QueryEscape(endpoint.Secret)
	if endpoint.Type == models.EndpointSaleApproved {
		u += "&valor={valor}"
	}
	return u
}

func (s *Service) QRCode(endpoint *models.Endpoint, size int) ([]byte, error) {
	return GenerateQRCode(s.WebhookURL(endpoint), size)
}

func validate(e *models.Endpoint) error {
	if e.Name == "" {
		return apperrors.Invalid("name is required")
	}
	if utf8.RuneCountInString(e.Name) > maxNameLength {
		return apperrors.Invalid("name is too long")
	}
	if !e.Type.Valid() {
		return apperrors.Invalid("type must be one of disconnected, sale_approved, generic")
	}
	if e.GenericTitle != nil && utf8.RuneCountInString(*e.GenericTitle) > maxTitleLength {
		return apperrors.Invalid("generic_title is too long")
	}
	if e.GenericBody != nil && utf8.RuneCountInString(*e.GenericBody) > maxBodyLength {
		return apperrors.Invalid("generic_body is too long")
	}
	return nil
}

func clean(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
