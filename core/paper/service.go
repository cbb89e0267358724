package paper

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gradewise/gradewise/core"
)

const idPrefix = "paper_"

var (
	// errors
	ErrNotFound = errors.New("paper not found")

	errInvalidPaper = errors.New("invalid paper")

	// NowFunc is mocked in tests
	NowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	// Repository is the paper registry: papers are stored once and never updated nor deleted.
	Repository interface {
		// Put stores the paper under its ID and returns the stored copy.
		Put(ctx context.Context, paper Paper) (Paper, error)
		// Get returns ErrNotFound when no paper has this id.
		Get(ctx context.Context, id string) (Paper, error)
		Count(ctx context.Context) (int, error)
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{repo: repo, validate: validate, translator: translator}
}

// NewID allocates a fresh paper identifier.
func NewID() string {
	return idPrefix + uuid.NewString()
}

// Upload validates np and registers it as a new paper.
func (svc *Service) Upload(ctx context.Context, np NewPaper) (Paper, error) {
	np.Title = core.CleanString(np.Title)
	np.Course = core.CleanString(np.Course)
	if err := svc.Validate(np); err != nil {
		return Paper{}, err
	}

	p := Paper{
		ID:        NewID(),
		Title:     np.Title,
		Course:    np.Course,
		Parts:     copyParts(np.Parts),
		CreatedAt: NowFunc(),
	}
	for i := range p.Parts {
		p.Parts[i].Name = core.CleanString(p.Parts[i].Name)
	}

	p, err := svc.repo.Put(ctx, p)
	if err != nil {
		return Paper{}, errors.Wrap(err, "storing paper")
	}
	return p, nil
}

// Validate checks np and turns validator errors into a *core.ValidationError keyed by JSON field path.
func (svc *Service) Validate(np NewPaper) error {
	err := svc.validate.Struct(np)
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, "validating paper")
	}

	translated := core.TranslateErrors(vErrs, svc.translator)
	flds := make([]core.FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		fld := core.FieldPath(vErr)
		flds = append(flds, core.FieldError{Field: fld, Error: translated[fld]})
	}
	return core.NewValidationError(errInvalidPaper, flds...)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Paper, error) {
	p, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Paper{}, errors.Wrapf(err, "getting paper %q", id)
	}
	return p, nil
}

// Exists reports whether a paper is registered under id.
func (svc *Service) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := svc.repo.Get(ctx, id); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, errors.Wrapf(err, "getting paper %q", id)
	}
	return true, nil
}
