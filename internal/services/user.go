package services

import (
	"context"
	"errors"
	"strings"

	"social-posts-backend/internal/models"
	"social-posts-backend/internal/repository"
	"social-posts-backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the persistence the user service needs
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

// UserService handles user-related business logic
type UserService struct {
	users    UserStore
	files    storage.FileStore
	hasher   *PasswordHasher
	tokens   *TokenService
	baseURL  string
	validate *validator.Validate
}

// NewUserService creates a new user service. baseURL is where the default photo is served.
func NewUserService(users UserStore, files storage.FileStore, hasher *PasswordHasher, tokens *TokenService, baseURL string) *UserService {
	return &UserService{
		users:    users,
		files:    files,
		hasher:   hasher,
		tokens:   tokens,
		baseURL:  baseURL,
		validate: validator.New(),
	}
}

// RegisterInput is the registration form
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Photo    *storage.Upload
}

// UpdateInput is the update form; empty fields are left untouched
type UpdateInput struct {
	Name     string
	Email    string
	Password string
	Photo    *storage.Upload
}

func (in UpdateInput) empty() bool {
	return strings.TrimSpace(in.Name) == "" && strings.TrimSpace(in.Email) == "" &&
		in.Password == "" && in.Photo == nil
}

// Register creates a new account
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, newError(KindValidation, MsgMissingFields)
	}
	if !s.validEmail(email) {
		return nil, newError(KindValidation, MsgInvalidEmail)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, newError(KindValidation, MsgEmailRegistered)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internalError(err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	photo := models.DefaultPhotoPath
	var uploaded string
	if in.Photo != nil {
		ref, err := saveImage(ctx, s.files, *in.Photo)
		if err != nil {
			return nil, err
		}
		photo, uploaded = ref, ref
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Photo:    &photo,
	}
	if err := s.users.Create(ctx, user); err != nil {
		discardImage(ctx, s.files, uploaded)
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, newError(KindValidation, MsgEmailRegistered)
		}
		return nil, internalError(err)
	}
	return user, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password produce the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", newError(KindValidation, MsgMissingCredential)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", newError(KindAuthentication, MsgBadCredentials)
		}
		return "", internalError(err)
	}

	if !s.hasher.Verify(password, user.Password) {
		return "", newError(KindAuthentication, MsgBadCredentials)
	}

	token, err := s.tokens.Issue(Claims{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Photo: s.ResolvePhoto(user.Photo),
	})
	if err != nil {
		return "", internalError(err)
	}
	return token, nil
}

// Update changes the supplied fields of user id. callerID is the
// authenticated user and must be the same account.
func (s *UserService) Update(ctx context.Context, callerID, id int64, in UpdateInput) (*models.User, error) {
	if in.empty() {
		return nil, newError(KindValidation, MsgNothingToUpdate)
	}
	if callerID != id {
		return nil, newError(KindAuthorization, MsgForbidden)
	}

	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, MsgUserNotFound)
		}
		return nil, internalError(err)
	}

	var upd models.UserUpdate
	if name := strings.TrimSpace(in.Name); name != "" {
		upd.Name = &name
	}

	if email := strings.TrimSpace(in.Email); email != "" {
		if !s.validEmail(email) {
			return nil, newError(KindValidation, MsgInvalidEmail)
		}
		if email != current.Email {
			taken, err := s.users.EmailTaken(ctx, email, id)
			if err != nil {
				return nil, internalError(err)
			}
			if taken {
				return nil, newError(KindValidation, MsgEmailInUse)
			}
		}
		upd.Email = &email
	}

	if in.Password != "" {
		hash, err := s.hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		upd.Password = &hash
	}

	var uploaded string
	if in.Photo != nil {
		ref, err := saveImage(ctx, s.files, *in.Photo)
		if err != nil {
			return nil, err
		}
		photo := s.files.URL(ref)
		upd.Photo = &photo
		uploaded = ref
	}

	user, err := s.users.Update(ctx, id, upd)
	if err != nil {
		discardImage(ctx, s.files, uploaded)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, newError(KindNotFound, MsgUserNotFound)
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, newError(KindValidation, MsgEmailInUse)
		}
		return nil, internalError(err)
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, MsgUserNotFound)
		}
		return nil, internalError(err)
	}
	return user, nil
}

// ListUsers retrieves all users
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, internalError(err)
	}
	return users, nil
}

// DeleteUser removes the caller's own account and its posts
func (s *UserService) DeleteUser(ctx context.Context, callerID, id int64) error {
	if callerID != id {
		return newError(KindAuthorization, MsgForbidden)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindNotFound, MsgUserNotFound)
		}
		return internalError(err)
	}
	return nil
}

// ResolvePhoto turns a stored photo reference into an absolute URL
func (s *UserService) ResolvePhoto(photo *string) string {
	if photo == nil || *photo == "" || *photo == models.DefaultPhotoPath {
		return storage.JoinURL(s.baseURL, models.DefaultPhotoPath)
	}
	return s.files.URL(*photo)
}

func (s *UserService) validEmail(email string) bool {
	return s.validate.Var(email, "required,email") == nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	if err := ValidatePasswordStrength(password); err != nil {
		return "", newError(KindValidation, MsgWeakPassword)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", newError(KindValidation, MsgPasswordTooLong)
		}
		return "", internalError(err)
	}
	return hash, nil
}

func saveImage(ctx context.Context, files storage.FileStore, up storage.Upload) (string, error) {
	ref, err := storage.SaveImage(ctx, files, up)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			return "", newError(KindValidation, MsgNotImage)
		case errors.Is(err, storage.ErrEmptyFile):
			return "", newError(KindValidation, MsgEmptyFile)
		}
		return "", internalError(err)
	}
	return ref, nil
}

// discardImage removes an upload whose owning row was never written
func discardImage(ctx context.Context, files storage.FileStore, ref string) {
	if ref == "" {
		return
	}
	if err := files.Delete(ctx, ref); err != nil {
		log.Warn().Err(err).Str("ref", ref).Msg("Failed to remove orphaned upload")
	}
}
