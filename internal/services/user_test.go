package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"social-posts-backend/internal/models"
	"social-posts-backend/internal/repository"
	"social-posts-backend/internal/storage"
)

const testBaseURL = "http://localhost:3000"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type userFixture struct {
	svc    *UserService
	store  *repository.MemoryStore
	tokens *TokenService
	hasher *PasswordHasher
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	files, err := storage.NewLocalStore(t.TempDir(), testBaseURL)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	store := repository.NewMemoryStore()
	tokens := newTestTokenService(t)
	hasher := NewPasswordHasher()
	return &userFixture{
		svc:    NewUserService(store.Users(), files, hasher, tokens, testBaseURL),
		store:  store,
		tokens: tokens,
		hasher: hasher,
	}
}

func (f *userFixture) register(t *testing.T, name, email, password string) *models.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return user
}

func pngUpload(name string) *storage.Upload {
	return &storage.Upload{Filename: name, Body: bytes.NewReader(pngHeader)}
}

func expectError(t *testing.T, err error, kind Kind, message string) {
	t.Helper()
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *services.Error, got %v", err)
	}
	if svcErr.Kind != kind {
		t.Fatalf("expected kind %d, got %d (%v)", kind, svcErr.Kind, err)
	}
	if message != "" && svcErr.Message != message {
		t.Fatalf("expected message %q, got %q", message, svcErr.Message)
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t, "Ana", "ana@x.com", "Abcdef1!")

	if user.ID == 0 {
		t.Fatalf("expected generated id")
	}
	stored, err := f.store.Users().GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Password == "Abcdef1!" {
		t.Fatalf("plaintext password was stored")
	}
	if !f.hasher.Verify("Abcdef1!", stored.Password) {
		t.Fatalf("stored hash does not verify")
	}
	if stored.Photo == nil || *stored.Photo != models.DefaultPhotoPath {
		t.Fatalf("expected default photo, got %v", stored.Photo)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newUserFixture(t)
	f.register(t, "Ana", "ana@x.com", "Abcdef1!")

	for i := 0; i < 2; i++ {
		_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ana", Email: "ana@x.com", Password: "Abcdef1!"})
		expectError(t, err, KindValidation, MsgEmailRegistered)
	}

	users, _ := f.svc.ListUsers(context.Background())
	if len(users) != 1 {
		t.Fatalf("expected one user, got %d", len(users))
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newUserFixture(t)

	cases := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"missing name", RegisterInput{Email: "a@x.com", Password: "Abcdef1!"}, MsgMissingFields},
		{"missing email", RegisterInput{Name: "A", Password: "Abcdef1!"}, MsgMissingFields},
		{"missing password", RegisterInput{Name: "A", Email: "a@x.com"}, MsgMissingFields},
		{"blank name", RegisterInput{Name: "   ", Email: "a@x.com", Password: "Abcdef1!"}, MsgMissingFields},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "Abcdef1!"}, MsgInvalidEmail},
		{"short password", RegisterInput{Name: "A", Email: "a@x.com", Password: "Ab1!"}, MsgWeakPassword},
		{"no symbol", RegisterInput{Name: "A", Email: "a@x.com", Password: "Abcdefg1"}, MsgWeakPassword},
		{"too long", RegisterInput{Name: "A", Email: "a@x.com", Password: "Aa1!" + strings.Repeat("x", 80)}, MsgPasswordTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.in)
			expectError(t, err, KindValidation, tc.msg)
		})
	}
}

func TestRegisterWithPhoto(t *testing.T) {
	f := newUserFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Ana", Email: "ana@x.com", Password: "Abcdef1!", Photo: pngUpload("me.png"),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Photo == nil || !strings.HasPrefix(*user.Photo, "uploads/") || !strings.HasSuffix(*user.Photo, "-me.png") {
		t.Fatalf("unexpected photo reference %v", user.Photo)
	}
}

func TestRegisterRejectsNonImagePhoto(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Ana", Email: "ana@x.com", Password: "Abcdef1!",
		Photo: &storage.Upload{Filename: "notes.txt", Body: strings.NewReader("hello there")},
	})
	expectError(t, err, KindValidation, MsgNotImage)

	if _, err := f.store.Users().GetByEmail(context.Background(), "ana@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("user must not be created when the photo is rejected")
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t, "Ana", "ana@x.com", "Abcdef1!")

	token, err := f.svc.Login(context.Background(), "ana@x.com", "Abcdef1!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := f.tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.ID != user.ID || claims.Email != "ana@x.com" || claims.Name != "Ana" {
		t.Fatalf("claims do not match user: %+v", claims)
	}
	if claims.Photo != testBaseURL+"/"+models.DefaultPhotoPath {
		t.Fatalf("expected resolved default photo, got %q", claims.Photo)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	f := newUserFixture(t)
	f.register(t, "Ana", "ana@x.com", "Abcdef1!")

	_, wrongPassword := f.svc.Login(context.Background(), "ana@x.com", "Wrong123!")
	_, unknownEmail := f.svc.Login(context.Background(), "nobody@x.com", "Abcdef1!")

	expectError(t, wrongPassword, KindAuthentication, MsgBadCredentials)
	expectError(t, unknownEmail, KindAuthentication, MsgBadCredentials)

	_, missing := f.svc.Login(context.Background(), "ana@x.com", "")
	expectError(t, missing, KindValidation, MsgMissingCredential)
}

func TestUpdateOnlyEmail(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t, "Ana", "ana@x.com", "Abcdef1!")
	before, _ := f.store.Users().GetByID(context.Background(), user.ID)

	updated, err := f.svc.Update(context.Background(), user.ID, user.ID, UpdateInput{Email: "ana2@x.com"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.Email != "ana2@x.com" {
		t.Fatalf("email not updated: %q", updated.Email)
	}
	if updated.Name != before.Name || updated.Password != before.Password || *updated.Photo != *before.Photo {
		t.Fatalf("fields other than email changed: before=%+v after=%+v", before, updated)
	}
}

func TestUpdatePasswordAndPhoto(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t, "Ana", "ana@x.com", "Abcdef1!")

	updated, err := f.svc.Update(context.Background(), user.ID, user.ID, UpdateInput{
		Password: "Newpass2?",
		Photo:    pngUpload("new.png"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Photo == nil || !strings.HasPrefix(*updated.Photo, testBaseURL+"/uploads/") {
		t.Fatalf("expected absolute photo url, got %v", updated.Photo)
	}

	if _, err := f.svc.Login(context.Background(), "ana@x.com", "Abcdef1!"); err == nil {
		t.Fatalf("old password must stop working")
	}
	if _, err := f.svc.Login(context.Background(), "ana@x.com", "Newpass2?"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestUpdateErrors(t *testing.T) {
	f := newUserFixture(t)
	ana := f.register(t, "Ana", "ana@x.com", "Abcdef1!")
	f.register(t, "Bob", "bob@x.com", "Abcdef1!")
	ctx := context.Background()

	_, err := f.svc.Update(ctx, ana.ID, ana.ID, UpdateInput{})
	expectError(t, err, KindValidation, MsgNothingToUpdate)

	_, err = f.svc.Update(ctx, ana.ID, ana.ID+1, UpdateInput{Name: "x"})
	expectError(t, err, KindAuthorization, MsgForbidden)

	_, err = f.svc.Update(ctx, 999, 999, UpdateInput{Name: "x"})
	expectError(t, err, KindNotFound, MsgUserNotFound)

	_, err = f.svc.Update(ctx, ana.ID, ana.ID, UpdateInput{Email: "bad-email"})
	expectError(t, err, KindValidation, MsgInvalidEmail)

	_, err = f.svc.Update(ctx, ana.ID, ana.ID, UpdateInput{Email: "bob@x.com"})
	expectError(t, err, KindValidation, MsgEmailInUse)

	_, err = f.svc.Update(ctx, ana.ID, ana.ID, UpdateInput{Password: "weak"})
	expectError(t, err, KindValidation, MsgWeakPassword)

	// re-sending one's own email is not a conflict
	if _, err := f.svc.Update(ctx, ana.ID, ana.ID, UpdateInput{Email: "ana@x.com", Name: "Ana2"}); err != nil {
		t.Fatalf("Update with own email: %v", err)
	}
}

func TestGetAndDeleteUser(t *testing.T) {
	f := newUserFixture(t)
	ana := f.register(t, "Ana", "ana@x.com", "Abcdef1!")
	bob := f.register(t, "Bob", "bob@x.com", "Abcdef1!")
	ctx := context.Background()

	got, err := f.svc.GetUser(ctx, ana.ID)
	if err != nil || got.Email != "ana@x.com" {
		t.Fatalf("GetUser: %v %+v", err, got)
	}

	expectError(t, f.svc.DeleteUser(ctx, bob.ID, ana.ID), KindAuthorization, MsgForbidden)

	if err := f.svc.DeleteUser(ctx, ana.ID, ana.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	expectError(t, f.svc.DeleteUser(ctx, ana.ID, ana.ID), KindNotFound, MsgUserNotFound)

	_, err = f.svc.GetUser(ctx, ana.ID)
	expectError(t, err, KindNotFound, MsgUserNotFound)
}

func TestResolvePhoto(t *testing.T) {
	f := newUserFixture(t)

	if got := f.svc.ResolvePhoto(nil); got != testBaseURL+"/"+models.DefaultPhotoPath {
		t.Fatalf("unexpected default photo %q", got)
	}
	ref := "uploads/1-me.png"
	if got := f.svc.ResolvePhoto(&ref); got != testBaseURL+"/uploads/1-me.png" {
		t.Fatalf("unexpected resolved photo %q", got)
	}
	abs := "https://cdn.example/me.png"
	if got := f.svc.ResolvePhoto(&abs); got != abs {
		t.Fatalf("absolute photo must pass through, got %q", got)
	}
}

type duplicateOnCreate struct {
	*repository.MemoryUserRepository
}

func (duplicateOnCreate) Create(ctx context.Context, user *models.User) error {
	return repository.ErrDuplicateEmail
}

type failingUpdate struct {
	*repository.MemoryUserRepository
}

func (failingUpdate) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	return nil, errors.New("connection reset by peer")
}

func expectEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("os.ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no stored files, found %d", len(entries))
	}
}

func TestRegisterRemovesPhotoWhenInsertFails(t *testing.T) {
	dir := t.TempDir()
	files, err := storage.NewLocalStore(dir, testBaseURL)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	store := repository.NewMemoryStore()
	svc := NewUserService(duplicateOnCreate{store.Users()}, files, NewPasswordHasher(), newTestTokenService(t), testBaseURL)

	_, err = svc.Register(context.Background(), RegisterInput{
		Name: "Ana", Email: "ana@x.com", Password: "Abcdef1!", Photo: pngUpload("me.png"),
	})
	expectError(t, err, KindValidation, MsgEmailRegistered)
	expectEmptyDir(t, dir)
}

func TestUpdateRemovesPhotoWhenWriteFails(t *testing.T) {
	dir := t.TempDir()
	files, err := storage.NewLocalStore(dir, testBaseURL)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	store := repository.NewMemoryStore()
	svc := NewUserService(failingUpdate{store.Users()}, files, NewPasswordHasher(), newTestTokenService(t), testBaseURL)
	ctx := context.Background()

	ana, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@x.com", Password: "Abcdef1!"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err = svc.Update(ctx, ana.ID, ana.ID, UpdateInput{Photo: pngUpload("new.png")})
	expectError(t, err, KindInternal, MsgInternal)
	expectEmptyDir(t, dir)
}
